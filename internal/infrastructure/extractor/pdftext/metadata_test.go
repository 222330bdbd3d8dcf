package pdftext

import "testing"

func TestBuildMetadataPrefersInfoDictionary(t *testing.T) {
	meta := buildMetadata(info{Title: "Embedded", Author: "Ann", Keywords: "tax, audit ,", CreationDate: "D:20240115093000Z"}, "Some Other Title\nBy: Someone Else")
	if meta.Title != "Embedded" || meta.Author != "Ann" {
		t.Fatalf("expected info dictionary values, got %+v", meta)
	}
	if len(meta.Keywords) != 2 || meta.Keywords[1] != "audit" {
		t.Fatalf("unexpected keywords %v", meta.Keywords)
	}
	if meta.CreationDate != "2024-01-15 09:30:00" {
		t.Fatalf("unexpected creation date %q", meta.CreationDate)
	}
}

func TestBuildMetadataHeuristics(t *testing.T) {
	page := "Memo\nEmployee Handbook Update\nBy: Jane Doe\nContact hr@example.com about the $1,250.00 bonus. Issued March 3, 2024 by Human Resources."
	meta := buildMetadata(info{}, page)

	if meta.Title != "Employee Handbook Update" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.Author != "Jane Doe" {
		t.Fatalf("unexpected author %q", meta.Author)
	}
	if meta.CreationDate != "March 3, 2024" {
		t.Fatalf("unexpected date %q", meta.CreationDate)
	}

	kinds := map[string]string{}
	for _, e := range meta.Entities {
		if _, ok := kinds[e.Type]; !ok {
			kinds[e.Type] = e.Value
		}
	}
	if kinds["email"] != "hr@example.com" {
		t.Fatalf("expected email entity, got %v", meta.Entities)
	}
	if kinds["amount"] != "$1,250.00" {
		t.Fatalf("expected amount entity, got %v", meta.Entities)
	}
	if kinds["name"] == "" {
		t.Fatalf("expected a name entity, got %v", meta.Entities)
	}
}

func TestGuessAuthorFallsBackToEmail(t *testing.T) {
	if got := guessAuthor("Questions go to legal@example.org"); got != "legal@example.org" {
		t.Fatalf("unexpected author %q", got)
	}
}

func TestFormatPDFDate(t *testing.T) {
	cases := map[string]string{
		"D:20230102":         "2023-01-02",
		"D:20230102030405Z":  "2023-01-02 03:04:05",
		"January 2, 2023":    "January 2, 2023",
		"":                   "",
	}
	for in, want := range cases {
		if got := FormatPDFDate(in); got != want {
			t.Fatalf("FormatPDFDate(%q) = %q, want %q", in, got, want)
		}
	}
}
