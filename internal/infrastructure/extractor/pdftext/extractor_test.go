package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

type fakeFetcher struct {
	docs map[string][]byte
	err  error
}

func (f fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.docs[ref]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch", errors.New(ref))
	}
	return data, nil
}

// buildPDF writes a minimal uncompressed PDF with one Helvetica text line per page.
func buildPDF(title string, pages ...string) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+i*2)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	obj(fmt.Sprintf("<< /Title (%s) /Author (Finance Team) >>", title))
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 6+i*2))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestExtractJoinsPagesAndReadsInfo(t *testing.T) {
	doc := buildPDF("Quarterly Report", "Revenue grew this quarter.", "Costs were stable.")
	e := NewExtractor(fakeFetcher{docs: map[string][]byte{"a.pdf": doc}}, nil)

	out, err := e.Extract(context.Background(), "a.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", out.PageCount)
	}
	if !strings.Contains(out.Text, "Revenue grew this quarter.") || !strings.Contains(out.Text, "Costs were stable.") {
		t.Fatalf("unexpected text %q", out.Text)
	}
	if strings.Index(out.Text, "Revenue") > strings.Index(out.Text, "Costs") {
		t.Fatalf("pages out of order: %q", out.Text)
	}
	if out.Metadata.Title != "Quarterly Report" || out.Metadata.Author != "Finance Team" {
		t.Fatalf("unexpected metadata %+v", out.Metadata)
	}
}

func TestExtractCorruptDocumentIsExtractionError(t *testing.T) {
	e := NewExtractor(fakeFetcher{docs: map[string][]byte{"bad.pdf": []byte("not a pdf at all")}}, nil)

	_, err := e.ExtractFullText(context.Background(), "bad.pdf")
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractMissingDocumentKeepsCause(t *testing.T) {
	e := NewExtractor(fakeFetcher{docs: map[string][]byte{}}, nil)

	_, err := e.Extract(context.Background(), "missing.pdf")
	if !domain.IsKind(err, domain.ErrExtraction) || !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected extraction error wrapping not found, got %v", err)
	}
}

func TestExtractSnippetNeverFails(t *testing.T) {
	e := NewExtractor(fakeFetcher{err: errors.New("network down")}, nil)
	if got := e.ExtractSnippet(context.Background(), "a.pdf"); got != "" {
		t.Fatalf("expected empty snippet, got %q", got)
	}

	doc := buildPDF("T", "One here. Two here. Three here. Four here.")
	e = NewExtractor(fakeFetcher{docs: map[string][]byte{"a.pdf": doc}}, nil)
	if got := e.ExtractSnippet(context.Background(), "a.pdf"); got != "One here. Two here. Three here." {
		t.Fatalf("unexpected snippet %q", got)
	}
}
