package search

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

type fakeSemantic struct {
	mu        sync.Mutex
	indexed   []domain.IndexedDocument
	indexErr  error
	results   []domain.SearchResult
	searchErr error
}

func (f *fakeSemantic) Index(_ context.Context, docs []domain.IndexedDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, docs...)
	return f.indexErr
}

func (f *fakeSemantic) Search(context.Context, string, int) ([]domain.SearchResult, error) {
	return f.results, f.searchErr
}

func sampleDocs() []domain.IndexedDocument {
	return []domain.IndexedDocument{
		{ID: "1", Name: "a.pdf", Text: "Invoice total for March. The invoice is overdue.", Category: "Finance", Confidence: 0.9},
		{ID: "2", Name: "b.pdf", Text: "Employee onboarding checklist.", Category: "HR", Confidence: 0.8},
		{ID: "3", Name: "c.pdf", Text: "Invoice template.", Category: "Finance", Confidence: 0.6},
	}
}

func TestSearchRanksByOccurrenceCount(t *testing.T) {
	idx := New(nil, nil)
	idx.AddDocuments(sampleDocs())

	results := idx.Search("Invoice", domain.SearchFilter{})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", results)
	}
	if results[0].ID != "1" || results[0].RelevanceScore != 2 || results[1].ID != "3" {
		t.Fatalf("unexpected ranking %v", results)
	}
}

func TestSearchFiltersByCategoryAndSkipsEmptyTerms(t *testing.T) {
	idx := New(nil, nil)
	idx.AddDocuments(sampleDocs())

	if got := idx.Search("  ", domain.SearchFilter{}); len(got) != 0 {
		t.Fatalf("blank query must match nothing, got %v", got)
	}
	got := idx.Search("invoice  onboarding", domain.SearchFilter{Category: "HR"})
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("unexpected filtered results %v", got)
	}
}

func TestAddDocumentReplacesSameID(t *testing.T) {
	idx := New(nil, nil)
	idx.AddDocuments(sampleDocs())
	idx.AddDocument(domain.IndexedDocument{ID: "2", Name: "b.pdf", Text: "Payroll calendar.", Category: "HR"})

	if idx.Len() != 3 {
		t.Fatalf("expected 3 documents, got %d", idx.Len())
	}
	if got := idx.Search("onboarding", domain.SearchFilter{}); len(got) != 0 {
		t.Fatalf("replaced text must not match, got %v", got)
	}
}

func TestSnippet(t *testing.T) {
	text := strings.Repeat("x", 150) + "Needle" + strings.Repeat("y", 150)
	got := Snippet(text, "needle")
	want := "..." + strings.Repeat("x", 100) + "Needle" + strings.Repeat("y", 100) + "..."
	if got != want {
		t.Fatalf("unexpected snippet %q", got)
	}

	short := "short text"
	if got := Snippet(short, "absent"); got != short {
		t.Fatalf("unexpected fallback %q", got)
	}
	long := strings.Repeat("z", 250)
	if got := Snippet(long, "absent"); got != strings.Repeat("z", 200)+"..." {
		t.Fatalf("unexpected truncated fallback length %d", len(got))
	}
	if got := Snippet("Needle at start", "needle"); got != "Needle at start" {
		t.Fatalf("unexpected snippet without markers %q", got)
	}
}

func TestAddDocumentsPushesToSemanticIndex(t *testing.T) {
	semantic := &fakeSemantic{indexErr: errors.New("offline")}
	idx := New(semantic, nil)
	idx.AddDocuments(sampleDocs())
	idx.Flush()

	if len(semantic.indexed) != 3 {
		t.Fatalf("expected remote indexing of 3 docs, got %d", len(semantic.indexed))
	}
	if idx.Len() != 3 {
		t.Fatalf("remote failure must not affect local index")
	}
}

func TestSemanticSearchFallsBackToKeywordSearch(t *testing.T) {
	semantic := &fakeSemantic{searchErr: errors.New("connection refused")}
	idx := New(semantic, nil)
	idx.AddDocuments(sampleDocs())
	idx.Flush()

	got := idx.SemanticSearch(context.Background(), "invoice", 5)
	want := idx.Search("invoice", domain.SearchFilter{})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallback mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestSemanticSearchReturnsRemoteResults(t *testing.T) {
	remote := []domain.SearchResult{{ID: "9", Category: "Unknown", RelevanceScore: 0.5, Confidence: 0.5}}
	idx := New(&fakeSemantic{results: remote}, nil)

	got := idx.SemanticSearch(context.Background(), "anything", 3)
	if !reflect.DeepEqual(got, remote) {
		t.Fatalf("unexpected results %v", got)
	}
}
