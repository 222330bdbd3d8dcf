package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

func newQAFixture(semantic *semanticFake) (*QAUseCase, *extractorFake) {
	sources := []domain.Source{
		{Name: "a.pdf", Path: "/data/a.pdf"},
		{Name: "b.pdf", Path: "/data/b.pdf"},
	}
	extractor := newExtractorFake(map[string]string{
		"/data/a.pdf": "Employees accrue vacation days monthly. Payroll runs on the last Friday.",
		"/data/b.pdf": "Quarterly numbers are listed in the appendix. The deadline is March 1. Everything else can wait for later.",
	})
	uc := NewQAUseCase(&discoveryFake{sources: sources}, extractor, nil, discardLogger())
	if semantic != nil {
		uc.semantic = semantic
	}
	return uc, extractor
}

func TestAskAnswersFromNumberedDocument(t *testing.T) {
	uc, _ := newQAFixture(nil)

	resp, err := uc.Ask(context.Background(), "What is the deadline?", "2")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "The deadline is March 1." {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if resp.Source != "/data/b.pdf" {
		t.Fatalf("source = %q", resp.Source)
	}
	if len(resp.Snippets) != 1 || resp.Snippets[0].Score != 1 {
		t.Fatalf("unexpected snippets %+v", resp.Snippets)
	}
	if resp.Question != "What is the deadline?" {
		t.Fatalf("question = %q", resp.Question)
	}
}

func TestAskWithoutMatchReturnsFallbackAnswer(t *testing.T) {
	uc, _ := newQAFixture(nil)

	resp, err := uc.Ask(context.Background(), "Who signed the lease?", "1")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != domain.NoAnswerFound {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if len(resp.Snippets) != 0 {
		t.Fatalf("expected no snippets, got %+v", resp.Snippets)
	}
}

func TestAskValidatesInput(t *testing.T) {
	uc, _ := newQAFixture(nil)

	cases := []struct {
		name     string
		question string
		docID    string
		kind     error
	}{
		{name: "empty question", question: "   ", docID: "1", kind: domain.ErrInvalidInput},
		{name: "non numeric id", question: "deadline?", docID: "abc", kind: domain.ErrDocumentNotFound},
		{name: "zero id", question: "deadline?", docID: "0", kind: domain.ErrDocumentNotFound},
		{name: "out of range id", question: "deadline?", docID: "3", kind: domain.ErrDocumentNotFound},
		{name: "no id without semantic service", question: "deadline?", kind: domain.ErrDocumentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Ask(context.Background(), tc.question, tc.docID)
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestAskUsesTopSemanticResult(t *testing.T) {
	semantic := &semanticFake{results: []domain.SearchResult{
		{ID: "a", Path: "/data/a.pdf"},
		{ID: "b", Path: "/data/b.pdf"},
	}}
	uc, extractor := newQAFixture(semantic)

	resp, err := uc.Ask(context.Background(), "When does payroll run?", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Source != "/data/a.pdf" || resp.Answer != "Payroll runs on the last Friday." {
		t.Fatalf("unexpected response %+v", resp)
	}
	if extractor.callCount("/data/b.pdf") != 0 {
		t.Fatal("expected only the top result to be read")
	}
	if len(semantic.queries) != 1 || semantic.queries[0] != "When does payroll run?" {
		t.Fatalf("unexpected semantic queries %v", semantic.queries)
	}
}

func TestAskSemanticFailureIsNotFound(t *testing.T) {
	for name, semantic := range map[string]*semanticFake{
		"unavailable": {err: errors.New("connection refused")},
		"empty":       {},
	} {
		t.Run(name, func(t *testing.T) {
			uc, _ := newQAFixture(semantic)
			_, err := uc.Ask(context.Background(), "deadline?", "")
			if !domain.IsKind(err, domain.ErrDocumentNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestAskPropagatesExtractionFailure(t *testing.T) {
	uc, extractor := newQAFixture(nil)
	extractor.setFailure("/data/a.pdf", errBrokenPDF)

	_, err := uc.Ask(context.Background(), "payroll?", "1")
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestRankSentencesKeepsTopFiveInScoreOrder(t *testing.T) {
	text := "Alpha beta gamma delta appear together. " +
		"Only alpha shows up in this one. " +
		"Alpha and beta share this sentence. " +
		"Nothing relevant is written here at all. " +
		"Gamma alone appears in this sentence. " +
		"Delta alone appears in this sentence too. " +
		"Beta alone appears in this final sentence."

	got := rankSentences(text, "alpha beta gamma delta")
	if len(got) != 5 {
		t.Fatalf("got %d snippets, want 5: %+v", len(got), got)
	}
	if got[0].Score != 4 || got[1].Score != 2 {
		t.Fatalf("unexpected leading scores %+v", got)
	}
	if got[2].Sentence != "Only alpha shows up in this one." {
		t.Fatalf("ties must keep document order, got %+v", got[2:])
	}
	for _, s := range got {
		if s.Score == 0 {
			t.Fatalf("zero score sentence returned: %+v", s)
		}
	}
}

func TestAskWithOnlyStopwordsFindsNothing(t *testing.T) {
	uc, _ := newQAFixture(nil)

	resp, err := uc.Ask(context.Background(), "What is it?", "1")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != domain.NoAnswerFound || len(resp.Snippets) != 0 {
		t.Fatalf("expected no answer for a stopword-only question, got %q %+v", resp.Answer, resp.Snippets)
	}
}

func TestRankSentencesCountsCharactersNotBytes(t *testing.T) {
	// 20 characters but 24 bytes.
	text := "Café coûté très dur. The café opens at nine every morning."
	got := rankSentences(text, "café?")
	if len(got) != 1 || got[0].Sentence != "The café opens at nine every morning." {
		t.Fatalf("unexpected ranking %+v", got)
	}
}
