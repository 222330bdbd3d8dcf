package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/textproc"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type discoveryFake struct {
	sources []domain.Source
	err     error
}

func (f *discoveryFake) Discover(context.Context) ([]domain.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Source(nil), f.sources...), nil
}

type extractorFake struct {
	mu       sync.Mutex
	texts    map[string]string
	failures map[string]error
	delay    time.Duration
	calls    map[string]int
	inFlight int
	maxSeen  int
}

func newExtractorFake(texts map[string]string) *extractorFake {
	return &extractorFake{texts: texts, failures: map[string]error{}, calls: map[string]int{}}
}

func (f *extractorFake) Extract(_ context.Context, ref string) (domain.Extraction, error) {
	f.mu.Lock()
	f.calls[ref]++
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	err := f.failures[ref]
	text := f.texts[ref]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err != nil {
		return domain.Extraction{}, err
	}
	return domain.Extraction{
		Text:      text,
		PageCount: 1,
		Metadata:  domain.DocumentMetadata{Title: "Title of " + ref},
	}, nil
}

func (f *extractorFake) ExtractFullText(ctx context.Context, ref string) (string, error) {
	extraction, err := f.Extract(ctx, ref)
	return extraction.Text, err
}

func (f *extractorFake) ExtractSnippet(_ context.Context, ref string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[ref] != nil {
		return ""
	}
	return textproc.FirstSentences(f.texts[ref], 3)
}

func (f *extractorFake) callCount(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ref]
}

func (f *extractorFake) setFailure(ref string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, ref)
		return
	}
	f.failures[ref] = err
}

type classifierFake struct {
	mu     sync.Mutex
	ranked []domain.LabelScore
}

func (f *classifierFake) Classify(context.Context, string) []domain.LabelScore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LabelScore(nil), f.ranked...)
}

func (f *classifierFake) set(ranked ...domain.LabelScore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranked = ranked
}

// gatedClassifier blocks inside Classify until release is closed.
type gatedClassifier struct {
	ranked  []domain.LabelScore
	entered chan struct{}
	release chan struct{}
}

func newGatedClassifier(ranked ...domain.LabelScore) *gatedClassifier {
	return &gatedClassifier{ranked: ranked, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedClassifier) Classify(context.Context, string) []domain.LabelScore {
	close(g.entered)
	<-g.release
	return g.ranked
}

type summarizerFake struct{}

func (summarizerFake) Summarize(_ context.Context, text string) string {
	if text == "" {
		return "No text available to summarize."
	}
	return "summary"
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.DocumentEvent
	err    error
}

func (r *eventRecorder) Publish(_ context.Context, event domain.DocumentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type semanticFake struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (f *semanticFake) Index(context.Context, []domain.IndexedDocument) error { return nil }

func (f *semanticFake) Search(_ context.Context, query string, _ int) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

var errBrokenPDF = domain.WrapError(domain.ErrExtraction, "open pdf", errors.New("malformed header"))
