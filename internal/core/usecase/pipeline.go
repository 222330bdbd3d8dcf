package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/textproc"
)

const (
	defaultBatchSize = 2
	snippetSentences = 3
	failedMessage    = "Document could not be processed."
)

// ProcessObserver receives per-document timing. *metrics.PipelineMetrics satisfies it.
type ProcessObserver interface {
	StartDocument()
	FinishDocument(duration time.Duration, err error)
}

type PipelineOptions struct {
	Discovery  ports.SourceDiscovery
	Extractor  ports.TextExtractor
	Classifier ports.DocumentClassifier
	Summarizer ports.Summarizer
	Cache      ports.DocumentCache
	Index      ports.SearchIndex
	Events     ports.EventPublisher
	Observer   ProcessObserver
	BatchSize  int
	Logger     *slog.Logger
}

type PipelineUseCase struct {
	discovery  ports.SourceDiscovery
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	summarizer ports.Summarizer
	cache      ports.DocumentCache
	index      ports.SearchIndex
	events     ports.EventPublisher
	observer   ProcessObserver
	batchSize  int
	logger     *slog.Logger

	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	failed map[string]domain.ProcessedDocument

	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewPipelineUseCase(opts PipelineOptions) *PipelineUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &PipelineUseCase{
		discovery:  opts.Discovery,
		extractor:  opts.Extractor,
		classifier: opts.Classifier,
		summarizer: opts.Summarizer,
		cache:      opts.Cache,
		index:      opts.Index,
		events:     opts.Events,
		observer:   opts.Observer,
		batchSize:  opts.BatchSize,
		logger:     opts.Logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		failed:     make(map[string]domain.ProcessedDocument),
		keyLocks:   make(map[string]*sync.Mutex),
	}
}

func (uc *PipelineUseCase) Discover(ctx context.Context) ([]domain.Source, error) {
	sources, err := uc.discovery.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}
	return sources, nil
}

// SourceByID maps a 1-based position in the discovered list to its source.
func (uc *PipelineUseCase) SourceByID(ctx context.Context, id string) (domain.Source, error) {
	sources, err := uc.Discover(ctx)
	if err != nil {
		return domain.Source{}, err
	}
	return sourceAt(sources, id)
}

// Warm loads every cached document into the search index.
func (uc *PipelineUseCase) Warm() int {
	docs := uc.cache.List()
	indexed := make([]domain.IndexedDocument, 0, len(docs))
	for _, doc := range docs {
		indexed = append(indexed, domain.IndexedFrom(doc))
	}
	if len(indexed) > 0 {
		uc.index.AddDocuments(indexed)
	}
	return len(indexed)
}

// Process returns the cached document for src, computing it on a miss.
// Concurrent calls for the same source share one computation.
func (uc *PipelineUseCase) Process(ctx context.Context, src domain.Source) (domain.ProcessedDocument, error) {
	if strings.TrimSpace(src.Name) == "" || strings.TrimSpace(src.Path) == "" {
		return domain.ProcessedDocument{}, domain.WrapError(domain.ErrInvalidInput, "process document", errors.New("source name and path are required"))
	}
	key := src.CacheKey()
	doc, err := uc.cache.GetOrCompute(ctx, key, func(ctx context.Context) (domain.ProcessedDocument, error) {
		return uc.compute(ctx, src)
	})
	if err != nil {
		uc.mu.RLock()
		failed, ok := uc.failed[key]
		uc.mu.RUnlock()
		if !ok {
			failed = domain.ProcessedDocument{Name: src.Name, Path: src.Path, ProcessingStatus: domain.StatusError, Error: failedMessage}
		}
		return failed, err
	}

	uc.mu.Lock()
	delete(uc.failed, key)
	uc.mu.Unlock()
	return doc, nil
}

func (uc *PipelineUseCase) compute(ctx context.Context, src domain.Source) (domain.ProcessedDocument, error) {
	started := time.Now()
	uc.observer.StartDocument()

	doc := domain.ProcessedDocument{
		ID:               uc.newID(),
		Name:             src.Name,
		Path:             src.Path,
		ProcessingStatus: domain.StatusIdle,
	}
	uc.transition(&doc, domain.StatusProcessing)
	doc.Snippet = uc.extractor.ExtractSnippet(ctx, src.Path)
	uc.publish(ctx, domain.EventDocumentProcessing, doc)

	extraction, err := uc.extractor.Extract(ctx, src.Path)
	if err != nil {
		uc.observer.FinishDocument(time.Since(started), err)
		uc.fail(ctx, src, doc, err)
		return domain.ProcessedDocument{}, fmt.Errorf("extract %s: %w", src.Name, err)
	}

	doc.Text = extraction.Text
	doc.PageCount = extraction.PageCount
	doc.Metadata = extraction.Metadata
	if doc.Snippet == "" {
		doc.Snippet = snippetOf(extraction.Text)
	}
	doc.Summary = uc.summarizer.Summarize(ctx, extraction.Text)
	doc.ApplyClassification(uc.classifier.Classify(ctx, extraction.Text))
	doc.ProcessedAt = uc.now()
	uc.transition(&doc, domain.StatusCompleted)

	uc.index.AddDocument(domain.IndexedFrom(doc))
	uc.publish(ctx, domain.EventDocumentProcessed, doc)
	uc.observer.FinishDocument(time.Since(started), nil)
	uc.logger.Info("document_processed",
		"name", doc.Name,
		"path", doc.Path,
		"classification", doc.Classification,
		"confidence", doc.ConfidenceScore,
		"pages", doc.PageCount,
	)
	return doc, nil
}

func (uc *PipelineUseCase) fail(ctx context.Context, src domain.Source, doc domain.ProcessedDocument, cause error) {
	uc.transition(&doc, domain.StatusError)
	doc.Error = failedMessage
	doc.ProcessedAt = uc.now()

	uc.mu.Lock()
	uc.failed[src.CacheKey()] = doc
	uc.mu.Unlock()

	uc.logger.Error("document_process_failed", "name", src.Name, "path", src.Path, "error", cause)
	uc.publish(ctx, domain.EventDocumentFailed, doc)
}

// IngestAll processes sources in fixed-size batches. Each batch is awaited
// before the next one starts; a failed document does not stop its batch.
// Results keep the order of sources.
func (uc *PipelineUseCase) IngestAll(ctx context.Context, sources []domain.Source) []domain.ProcessedDocument {
	results := make([]domain.ProcessedDocument, len(sources))
	for start := 0; start < len(sources); start += uc.batchSize {
		if ctx.Err() != nil {
			uc.logger.Warn("ingest_interrupted", "processed", start, "total", len(sources), "error", ctx.Err())
			return results[:start]
		}
		end := min(start+uc.batchSize, len(sources))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				doc, err := uc.Process(ctx, sources[i])
				if err != nil {
					uc.logger.Warn("ingest_document_failed", "name", sources[i].Name, "error", err)
				}
				results[i] = doc
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// Documents lists processed documents followed by failed ones.
func (uc *PipelineUseCase) Documents() []domain.ProcessedDocument {
	docs := uc.cache.List()

	uc.mu.RLock()
	defer uc.mu.RUnlock()
	for _, key := range slices.Sorted(maps.Keys(uc.failed)) {
		docs = append(docs, uc.failed[key])
	}
	return docs
}

// SetCategory pins a user-chosen category. Later reclassification keeps it.
func (uc *PipelineUseCase) SetCategory(ctx context.Context, id, category string) (domain.ProcessedDocument, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return domain.ProcessedDocument{}, domain.WrapError(domain.ErrInvalidInput, "set category", errors.New("category is required"))
	}
	key, doc, err := uc.lookup(ctx, id)
	if err != nil {
		return domain.ProcessedDocument{}, err
	}

	doc = uc.update(ctx, key, doc, func(d *domain.ProcessedDocument) {
		d.Category = category
	})
	uc.logger.Info("document_category_set", "id", doc.ID, "category", category)
	return doc, nil
}

// Reprocess reclassifies a cached document from its stored text. A pinned
// category survives. Documents that failed earlier are processed from scratch.
func (uc *PipelineUseCase) Reprocess(ctx context.Context, id string) (domain.ProcessedDocument, error) {
	if src, ok := uc.failedSource(ctx, id); ok {
		return uc.Process(ctx, src)
	}

	key, doc, err := uc.lookup(ctx, id)
	if err != nil {
		return domain.ProcessedDocument{}, err
	}

	started := time.Now()
	uc.observer.StartDocument()
	uc.transition(&doc, domain.StatusProcessing)
	uc.publish(ctx, domain.EventDocumentProcessing, doc)

	ranked := uc.classifier.Classify(ctx, doc.Text)
	doc = uc.update(ctx, key, doc, func(d *domain.ProcessedDocument) {
		d.ProcessingStatus = domain.StatusProcessing
		d.ApplyClassification(ranked)
		d.ProcessedAt = uc.now()
		uc.transition(d, domain.StatusCompleted)
	})
	uc.observer.FinishDocument(time.Since(started), nil)
	uc.publish(ctx, domain.EventDocumentProcessed, doc)
	return doc, nil
}

// Absorb records a document state reported by another process, such as a
// queue worker. It reports whether the event changed anything; processing
// events and echoes of this process's own results do not.
func (uc *PipelineUseCase) Absorb(ctx context.Context, event domain.DocumentEvent) bool {
	doc := event.Document
	key := doc.Source().CacheKey()
	switch event.Type {
	case domain.EventDocumentProcessed:
		if cached, ok := uc.cache.Get(key); ok && sameResult(cached, doc) {
			return false
		}
		uc.mu.Lock()
		delete(uc.failed, key)
		uc.mu.Unlock()
		uc.update(ctx, key, doc, func(d *domain.ProcessedDocument) { *d = doc })
		return true
	case domain.EventDocumentFailed:
		uc.mu.Lock()
		defer uc.mu.Unlock()
		if known, ok := uc.failed[key]; ok && sameResult(known, doc) {
			return false
		}
		uc.failed[key] = doc
		return true
	}
	return false
}

func sameResult(a, b domain.ProcessedDocument) bool {
	return a.ID == b.ID && a.ProcessedAt.Equal(b.ProcessedAt)
}

// store updates the cache and the index. A failed persist only loses durability.
func (uc *PipelineUseCase) store(ctx context.Context, key string, doc domain.ProcessedDocument) {
	uc.index.AddDocument(domain.IndexedFrom(doc))
	if err := uc.cache.Put(ctx, key, doc); err != nil {
		uc.logger.Error("cache_persist_failed", "key", key, "error", err)
	}
}

// update applies fn to the current cache entry for key and stores the result.
// Mutations of one key are serialized, so a change made while another caller
// was working from an older copy is not lost. fallback is used when the key
// is not cached.
func (uc *PipelineUseCase) update(ctx context.Context, key string, fallback domain.ProcessedDocument, fn func(*domain.ProcessedDocument)) domain.ProcessedDocument {
	unlock := uc.lockKey(key)
	defer unlock()

	doc, ok := uc.cache.Get(key)
	if !ok {
		doc = fallback
	}
	fn(&doc)
	uc.store(ctx, key, doc)
	return doc
}

func (uc *PipelineUseCase) lockKey(key string) func() {
	uc.keyMu.Lock()
	l, ok := uc.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		uc.keyLocks[key] = l
	}
	uc.keyMu.Unlock()

	l.Lock()
	return l.Unlock
}

// lookup accepts either a document id or a 1-based position in the
// discovered source list.
func (uc *PipelineUseCase) lookup(ctx context.Context, id string) (string, domain.ProcessedDocument, error) {
	for _, doc := range uc.cache.List() {
		if doc.ID == id {
			return doc.Source().CacheKey(), doc, nil
		}
	}
	src, err := uc.SourceByID(ctx, id)
	if err != nil {
		return "", domain.ProcessedDocument{}, err
	}
	if doc, ok := uc.cache.Get(src.CacheKey()); ok {
		return src.CacheKey(), doc, nil
	}
	return "", domain.ProcessedDocument{}, domain.WrapError(domain.ErrDocumentNotFound, "lookup document", fmt.Errorf("%s has not been processed", src.Name))
}

func (uc *PipelineUseCase) failedSource(ctx context.Context, id string) (domain.Source, bool) {
	uc.mu.RLock()
	for _, doc := range uc.failed {
		if doc.ID == id {
			uc.mu.RUnlock()
			return doc.Source(), true
		}
	}
	uc.mu.RUnlock()

	if _, err := strconv.Atoi(id); err != nil {
		return domain.Source{}, false
	}
	src, err := uc.SourceByID(ctx, id)
	if err != nil {
		return domain.Source{}, false
	}
	uc.mu.RLock()
	_, ok := uc.failed[src.CacheKey()]
	uc.mu.RUnlock()
	return src, ok
}

func (uc *PipelineUseCase) transition(doc *domain.ProcessedDocument, next domain.ProcessingStatus) {
	if !doc.ProcessingStatus.CanTransition(next) {
		uc.logger.Warn("invalid_status_transition", "name", doc.Name, "from", doc.ProcessingStatus, "to", next)
	}
	doc.ProcessingStatus = next
}

func (uc *PipelineUseCase) publish(ctx context.Context, eventType domain.EventType, doc domain.ProcessedDocument) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, domain.DocumentEvent{Type: eventType, Document: doc}); err != nil {
		uc.logger.Warn("document_event_publish_failed", "type", eventType, "name", doc.Name, "error", err)
	}
}

func sourceAt(sources []domain.Source, id string) (domain.Source, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || idx < 1 || idx > len(sources) {
		return domain.Source{}, domain.WrapError(domain.ErrDocumentNotFound, "resolve document id", fmt.Errorf("document id %q not found", id))
	}
	return sources[idx-1], nil
}

func snippetOf(text string) string {
	return textproc.FirstSentences(text, snippetSentences)
}

type noopObserver struct{}

func (noopObserver) StartDocument() {}

func (noopObserver) FinishDocument(time.Duration, error) {}
