package ports

import (
	"context"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

// SourceDiscovery lists the PDF sources available for processing, in a stable order.
type SourceDiscovery interface {
	Discover(ctx context.Context) ([]domain.Source, error)
}

// SourceFetcher reads the raw bytes behind a document reference.
type SourceFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// TextExtractor turns a document reference into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, ref string) (domain.Extraction, error)
	ExtractFullText(ctx context.Context, ref string) (string, error)
	ExtractSnippet(ctx context.Context, ref string) string
}

// DocumentClassifier ranks the fixed label set for a text. It never fails.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) []domain.LabelScore
}

// Summarizer produces a short summary. It never fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// DocumentCache memoizes processed documents by composite source key.
type DocumentCache interface {
	Get(key string) (domain.ProcessedDocument, bool)
	Put(ctx context.Context, key string, doc domain.ProcessedDocument) error
	GetOrCompute(ctx context.Context, key string, compute func(context.Context) (domain.ProcessedDocument, error)) (domain.ProcessedDocument, error)
	List() []domain.ProcessedDocument
}

// SearchIndex stores documents for keyword and semantic retrieval.
type SearchIndex interface {
	DocumentSearcher
	AddDocument(doc domain.IndexedDocument)
	AddDocuments(docs []domain.IndexedDocument)
}

// SemanticIndex is the remote embedding-based index service.
type SemanticIndex interface {
	Index(ctx context.Context, docs []domain.IndexedDocument) error
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// ZeroShotClassifier scores candidate labels with a remote model.
type ZeroShotClassifier interface {
	ZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// AbstractiveSummarizer calls a remote summarization model.
type AbstractiveSummarizer interface {
	Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error)
}

// BlobStore persists one opaque blob. Read returns nil, nil when nothing was written yet.
type BlobStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
