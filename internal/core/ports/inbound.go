package ports

import (
	"context"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

// DocumentPipeline is the inbound contract for discovery, processing and curation.
type DocumentPipeline interface {
	Discover(ctx context.Context) ([]domain.Source, error)
	Process(ctx context.Context, src domain.Source) (domain.ProcessedDocument, error)
	IngestAll(ctx context.Context, sources []domain.Source) []domain.ProcessedDocument
	Documents() []domain.ProcessedDocument
	SetCategory(ctx context.Context, id, category string) (domain.ProcessedDocument, error)
	Reprocess(ctx context.Context, id string) (domain.ProcessedDocument, error)
}

// QuestionAnswerer resolves free-text questions against document content.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question, docID string) (*domain.QAResponse, error)
}

// DocumentSearcher is the read side of the search index.
type DocumentSearcher interface {
	Search(query string, filter domain.SearchFilter) []domain.SearchResult
	SemanticSearch(ctx context.Context, query string, topK int) []domain.SearchResult
}
