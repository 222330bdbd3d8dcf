package ports

import (
	"context"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

// EventPublisher announces per-document state changes to observers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DocumentEvent) error
}

// SourceQueue hands discovered sources to out-of-process workers.
type SourceQueue interface {
	PublishSourceDiscovered(ctx context.Context, src domain.Source) error
}
