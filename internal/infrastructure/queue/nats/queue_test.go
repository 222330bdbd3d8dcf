package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

func TestDecodeSourceMessage(t *testing.T) {
	msg, err := DecodeSourceMessage([]byte(`{"source":{"name":"a.pdf","path":"/data/a.pdf"},"discoveredAt":"2026-01-02T03:04:05Z"}`))
	if err != nil {
		t.Fatalf("DecodeSourceMessage() error = %v", err)
	}
	if msg.Source.CacheKey() != "/data/a.pdf:a.pdf" || msg.DiscoveredAt.Year() != 2026 {
		t.Fatalf("unexpected message %+v", msg)
	}

	if _, err := DecodeSourceMessage([]byte(`{"source":{"name":"a.pdf"}}`)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := DecodeSourceMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClassifyPublishError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "closed connection", err: fmt.Errorf("publish: %w", nats.ErrConnectionClosed), retryable: true, record: true},
		{name: "reconnecting", err: nats.ErrConnectionReconnecting, retryable: true, record: true},
		{name: "cancelled", err: context.Canceled},
		{name: "oversized payload", err: nats.ErrMaxPayload},
		{name: "unknown", err: errors.New("boom"), record: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifyPublishError(tt.err)
			if class.Retryable != tt.retryable || class.RecordFailure != tt.record {
				t.Fatalf("classifyPublishError(%v) = %+v", tt.err, class)
			}
		})
	}
}

func TestPublishError(t *testing.T) {
	if err := publishError("documents.processed", fmt.Errorf("publish: %w", nats.ErrTimeout)); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := publishError("documents.processed", nats.ErrMaxPayload); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	plain := errors.New("boom")
	if got := publishError("documents.processed", plain); got != plain {
		t.Fatalf("unclassified error must pass through, got %v", got)
	}
	if publishError("documents.processed", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
