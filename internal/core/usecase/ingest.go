package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
)

// IngestUseCase starts ingestion of every discovered source. With a queue the
// sources are handed to workers; otherwise a single background run processes
// them in-process.
type IngestUseCase struct {
	pipeline ports.DocumentPipeline
	queue    ports.SourceQueue
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewIngestUseCase(pipeline ports.DocumentPipeline, queue ports.SourceQueue, logger *slog.Logger) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		pipeline: pipeline,
		queue:    queue,
		logger:   logger,
	}
}

// Start returns the number of sources scheduled. A second call while an
// in-process run is active fails with ErrTemporary.
func (uc *IngestUseCase) Start(ctx context.Context) (int, error) {
	sources, err := uc.pipeline.Discover(ctx)
	if err != nil {
		return 0, err
	}
	if uc.queue != nil {
		return uc.publish(ctx, sources)
	}

	uc.mu.Lock()
	if uc.running {
		uc.mu.Unlock()
		return 0, domain.WrapError(domain.ErrTemporary, "start ingest", errors.New("ingestion already running"))
	}
	uc.running = true
	uc.done = make(chan struct{})
	done := uc.done
	uc.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			uc.mu.Lock()
			uc.running = false
			uc.mu.Unlock()
			close(done)
		}()
		docs := uc.pipeline.IngestAll(runCtx, sources)
		failed := 0
		for _, doc := range docs {
			if doc.ProcessingStatus == domain.StatusError {
				failed++
			}
		}
		uc.logger.Info("ingest_finished", "documents", len(docs), "failed", failed)
	}()
	return len(sources), nil
}

// Wait blocks until the current in-process run finishes.
func (uc *IngestUseCase) Wait() {
	uc.mu.Lock()
	done := uc.done
	uc.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (uc *IngestUseCase) publish(ctx context.Context, sources []domain.Source) (int, error) {
	for i, src := range sources {
		if err := uc.queue.PublishSourceDiscovered(ctx, src); err != nil {
			return i, fmt.Errorf("publish source %s: %w", src.Name, err)
		}
	}
	uc.logger.Info("ingest_published", "sources", len(sources))
	return len(sources), nil
}
