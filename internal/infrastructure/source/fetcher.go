package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
)

const maxDocumentBytes = 64 << 20

// Fetcher loads document bytes from any reference the Resolver accepts.
// Remote loads are retried on transient failures.
type Fetcher struct {
	resolver   *Resolver
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
	maxBytes   int64
}

func NewFetcher(resolver *Resolver, timeout time.Duration, executor *resilience.Executor, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		resolver:   resolver,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		logger:     logger,
		maxBytes:   maxDocumentBytes,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	loc, err := f.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}

	switch loc.Kind {
	case KindInline:
		return loc.Data, nil
	case KindLocal:
		data, err := os.ReadFile(loc.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch source", err)
			}
			return nil, fmt.Errorf("read source %s: %w", loc.Path, err)
		}
		return data, nil
	default:
		return f.fetchRemote(ctx, loc.URL)
	}
}

func (f *Fetcher) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := resilience.Do(ctx, f.executor, "source.fetch", func(callCtx context.Context) ([]byte, error) {
		return f.get(callCtx, rawURL)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		f.logger.Warn("source_fetch_failed", "url", rawURL, "error", err)
		if domain.IsKind(err, domain.ErrExtraction) {
			return nil, err
		}
		var statusErr *resilience.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch source", err)
		}
		return nil, resilience.WrapRemote("fetch source", err)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("source", "fetch", resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, domain.WrapError(domain.ErrExtraction, "fetch source", fmt.Errorf("document too large: %s exceeds %d bytes", rawURL, f.maxBytes))
	}
	return data, nil
}
