package discovery

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

// PublicPrefix is the URL path under which PDFs are served.
const PublicPrefix = "/data/"

// Lister returns the file names one source knows about.
type Lister interface {
	Name() string
	List(ctx context.Context) ([]string, error)
}

// Chain asks each lister in turn and keeps the first non-empty answer.
type Chain struct {
	listers []Lister
	logger  *slog.Logger
}

func NewChain(logger *slog.Logger, listers ...Lister) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{listers: listers, logger: logger}
}

func (c *Chain) Discover(ctx context.Context) ([]domain.Source, error) {
	for _, l := range c.listers {
		names, err := l.List(ctx)
		if err != nil {
			c.logger.Warn("discovery_source_failed", "source", l.Name(), "error", err)
			continue
		}
		sources := toSources(names)
		if len(sources) == 0 {
			continue
		}
		c.logger.Debug("discovery_complete", "source", l.Name(), "documents", len(sources))
		return sources, nil
	}
	return []domain.Source{}, nil
}

func toSources(names []string) []domain.Source {
	seen := make(map[string]struct{}, len(names))
	out := make([]domain.Source, 0, len(names))
	for _, raw := range names {
		name := path.Base(strings.TrimSpace(raw))
		if !IsPDF(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, domain.Source{Name: name, Path: PublicPrefix + name})
	}
	return out
}

func IsPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
