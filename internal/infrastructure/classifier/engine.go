package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/observability/metrics"
)

const strongBoost = 1.5

// Engine runs its strategies in order and merges every available outcome by
// per-label maximum. When nothing produces a signal the result is Other.
type Engine struct {
	strategies []Strategy
	scorer     *KeywordScorer
	metrics    *metrics.PipelineMetrics
	logger     *slog.Logger
}

func NewEngine(scorer *KeywordScorer, pipelineMetrics *metrics.PipelineMetrics, logger *slog.Logger, strategies ...Strategy) *Engine {
	if scorer == nil {
		scorer = NewKeywordScorer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		strategies: strategies,
		scorer:     scorer,
		metrics:    pipelineMetrics,
		logger:     logger,
	}
}

// New builds the standard chain: remote zero-shot (when configured) then keywords.
func New(remote *RemoteStrategy, scorer *KeywordScorer, pipelineMetrics *metrics.PipelineMetrics, logger *slog.Logger) *Engine {
	if scorer == nil {
		scorer = NewKeywordScorer(nil)
	}
	strategies := make([]Strategy, 0, 2)
	if remote != nil {
		strategies = append(strategies, remote)
	}
	strategies = append(strategies, NewKeywordStrategy(scorer))
	return NewEngine(scorer, pipelineMetrics, logger, strategies...)
}

func (e *Engine) Classify(ctx context.Context, text string) []domain.LabelScore {
	if strings.TrimSpace(text) == "" {
		e.metrics.RecordClassificationTier("default")
		return domain.DefaultClassification()
	}

	merged := make(map[string]float64, len(domain.Labels))
	for _, label := range domain.Labels {
		merged[string(label)] = 0
	}

	tier := "default"
	for _, strategy := range e.strategies {
		outcome := e.evaluate(ctx, strategy, text)
		if !outcome.Available {
			continue
		}
		if tier == "default" {
			tier = strategy.Name()
		}
		for label, score := range outcome.Scores {
			if _, known := merged[label]; !known {
				continue
			}
			if s := clamp(score); s > merged[label] {
				merged[label] = s
			}
		}
	}

	if allZero(merged) {
		e.metrics.RecordClassificationTier("default")
		return domain.DefaultClassification()
	}
	e.metrics.RecordClassificationTier(tier)

	for label := range e.scorer.StrongHits(text) {
		merged[label] = clamp(merged[label] * strongBoost)
	}
	return rank(merged)
}

// evaluate keeps a misbehaving strategy from taking the engine down.
func (e *Engine) evaluate(ctx context.Context, strategy Strategy, text string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("classification_strategy_panic", "strategy", strategy.Name(), "error", fmt.Sprint(r))
			out = Unavailable()
		}
	}()
	return strategy.Evaluate(ctx, text)
}

func rank(scores map[string]float64) []domain.LabelScore {
	out := make([]domain.LabelScore, 0, len(domain.Labels))
	for _, label := range domain.Labels {
		out = append(out, domain.LabelScore{Label: string(label), Score: scores[string(label)]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func allZero(scores map[string]float64) bool {
	for _, s := range scores {
		if s > 0 {
			return false
		}
	}
	return true
}
