package classifier

import (
	"context"
	"log/slog"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/textproc"
)

const remoteExcerptChars = 500

// Outcome is either a set of label scores or Unavailable.
type Outcome struct {
	Scores    map[string]float64
	Available bool
}

func Unavailable() Outcome {
	return Outcome{}
}

func Scores(scores map[string]float64) Outcome {
	return Outcome{Scores: scores, Available: true}
}

type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, text string) Outcome
}

// RemoteStrategy asks a zero-shot model about a short excerpt of the text.
type RemoteStrategy struct {
	client ports.ZeroShotClassifier
	logger *slog.Logger
}

func NewRemoteStrategy(client ports.ZeroShotClassifier, logger *slog.Logger) *RemoteStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteStrategy{client: client, logger: logger}
}

func (s *RemoteStrategy) Name() string { return "remote" }

func (s *RemoteStrategy) Evaluate(ctx context.Context, text string) Outcome {
	if s.client == nil {
		return Unavailable()
	}
	excerpt := textproc.Excerpt(text, remoteExcerptChars)
	scores, err := s.client.ZeroShot(ctx, excerpt, domain.LabelStrings())
	if err != nil {
		s.logger.Debug("zero_shot_unavailable", "error", err)
		return Unavailable()
	}
	if len(scores) == 0 {
		return Unavailable()
	}
	return Scores(scores)
}

// KeywordStrategy wraps the lexicon scorer. It is always available.
type KeywordStrategy struct {
	scorer *KeywordScorer
}

func NewKeywordStrategy(scorer *KeywordScorer) *KeywordStrategy {
	return &KeywordStrategy{scorer: scorer}
}

func (s *KeywordStrategy) Name() string { return "keyword" }

func (s *KeywordStrategy) Evaluate(_ context.Context, text string) Outcome {
	return Scores(s.scorer.Score(text))
}
