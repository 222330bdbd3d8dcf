package summarizer

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/textproc"
	"github.com/kirillkom/document-intelligence/internal/observability/metrics"
)

const (
	EmptyInputSummary = "No text available to summarize."

	remoteInputChars  = 1000
	remoteMinLength   = 30
	remoteMaxLength   = 130
	minSentenceChars  = 20
	rawPrefixChars    = 300
	minSummarySize    = 3
	maxSummarySize    = 5
	summaryProportion = 0.2
)

// Summarizer tries the remote abstractive model first and falls back to a
// local extractive summary on any failure.
type Summarizer struct {
	remote  ports.AbstractiveSummarizer
	metrics *metrics.PipelineMetrics
	logger  *slog.Logger
}

func New(remote ports.AbstractiveSummarizer, pipelineMetrics *metrics.PipelineMetrics, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{remote: remote, metrics: pipelineMetrics, logger: logger}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return EmptyInputSummary
	}

	if s.remote != nil {
		summary, err := s.remote.Summarize(ctx, textproc.Excerpt(text, remoteInputChars), remoteMinLength, remoteMaxLength)
		if err == nil && strings.TrimSpace(summary) != "" {
			s.metrics.RecordSummaryTier("remote")
			return strings.TrimSpace(summary)
		}
		if err != nil {
			s.logger.Debug("abstractive_summary_unavailable", "error", err)
		}
	}

	s.metrics.RecordSummaryTier("extractive")
	return Extractive(text)
}

// Extractive selects the most term-dense sentences and returns them in
// document order.
func Extractive(text string) string {
	if strings.TrimSpace(text) == "" {
		return EmptyInputSummary
	}

	sentences := make([]string, 0, 16)
	for _, s := range textproc.SplitSentences(text) {
		if utf8.RuneCountInString(s) >= minSentenceChars {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return rawPrefix(text)
	}

	tokens := make([][]string, len(sentences))
	freq := make(map[string]int)
	for i, s := range sentences {
		tokens[i] = textproc.ContentTokens(s)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, toks := range tokens {
		var sum float64
		for _, tok := range toks {
			sum += float64(freq[tok])
		}
		score := 0.0
		if len(toks) > 0 {
			score = sum / math.Sqrt(float64(len(toks)))
		}
		ranked[i] = scored{index: i, score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := summarySize(len(sentences))
	picked := ranked[:n]
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].index < picked[j].index
	})

	out := make([]string, 0, n)
	for _, p := range picked {
		out = append(out, sentences[p.index])
	}
	return strings.Join(out, " ")
}

func summarySize(sentences int) int {
	n := int(math.Ceil(summaryProportion * float64(sentences)))
	if n < minSummarySize {
		n = minSummarySize
	}
	if n > maxSummarySize {
		n = maxSummarySize
	}
	if n > sentences {
		n = sentences
	}
	return n
}

func rawPrefix(text string) string {
	trimmed := strings.TrimSpace(text)
	prefix := textproc.Prefix(trimmed, rawPrefixChars)
	if len(prefix) < len(trimmed) {
		return prefix + "..."
	}
	return prefix
}
