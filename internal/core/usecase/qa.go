package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/textproc"
)

const (
	qaSemanticTopK   = 3
	qaMaxSnippets    = 5
	qaMinSentenceLen = 20
)

var questionWords = map[string]struct{}{
	"what": {}, "who": {}, "whom": {}, "whose": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "which": {},
}

type QAUseCase struct {
	discovery ports.SourceDiscovery
	extractor ports.TextExtractor
	semantic  ports.SemanticIndex
	logger    *slog.Logger
}

// NewQAUseCase wires the resolver. semantic may be nil, in which case
// questions without a document id cannot be answered.
func NewQAUseCase(
	discovery ports.SourceDiscovery,
	extractor ports.TextExtractor,
	semantic ports.SemanticIndex,
	logger *slog.Logger,
) *QAUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QAUseCase{
		discovery: discovery,
		extractor: extractor,
		semantic:  semantic,
		logger:    logger,
	}
}

func (uc *QAUseCase) Ask(ctx context.Context, question, docID string) (*domain.QAResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask question", errors.New("missing question"))
	}

	target, err := uc.target(ctx, question, docID)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractor.ExtractFullText(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("extract target document: %w", err)
	}

	snippets := rankSentences(text, question)
	answer := domain.NoAnswerFound
	if len(snippets) > 0 {
		parts := make([]string, len(snippets))
		for i, s := range snippets {
			parts[i] = s.Sentence
		}
		answer = strings.Join(parts, " ")
	}

	return &domain.QAResponse{
		Question: question,
		Answer:   answer,
		Snippets: snippets,
		Source:   target,
	}, nil
}

func (uc *QAUseCase) target(ctx context.Context, question, docID string) (string, error) {
	if strings.TrimSpace(docID) != "" {
		sources, err := uc.discovery.Discover(ctx)
		if err != nil {
			return "", fmt.Errorf("discover sources: %w", err)
		}
		src, err := sourceAt(sources, docID)
		if err != nil {
			return "", err
		}
		return src.Path, nil
	}

	if uc.semantic == nil {
		return "", domain.WrapError(domain.ErrDocumentNotFound, "ask question", errors.New("no target document found"))
	}
	results, err := uc.semantic.Search(ctx, question, qaSemanticTopK)
	if err != nil {
		uc.logger.Warn("qa_semantic_lookup_failed", "error", err)
		return "", domain.WrapError(domain.ErrDocumentNotFound, "ask question", fmt.Errorf("no target document found: %w", err))
	}
	if len(results) == 0 || results[0].Path == "" {
		return "", domain.WrapError(domain.ErrDocumentNotFound, "ask question", errors.New("no target document found"))
	}
	return results[0].Path, nil
}

// rankSentences scores each candidate sentence by how many question tokens
// it contains and keeps the best ones with a positive score.
func rankSentences(text, question string) []domain.ScoredSentence {
	qTokens := questionTokens(question)
	if len(qTokens) == 0 {
		return []domain.ScoredSentence{}
	}

	scored := make([]domain.ScoredSentence, 0)
	for _, raw := range textproc.SplitSentences(text) {
		sentence := textproc.CollapseWhitespace(raw)
		if utf8.RuneCountInString(sentence) <= qaMinSentenceLen {
			continue
		}
		tokens := make(map[string]struct{})
		for _, tok := range textproc.Tokenize(sentence) {
			tokens[tok] = struct{}{}
		}
		score := 0
		for _, qt := range qTokens {
			if _, ok := tokens[qt]; ok {
				score++
			}
		}
		scored = append(scored, domain.ScoredSentence{Sentence: sentence, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > qaMaxSnippets {
		scored = scored[:qaMaxSnippets]
	}
	out := make([]domain.ScoredSentence, 0, len(scored))
	for _, s := range scored {
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	return out
}

func questionTokens(question string) []string {
	out := make([]string, 0)
	for _, tok := range textproc.Tokenize(question) {
		if textproc.IsStopword(tok) {
			continue
		}
		if _, ok := questionWords[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}
