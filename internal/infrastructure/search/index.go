package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
)

const (
	snippetContext  = 100
	snippetFallback = 200
	remoteTimeout   = 30 * time.Second
)

// Index is the in-process keyword index. Added documents are also pushed to
// the semantic service in the background; semantic queries fall back to the
// keyword index whenever that service fails.
type Index struct {
	semantic ports.SemanticIndex
	logger   *slog.Logger

	mu   sync.RWMutex
	docs []domain.IndexedDocument
	pos  map[string]int

	pending sync.WaitGroup
}

func New(semantic ports.SemanticIndex, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		semantic: semantic,
		logger:   logger,
		pos:      make(map[string]int),
	}
}

func (i *Index) AddDocument(doc domain.IndexedDocument) {
	i.AddDocuments([]domain.IndexedDocument{doc})
}

// AddDocuments stores docs locally and schedules best-effort remote indexing.
// A document whose ID is already present replaces the earlier entry in place.
func (i *Index) AddDocuments(docs []domain.IndexedDocument) {
	if len(docs) == 0 {
		return
	}

	i.mu.Lock()
	for _, doc := range docs {
		if at, ok := i.pos[doc.ID]; ok && doc.ID != "" {
			i.docs[at] = doc
			continue
		}
		i.pos[doc.ID] = len(i.docs)
		i.docs = append(i.docs, doc)
	}
	i.mu.Unlock()

	if i.semantic == nil {
		return
	}
	batch := append([]domain.IndexedDocument(nil), docs...)
	i.pending.Add(1)
	go func() {
		defer i.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := i.semantic.Index(ctx, batch); err != nil {
			i.logger.Warn("semantic_index_failed", "documents", len(batch), "error", err)
		}
	}()
}

// Flush waits for scheduled remote indexing to finish.
func (i *Index) Flush() {
	i.pending.Wait()
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

func (i *Index) Search(query string, filter domain.SearchFilter) []domain.SearchResult {
	terms := make([]string, 0, 4)
	for _, term := range strings.Split(strings.ToLower(query), " ") {
		if term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return []domain.SearchResult{}
	}

	i.mu.RLock()
	docs := append([]domain.IndexedDocument(nil), i.docs...)
	i.mu.RUnlock()

	out := make([]domain.SearchResult, 0, len(docs))
	for _, doc := range docs {
		if filter.Category != "" && !strings.EqualFold(doc.Category, filter.Category) {
			continue
		}
		lower := strings.ToLower(doc.Text)
		relevance := 0
		for _, term := range terms {
			relevance += strings.Count(lower, term)
		}
		if relevance == 0 {
			continue
		}
		out = append(out, domain.SearchResult{
			ID:             doc.ID,
			Name:           doc.Name,
			Category:       doc.Category,
			Confidence:     doc.Confidence,
			RelevanceScore: float64(relevance),
			Snippet:        Snippet(doc.Text, query),
			Path:           doc.Path,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].RelevanceScore > out[b].RelevanceScore
	})
	return out
}

// SemanticSearch never fails: any remote error yields the keyword results.
func (i *Index) SemanticSearch(ctx context.Context, query string, topK int) []domain.SearchResult {
	if i.semantic == nil {
		return i.Search(query, domain.SearchFilter{})
	}
	results, err := i.semantic.Search(ctx, query, topK)
	if err != nil {
		i.logger.Warn("semantic_search_fallback", "error", err)
		return i.Search(query, domain.SearchFilter{})
	}
	return results
}

// Snippet returns about 100 characters either side of the first
// case-insensitive occurrence of query, or the opening 200 characters.
func Snippet(text, query string) string {
	runes := []rune(text)
	needle := []rune(strings.TrimSpace(query))
	if at := indexFold(runes, needle); len(needle) > 0 && at >= 0 {
		start := at - snippetContext
		if start < 0 {
			start = 0
		}
		end := at + len(needle) + snippetContext
		if end > len(runes) {
			end = len(runes)
		}
		out := string(runes[start:end])
		if start > 0 {
			out = "..." + out
		}
		if end < len(runes) {
			out += "..."
		}
		return out
	}

	if len(runes) <= snippetFallback {
		return text
	}
	return string(runes[:snippetFallback]) + "..."
}

func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
