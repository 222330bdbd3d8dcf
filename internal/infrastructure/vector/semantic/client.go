package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
)

const unknownCategory = "Unknown"

// Client calls the embedding-based semantic index service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type indexItem struct {
	ID   string         `json:"id"`
	Text string         `json:"text"`
	Name string         `json:"name"`
	Path string         `json:"path"`
	Meta map[string]any `json:"meta"`
}

func (c *Client) Index(ctx context.Context, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	items := make([]indexItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, indexItem{
			ID:   doc.ID,
			Text: doc.Text,
			Name: doc.Name,
			Path: doc.Path,
			Meta: map[string]any{
				"category":   doc.Category,
				"confidence": doc.Confidence,
				"title":      doc.Title,
			},
		})
	}

	var ignored json.RawMessage
	if err := c.post(ctx, "/index", items, &ignored, "index"); err != nil {
		return resilience.WrapRemote("semantic index", err)
	}
	return nil
}

type searchResponse struct {
	Results []struct {
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Path  string         `json:"path"`
		Score float64        `json:"score"`
		Meta  map[string]any `json:"meta"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	reqBody := map[string]any{
		"q":     query,
		"top_k": topK,
	}

	var response searchResponse
	if err := c.post(ctx, "/search", reqBody, &response, "search"); err != nil {
		return nil, resilience.WrapRemote("semantic search", err)
	}

	out := make([]domain.SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		category := unknownCategory
		if v, ok := r.Meta["category"].(string); ok && v != "" {
			category = v
		}
		out = append(out, domain.SearchResult{
			ID:             r.ID,
			Name:           r.Name,
			Path:           r.Path,
			Category:       category,
			Confidence:     r.Score,
			RelevanceScore: r.Score,
		})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any, operation string) error {
	call := func(callCtx context.Context) error {
		return c.doPost(callCtx, path, payload, out, operation)
	}
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, "semantic."+operation, call, resilience.ClassifyHTTPError)
}

func (c *Client) doPost(ctx context.Context, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("semantic %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("semantic", operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
