package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
)

// apiError is the body the inference API sends with non-2xx answers, e.g. while
// a model is still loading.
type apiError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("huggingface %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// statusError keeps the API's own message when the body is the usual error JSON.
func statusError(operation string, resp *http.Response) error {
	statusErr := resilience.NewHTTPStatusError("huggingface", operation, resp)
	var parsed apiError
	if json.Unmarshal([]byte(statusErr.Body), &parsed) == nil && parsed.Error != "" {
		statusErr.Body = parsed.Error
		if parsed.EstimatedTime > 0 {
			statusErr.Body += fmt.Sprintf(" (ready in ~%.0fs)", parsed.EstimatedTime)
		}
	}
	return statusErr
}
