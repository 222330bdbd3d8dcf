package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
)

type Options struct {
	BaseURL       string
	Token         string
	ZeroShotModel string
	SummaryModel  string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Executor      *resilience.Executor
	Logger        *slog.Logger
}

// Client talks to a Hugging Face style inference API. Calls are rate limited
// and pass through a circuit breaker; they are never retried.
type Client struct {
	baseURL       string
	token         string
	zeroShotModel string
	summaryModel  string
	httpClient    *http.Client
	limiter       *rate.Limiter
	executor      *resilience.Executor
	logger        *slog.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ZeroShotModel == "" {
		opts.ZeroShotModel = "facebook/bart-large-mnli"
	}
	if opts.SummaryModel == "" {
		opts.SummaryModel = "facebook/bart-large-cnn"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		token:         strings.TrimSpace(opts.Token),
		zeroShotModel: opts.ZeroShotModel,
		summaryModel:  opts.SummaryModel,
		httpClient:    &http.Client{Timeout: opts.Timeout},
		limiter:       limiter,
		executor:      opts.Executor,
		logger:        opts.Logger,
	}
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// ZeroShot scores candidate labels. Each score is taken from the position of
// its label in the response, which may be ordered differently from the request.
func (c *Client) ZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	request := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels": labels,
		},
	}

	var raw json.RawMessage
	if err := c.call(ctx, c.zeroShotModel, "zero_shot", request, &raw); err != nil {
		return nil, err
	}

	parsed, err := decodeZeroShot(raw)
	if err != nil {
		return nil, resilience.WrapRemote("huggingface zero_shot", err)
	}

	out := make(map[string]float64, len(parsed.Labels))
	for i, label := range parsed.Labels {
		out[label] = parsed.Scores[i]
	}
	return out, nil
}

func decodeZeroShot(raw json.RawMessage) (zeroShotResponse, error) {
	var parsed zeroShotResponse
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []zeroShotResponse
		if err := json.Unmarshal(raw, &list); err != nil {
			return parsed, fmt.Errorf("decode zero_shot response: %w", err)
		}
		if len(list) == 0 {
			return parsed, errors.New("empty zero_shot response")
		}
		parsed = list[0]
	} else if err := json.Unmarshal(raw, &parsed); err != nil {
		return parsed, fmt.Errorf("decode zero_shot response: %w", err)
	}

	if len(parsed.Labels) == 0 || len(parsed.Labels) != len(parsed.Scores) {
		return parsed, fmt.Errorf("malformed zero_shot response: %d labels, %d scores", len(parsed.Labels), len(parsed.Scores))
	}
	for _, s := range parsed.Scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return parsed, errors.New("malformed zero_shot response: non-finite score")
		}
	}
	return parsed, nil
}

func (c *Client) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	request := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"min_length": minLength,
			"max_length": maxLength,
		},
	}

	var raw json.RawMessage
	if err := c.call(ctx, c.summaryModel, "summarize", request, &raw); err != nil {
		return "", err
	}
	summary, err := decodeSummary(raw)
	if err != nil {
		return "", resilience.WrapRemote("huggingface summarize", err)
	}
	return summary, nil
}

type summaryResponse struct {
	SummaryText string `json:"summary_text"`
}

// decodeSummary accepts {summary_text} or the hosted API's one-element array.
func decodeSummary(raw json.RawMessage) (string, error) {
	var parsed summaryResponse
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		var list []summaryResponse
		if err := json.Unmarshal(raw, &list); err != nil {
			return "", fmt.Errorf("decode summarize response: %w", err)
		}
		if len(list) == 0 {
			return "", nil
		}
		parsed = list[0]
	} else if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode summarize response: %w", err)
	}
	return strings.TrimSpace(parsed.SummaryText), nil
}

func (c *Client) call(ctx context.Context, model, operation string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return resilience.WrapRemote("huggingface "+operation, err)
		}
	}

	err := c.execute(ctx, operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/models/"+model, payload, out, operation)
	})
	if err != nil {
		c.logger.Debug("inference_call_failed", "operation", operation, "model", model, "error", err)
		return resilience.WrapRemote("huggingface "+operation, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, "huggingface."+operation, fn, resilience.ClassifyHTTPError)
}
