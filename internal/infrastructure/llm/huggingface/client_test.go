package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
)

func TestZeroShotLooksUpScoresByResponseLabelOrder(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/zs-model" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`[{"sequence":"x","labels":["Tech","Finance"],"scores":[0.7,0.2]}]`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL, Token: "secret", ZeroShotModel: "zs-model"})
	scores, err := client.ZeroShot(context.Background(), "budget", []string{"Finance", "Tech"})
	if err != nil {
		t.Fatalf("ZeroShot() error = %v", err)
	}
	if scores["Finance"] != 0.2 || scores["Tech"] != 0.7 {
		t.Fatalf("unexpected scores %v", scores)
	}
	params, _ := captured["parameters"].(map[string]any)
	if labels, _ := params["candidate_labels"].([]any); len(labels) != 2 {
		t.Fatalf("expected candidate labels in request, got %v", captured)
	}
}

func TestZeroShotRejectsMalformedResponse(t *testing.T) {
	bodies := []string{
		`{"labels":["Finance"],"scores":[]}`,
		`{"labels":[],"scores":[]}`,
		`[]`,
		`"loading"`,
	}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := New(Options{BaseURL: server.URL})
		_, err := client.ZeroShot(context.Background(), "x", []string{"Finance"})
		server.Close()
		if !domain.IsKind(err, domain.ErrRemoteService) {
			t.Fatalf("body %s: expected remote service error, got %v", body, err)
		}
	}
}

func TestSummarizeSendsLengthBounds(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "object", body: `{"summary_text":"  short summary "}`},
		{name: "array", body: `[{"summary_text":"  short summary "}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&captured)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(Options{BaseURL: server.URL})
			got, err := client.Summarize(context.Background(), "long text", 30, 130)
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if got != "short summary" {
				t.Fatalf("unexpected summary %q", got)
			}
			params, _ := captured["parameters"].(map[string]any)
			if params["min_length"] != float64(30) || params["max_length"] != float64(130) {
				t.Fatalf("unexpected parameters %v", params)
			}
		})
	}
}

func TestSummarizeRejectsUnexpectedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}).Summarize(context.Background(), "text", 30, 130)
	if !domain.IsKind(err, domain.ErrRemoteService) {
		t.Fatalf("expected remote service error, got %v", err)
	}
}

func TestStatusErrorIsTemporaryAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Options{
		BaseURL:  server.URL,
		Executor: resilience.NewExecutor(resilience.InferenceConfig(time.Second)),
	})
	_, err := client.Summarize(context.Background(), "text", 30, 130)
	if !domain.IsKind(err, domain.ErrRemoteService) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary remote error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model loading") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", calls.Load())
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"summary_text":"ok"}]`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL, RatePerSecond: 0.001, Burst: 1})
	if _, err := client.Summarize(context.Background(), "a", 1, 2); err != nil {
		t.Fatalf("first call should pass the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.Summarize(ctx, "b", 1, 2); !domain.IsKind(err, domain.ErrRemoteService) {
		t.Fatalf("expected limiter wait to fail as remote error, got %v", err)
	}
}

func TestStatusErrorUsesAPIErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model facebook/bart-large-mnli is currently loading","estimated_time":20.4}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	_, err := client.ZeroShot(context.Background(), "text", []string{"Finance"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "is currently loading (ready in ~20s)") || strings.Contains(err.Error(), "estimated_time") {
		t.Fatalf("unexpected error text %v", err)
	}
}
