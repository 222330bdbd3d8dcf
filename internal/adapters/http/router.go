package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/document-intelligence/internal/config"
	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/document-intelligence/internal/observability/metrics"
)

const (
	serviceName        = "api"
	defaultSemanticTop = 5
	maxJSONBody        = 1 << 20
)

// Pipeline is the part of the document pipeline the HTTP layer drives.
type Pipeline interface {
	ports.DocumentPipeline
	SourceByID(ctx context.Context, id string) (domain.Source, error)
}

type IngestStarter interface {
	Start(ctx context.Context) (int, error)
}

// EventSubscriber hands out document event streams. *events.Broker satisfies it.
type EventSubscriber interface {
	Subscribe(buffer int) (<-chan domain.DocumentEvent, func())
}

type RouterDeps struct {
	Config    config.Config
	Pipeline  Pipeline
	QA        ports.QuestionAnswerer
	Search    ports.DocumentSearcher
	Ingest    IngestStarter
	Events    EventSubscriber
	Metrics   *metrics.HTTPServerMetrics
	Gatherers []prometheus.Gatherer
	Logger    *slog.Logger
}

type Router struct {
	cfg       config.Config
	pipeline  Pipeline
	qa        ports.QuestionAnswerer
	search    ports.DocumentSearcher
	ingest    IngestStarter
	events    EventSubscriber
	metrics   *metrics.HTTPServerMetrics
	gatherers []prometheus.Gatherer
	logger    *slog.Logger
	validator func(http.Handler) http.Handler
}

func NewRouter(deps RouterDeps) (*Router, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewHTTPServerMetrics(serviceName)
	}
	rt := &Router{
		cfg:       deps.Config,
		pipeline:  deps.Pipeline,
		qa:        deps.QA,
		search:    deps.Search,
		ingest:    deps.Ingest,
		events:    deps.Events,
		metrics:   deps.Metrics,
		gatherers: deps.Gatherers,
		logger:    deps.Logger,
	}
	if deps.Config.OpenAPIValidation {
		doc, err := OpenAPIDocument()
		if err != nil {
			return nil, err
		}
		validator, err := openAPIValidationMiddleware(doc)
		if err != nil {
			return nil, err
		}
		rt.validator = validator
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(corsMiddleware)

	r.Get("/healthz", rt.healthz)
	r.Handle("/metrics", rt.metrics.Handler(rt.gatherers...))
	if rt.cfg.DataDir != "" {
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(rt.cfg.DataDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, func() {
			rt.metrics.RecordRateLimited(serviceName)
		}))
		if rt.validator != nil {
			r.Use(rt.validator)
		}

		r.Get("/documents", rt.listDocuments)
		r.Get("/processed", rt.listProcessed)
		r.Get("/documents/{id}/processed", rt.processDocument)
		r.Put("/documents/{id}/category", rt.setCategory)
		r.Post("/documents/{id}/reprocess", rt.reprocessDocument)
		r.Post("/qa", rt.askQuestion)
		r.Post("/ingest", rt.startIngest)
		r.Get("/search", rt.searchDocuments)
		r.Get("/search/semantic", rt.semanticSearch)
		r.Get("/export.xlsx", rt.exportDocuments)
		if rt.events != nil {
			r.Get("/events", rt.streamEvents)
		}
	})

	limited := backpressureMiddleware(r, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	// Event streams stay open and must not hold an in-flight slot.
	h := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == eventsPath {
			r.ServeHTTP(w, req)
			return
		}
		limited.ServeHTTP(w, req)
	})
	return rt.metrics.Middleware(serviceName, h)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type documentItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := rt.pipeline.Discover(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read documents", err)
		return
	}
	items := make([]documentItem, len(sources))
	for i, src := range sources {
		items[i] = documentItem{ID: strconv.Itoa(i + 1), Name: src.Name, Path: src.Path, Type: "pdf"}
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) listProcessed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.pipeline.Documents())
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	src, err := rt.pipeline.SourceByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	if rt.cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.cfg.ProcessTimeout)
		defer cancel()
	}
	doc, err := rt.pipeline.Process(ctx, src)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) setCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := rt.pipeline.SetCategory(r.Context(), chi.URLParam(r, "id"), req.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) reprocessDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.pipeline.Reprocess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID    string `json:"docId"`
		Question string `json:"question"`
	}
	if !decodeJSON(w, r, &req) {
		rt.metrics.RecordQA(serviceName, "invalid")
		return
	}

	resp, err := rt.qa.Ask(r.Context(), req.Question, req.DocID)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.metrics.RecordQA(serviceName, qaOutcome(status))
		if status == http.StatusInternalServerError {
			rt.logger.Error("qa_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
			writeError(w, status, "QA failed", err)
			return
		}
		writeError(w, status, errorMessage(status), err)
		return
	}

	outcome := "answered"
	if resp.Answer == domain.NoAnswerFound {
		outcome = "no_answer"
	}
	rt.metrics.RecordQA(serviceName, outcome)
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) startIngest(w http.ResponseWriter, r *http.Request) {
	if rt.ingest == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured", nil)
		return
	}
	queued, err := rt.ingest.Start(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var query, category string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "category", r.URL.Query(), &category); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}

	results := rt.search.Search(query, domain.SearchFilter{Category: category})
	if results == nil {
		results = []domain.SearchResult{}
	}
	rt.metrics.RecordSearch(serviceName, "keyword", len(results))
	writeJSON(w, http.StatusOK, results)
}

func (rt *Router) semanticSearch(w http.ResponseWriter, r *http.Request) {
	var query string
	topK := defaultSemanticTop
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &topK); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}
	if topK <= 0 {
		topK = defaultSemanticTop
	}

	results := rt.search.SemanticSearch(r.Context(), query, topK)
	if results == nil {
		results = []domain.SearchResult{}
	}
	rt.metrics.RecordSearch(serviceName, "semantic", len(results))
	writeJSON(w, http.StatusOK, results)
}

func (rt *Router) exportDocuments(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, rt.pipeline.Documents()); err != nil {
		rt.logger.Error("export_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed", err)
		return
	}
	filename := fmt.Sprintf("documents-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", err)
		return false
	}
	return true
}

func qaOutcome(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Authorization", "Accept", requestIDHeader}, ", "))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
