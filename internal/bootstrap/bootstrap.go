package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-intelligence/internal/config"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/core/usecase"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/cache"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/classifier"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/discovery"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/events"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/llm/huggingface"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/search"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/source"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/summarizer"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/vector/semantic"
	"github.com/kirillkom/document-intelligence/internal/observability/metrics"
)

const (
	CacheLocalFS  = "localfs"
	CachePostgres = "postgres"
	CacheSQLite   = "sqlite"
	CacheMemory   = "memory"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Metrics    *metrics.PipelineMetrics
	Discovery  *discovery.Chain
	Extractor  *pdftext.Extractor
	Classifier *classifier.Engine
	Summarizer *summarizer.Summarizer
	Cache      *cache.Cache
	Index      *search.Index
	Events     *events.Broker
	Queue      *nats.Queue

	Pipeline *usecase.PipelineUseCase
	QA       *usecase.QAUseCase
	Ingest   *usecase.IngestUseCase

	closeFns []func()
}

// New wires every component for one process. service labels metrics.
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	app.Metrics = metrics.NewPipelineMetrics(service)

	newExecutor := func(policy resilience.Config) *resilience.Executor {
		return resilience.NewExecutorWithLogger(policy, logger).WithStateListener(app.Metrics.SetBreakerState)
	}

	resolver := source.NewResolver(cfg.PublicBaseURL, cfg.DataDir)
	fetchExecutor := newExecutor(resilience.FetchConfig(cfg.FetchAttempts, cfg.FetchBackoff))
	fetcher := source.NewFetcher(resolver, cfg.FetchTimeout, fetchExecutor, logger)
	app.Extractor = pdftext.NewExtractor(fetcher, logger)
	app.Discovery = newDiscovery(cfg, fetcher, logger)

	lexicon := classifier.DefaultLexicon()
	if cfg.LexiconPath != "" {
		loaded, err := classifier.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		lexicon = loaded
	}
	scorer := classifier.NewKeywordScorer(lexicon)

	var (
		remoteClassifier *classifier.RemoteStrategy
		remoteSummarizer ports.AbstractiveSummarizer
	)
	if cfg.InferenceURL != "" {
		hf := huggingface.New(huggingface.Options{
			BaseURL:       cfg.InferenceURL,
			Token:         cfg.InferenceToken,
			ZeroShotModel: cfg.ZeroShotModel,
			SummaryModel:  cfg.SummaryModel,
			Timeout:       cfg.InferenceTimeout,
			RatePerSecond: cfg.InferenceRPS,
			Burst:         cfg.InferenceBurst,
			Executor:      newExecutor(resilience.InferenceConfig(cfg.InferenceBreakerOpen)),
			Logger:        logger,
		})
		remoteClassifier = classifier.NewRemoteStrategy(hf, logger)
		remoteSummarizer = hf
	}
	app.Classifier = classifier.New(remoteClassifier, scorer, app.Metrics, logger)
	app.Summarizer = summarizer.New(remoteSummarizer, app.Metrics, logger)

	var semanticIndex ports.SemanticIndex
	if cfg.SemanticURL != "" {
		semanticIndex = semantic.New(cfg.SemanticURL, cfg.SemanticTimeout, newExecutor(resilience.InferenceConfig(cfg.InferenceBreakerOpen)))
	}
	app.Index = search.New(semanticIndex, logger)

	store, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Cache = cache.New(ctx, store, app.Metrics, logger)

	app.Events = events.NewBroker(logger)
	publishers := events.Fanout{app.Events}
	var sourceQueue ports.SourceQueue
	if cfg.QueueEnabled {
		queue, err := nats.New(cfg.NATSURL, nats.Options{
			DiscoveredSubject:  cfg.NATSSubject,
			ProcessedSubject:   cfg.NATSProcessed,
			ResilienceExecutor: newExecutor(resilience.DefaultConfig()),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closeFns = append(app.closeFns, queue.Close)
		publishers = append(publishers, queue)
		sourceQueue = queue
	}

	app.Pipeline = usecase.NewPipelineUseCase(usecase.PipelineOptions{
		Discovery:  app.Discovery,
		Extractor:  app.Extractor,
		Classifier: app.Classifier,
		Summarizer: app.Summarizer,
		Cache:      app.Cache,
		Index:      app.Index,
		Events:     publishers,
		Observer:   app.Metrics,
		BatchSize:  cfg.IngestBatch,
		Logger:     logger,
	})
	app.QA = usecase.NewQAUseCase(app.Discovery, app.Extractor, semanticIndex, logger)
	app.Ingest = usecase.NewIngestUseCase(app.Pipeline, sourceQueue, logger)

	warmed := app.Pipeline.Warm()
	logger.Info("bootstrap_ready", "service", service, "cache_backend", cfg.CacheBackend, "cached_documents", warmed, "queue", cfg.QueueEnabled)

	ok = true
	return app, nil
}

func (a *App) openStore(ctx context.Context) (ports.BlobStore, error) {
	cfg := a.Config
	switch cfg.CacheBackend {
	case CacheLocalFS, "":
		store, err := localfs.New(cfg.CachePath, cache.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("init cache storage: %w", err)
		}
		return store, nil
	case CachePostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		store := postgres.NewCacheStore(db, cache.StorageKey)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	case CacheSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, cache.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = store.Close() })
		return store, nil
	case CacheMemory:
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// newDiscovery orders listers from most to least explicit: a manifest, a
// listing page, the data directory, then the configured static names.
func newDiscovery(cfg config.Config, fetcher ports.SourceFetcher, logger *slog.Logger) *discovery.Chain {
	var listers []discovery.Lister
	if cfg.ManifestPath != "" {
		listers = append(listers, discovery.NewManifestSource(cfg.ManifestPath, fetcher))
	}
	if cfg.ListingURL != "" {
		listers = append(listers, discovery.NewListingSource(cfg.ListingURL, cfg.FetchTimeout))
	}
	if cfg.DataDir != "" {
		listers = append(listers, discovery.NewDirectorySource(cfg.DataDir))
	}
	if len(cfg.StaticSources) > 0 {
		listers = append(listers, discovery.NewStaticSource(cfg.StaticSources))
	}
	return discovery.NewChain(logger, listers...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	if a.Index != nil {
		a.Index.Flush()
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
