package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/resilience"
)

const workerQueueGroup = "workers"

// SourceMessage is the payload of the discovered-documents subject.
type SourceMessage struct {
	Source       domain.Source `json:"source"`
	DiscoveredAt time.Time     `json:"discoveredAt"`
}

// Queue carries discovered sources to workers and processed-document events
// back to API instances.
type Queue struct {
	conn           *nats.Conn
	discoveredSubj string
	processedSubj  string
	executor       *resilience.Executor
	logger         *slog.Logger
	now            func() time.Time
}

type Options struct {
	DiscoveredSubject    string
	ProcessedSubject     string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	discovered := options.DiscoveredSubject
	if discovered == "" {
		discovered = "documents.discovered"
	}
	processed := options.ProcessedSubject
	if processed == "" {
		processed = "documents.processed"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("document-intelligence"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		discoveredSubj: discovered,
		processedSubj:  processed,
		executor:       options.ResilienceExecutor,
		logger:         logger,
		now:            time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishSourceDiscovered(ctx context.Context, src domain.Source) error {
	payload, err := json.Marshal(SourceMessage{Source: src, DiscoveredAt: q.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal source message: %w", err)
	}
	return q.publish(ctx, q.discoveredSubj, payload)
}

// Publish sends processed/failed document events. Processing notifications
// stay in-process.
func (q *Queue) Publish(ctx context.Context, event domain.DocumentEvent) error {
	if event.Type == domain.EventDocumentProcessing {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal document event: %w", err)
	}
	return q.publish(ctx, q.processedSubj, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return publishError(subject, err)
}

// SubscribeSourceDiscovered joins the worker queue group and blocks until ctx is done.
func (q *Queue) SubscribeSourceDiscovered(ctx context.Context, handler func(context.Context, SourceMessage) error) error {
	return q.subscribe(ctx, q.discoveredSubj, workerQueueGroup, func(handlerCtx context.Context, data []byte) error {
		msg, err := DecodeSourceMessage(data)
		if err != nil {
			return err
		}
		return handler(handlerCtx, msg)
	})
}

// SubscribeProcessed receives every processed-document event and blocks until ctx is done.
func (q *Queue) SubscribeProcessed(ctx context.Context, handler func(context.Context, domain.DocumentEvent) error) error {
	return q.subscribe(ctx, q.processedSubj, "", func(handlerCtx context.Context, data []byte) error {
		var event domain.DocumentEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("decode document event: %w", err)
		}
		return handler(handlerCtx, event)
	})
}

func (q *Queue) subscribe(ctx context.Context, subject, group string, handler func(context.Context, []byte) error) error {
	onMsg := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, msg.Data); err != nil {
			q.logger.Error("queue_handler_failed", "subject", subject, "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, onMsg)
	} else {
		sub, err = q.conn.Subscribe(subject, onMsg)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func DecodeSourceMessage(data []byte) (SourceMessage, error) {
	var msg SourceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SourceMessage{}, fmt.Errorf("decode source message: %w", err)
	}
	if msg.Source.Name == "" || msg.Source.Path == "" {
		return SourceMessage{}, domain.WrapError(domain.ErrInvalidInput, "decode source message", errors.New("source name and path are required"))
	}
	return msg, nil
}
