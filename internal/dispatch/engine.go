package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gptb70564-code/cw-bot/shared/rabbitmq"
)

// Config holds engine configuration.
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Deduper       Deduper
	Store         Store
	Generator     Generator
	Submitter     Submitter
	ConsumerTag   string
	PrefetchCount int
	MinInterval   time.Duration
	PollInterval  time.Duration
	DedupeTTL     time.Duration
	HourCap       int64
}

// Engine ties the pieces together: it consumes new-posting events, runs the
// matcher, feeds the dispatch queue, and owns the single dispatcher loop.
type Engine struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	deduper      Deduper
	store        Store

	queue      *Queue
	dispatcher *Dispatcher

	consumerTag   string
	prefetchCount int
	dedupeTTL     time.Duration

	wg sync.WaitGroup
}

// NewEngine creates the engine and wires queue, dispatcher, and
// orchestrator.
func NewEngine(cfg *Config) *Engine {
	queue := NewQueue()

	orchestrator := NewOrchestrator(&OrchestratorConfig{
		Logger:         cfg.Logger,
		Store:          cfg.Store,
		Generator:      cfg.Generator,
		Submitter:      cfg.Submitter,
		DefaultHourCap: cfg.HourCap,
	})

	dispatcher := NewDispatcher(&DispatcherConfig{
		Logger:       cfg.Logger,
		Queue:        queue,
		Runner:       orchestrator,
		MinInterval:  cfg.MinInterval,
		PollInterval: cfg.PollInterval,
	})

	dedupeTTL := cfg.DedupeTTL
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}

	return &Engine{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		deduper:       cfg.Deduper,
		store:         cfg.Store,
		queue:         queue,
		dispatcher:    dispatcher,
		consumerTag:   cfg.ConsumerTag,
		prefetchCount: cfg.PrefetchCount,
		dedupeTTL:     dedupeTTL,
	}
}

// Queue exposes the dispatch queue so additional producers can enqueue
// work items directly.
func (e *Engine) Queue() *Queue {
	return e.queue
}

// Start begins consuming posting events and dispatching bids. It blocks
// until ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	deliveries, err := e.setupConsumer()
	if err != nil {
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.dispatcher.Run(ctx); err != nil {
			e.logger.Error("Dispatcher loop exited with error",
				slog.Any("error", err),
			)
		}
	}()

	e.logger.Info("Dispatch engine started",
		slog.String("consumer_tag", e.consumerTag),
		slog.Int("prefetch_count", e.prefetchCount),
	)

	e.consumeLoop(ctx, deliveries)

	return nil
}

// Stop waits for the dispatcher goroutine to drain after the context driving
// Start has been canceled.
func (e *Engine) Stop() {
	e.logger.Info("Stopping dispatch engine...")
	e.wg.Wait()
	e.logger.Info("Dispatch engine stopped",
		slog.Int("items_left_in_queue", e.queue.Len()),
	)
}
