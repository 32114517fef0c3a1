package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medteam/internal/adapters/ai"
	"medteam/internal/adapters/config"
	"medteam/internal/adapters/errors/noop"
	"medteam/internal/adapters/errors/sentry"
	"medteam/internal/adapters/kafka"
	"medteam/internal/adapters/postgres"
	"medteam/internal/adapters/redis"
	"medteam/internal/agents"
	"medteam/internal/api/health"
	"medteam/internal/domain/consultation"
	"medteam/internal/events"
	"medteam/internal/metrics"
	"medteam/internal/pipeline"
	"medteam/internal/prompts"
	pgrepo "medteam/internal/repository/postgres"
	"medteam/internal/sink"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medteam: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if err := initLogger(cfg); err != nil {
		return errors.Wrap(err, "failed to init logger")
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)
	defer flushTracker(errorTracker, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthHandler := health.New(cfg.App.Name)

	p, cleanup, err := initPipeline(ctx, cfg, errorTracker, healthHandler, log)
	if err != nil {
		return err
	}
	defer cleanup()

	stopServer := startStatusServer(cfg.Metrics.Addr, healthHandler, log)
	defer stopServer()

	result, err := p.Run(ctx)
	if err != nil {
		log.ErrorWithContext(ctx, err, nil)
		return err
	}

	log.Infof("Run %s finished with status %s", result.ID, result.Status)
	return nil
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if cfg.ErrorTracking.SentryDSN == "" {
		log.Debug("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Name)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func flushTracker(tracker errors.Tracker, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tracker.Flush(ctx); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}
}

// startStatusServer exposes /metrics and /health while the run executes; empty addr disables it
func startStatusServer(addr string, healthHandler *health.Handler, log *logger.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	healthHandler.Routes(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("Metrics server stopped: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// initPipeline builds the inference stack and the optional run recorders
func initPipeline(ctx context.Context, cfg *config.Config, tracker errors.Tracker, healthHandler *health.Handler, log *logger.Logger) (*pipeline.Pipeline, func(), error) {
	provider, err := ai.NewChatProvider(ctx, cfg.AI)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create inference provider")
	}

	builder, err := prompts.NewDefaultBuilder(cfg.Pipeline.TemplatesDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load prompt templates")
	}

	opts := agents.DefaultInferenceOptions(cfg.AI.Model)
	opts.MaxTokens = cfg.AI.MaxTokens

	worker, err := agents.NewWorker(provider, builder, opts)
	if err != nil {
		return nil, nil, err
	}
	coordinator, err := agents.NewCoordinator(worker, cfg.Pipeline.PoolSize)
	if err != nil {
		return nil, nil, err
	}
	synthesizer, err := agents.NewSynthesizer(worker)
	if err != nil {
		return nil, nil, err
	}

	recorders, cleanup := initRecorders(ctx, cfg, healthHandler, log)

	p, err := pipeline.New(pipeline.Deps{
		Coordinator: coordinator,
		Synthesizer: synthesizer,
		Sink:        sink.NewFileSink(),
		Tracker:     tracker,
		Recorders:   recorders,
	}, pipeline.Options{
		ReportPath: cfg.Pipeline.ReportPath,
		OutputPath: cfg.Pipeline.OutputPath,
		Provider:   provider.Name(),
		Model:      cfg.AI.Model,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return p, cleanup, nil
}

// initRecorders connects the configured run history backends. A backend that
// cannot be reached is skipped with a warning.
func initRecorders(ctx context.Context, cfg *config.Config, healthHandler *health.Handler, log *logger.Logger) ([]consultation.Recorder, func()) {
	var (
		recorders []consultation.Recorder
		closers   []func() error
	)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if cfg.Postgres.Enabled() {
		if client, err := postgres.NewClient(connectCtx, cfg.Postgres); err != nil {
			log.Warnf("Run history disabled, postgres unavailable: %v", err)
		} else {
			repo := pgrepo.NewConsultationRepository(client.DB())
			if err := repo.EnsureSchema(connectCtx); err != nil {
				log.Warnf("Run history disabled: %v", err)
				_ = client.Close()
			} else {
				recorders = append(recorders, repo)
				closers = append(closers, client.Close)
				healthHandler.Register("postgres", client.Health)
			}
		}
	}

	if cfg.Redis.Enabled() {
		if client, err := redis.NewClient(connectCtx, cfg.Redis); err != nil {
			log.Warnf("Run archive disabled, redis unavailable: %v", err)
		} else {
			recorders = append(recorders, redis.NewArchive(client, cfg.Redis.TTL))
			closers = append(closers, client.Close)
			healthHandler.Register("redis", client.Health)
		}
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = kafka.TopicConsultationCompleted
		}
		recorders = append(recorders, events.NewPublisher(producer, topic))
		closers = append(closers, producer.Close)
	}

	for _, r := range recorders {
		log.Infof("Run recorder enabled: %s", r.Name())
	}

	return recorders, func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warnf("Failed to close recorder backend: %v", err)
			}
		}
	}
}
