package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"salestool-radar/internal/config"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
	"salestool-radar/internal/domain/ports/repository"
	"salestool-radar/internal/infra/adapters/classifier"
	"salestool-radar/internal/infra/api/apiv1"
	"salestool-radar/internal/infra/db/postgres"
	"salestool-radar/internal/infra/logging"
	"salestool-radar/internal/infra/metrics"
	red "salestool-radar/internal/infra/redis"
	"salestool-radar/internal/infra/sched"
	"salestool-radar/internal/infra/worker"
	"salestool-radar/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dev := flag.Bool("dev", false, "development mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Bool("dev", cfg.Runtime.Dev).Msg("starting salestool-radar")

	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	// Repositories
	txManager := postgres.NewTxManager(pool)
	postingRepo := postgres.NewPostingRepo(pool)
	companyRepo := postgres.NewCompanyRepoCacheDecorator(postgres.NewCompanyRepo(pool), redisClient, cfg.Redis.TTL)
	queueJobRepo := postgres.NewQueueJobRepo(pool, txManager)

	// Classifier
	cls, err := buildClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("classifier init failed")
	}
	cls = classifier.NewLimited(cls, cfg.AI.ConcurrentLimit)

	// Use cases
	dedupUC := usecase.NewDedupUseCase(companyRepo, txManager, cfg.Pipeline.SimilarityThreshold, logger)
	pipelineUC := usecase.NewPipelineUseCase(postingRepo, dedupUC, cls, cfg.Pipeline.CallDelay, logger)
	queueUC := usecase.NewQueueUseCase(queueJobRepo, cfg.Queue.DefaultMaxAttempts, logger)
	companyUC := usecase.NewCompanyUseCase(companyRepo, logger)

	// Background queue workers
	workerPool := worker.NewPool(cfg.Queue.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	runner := worker.NewQueueRunner(queueJobRepo, cfg.Queue.PollInterval, logger)
	runner.Register("posting.reanalyze", reanalyzeHandler(pipelineUC))
	runner.Register("dedup.sweep", sweepHandler(companyRepo, dedupUC))
	go runner.Start(ctx, workerPool)

	// Scheduled batch trigger, disabled when auto_interval is 0.
	if cfg.Pipeline.AutoInterval > 0 {
		batchWorker := sched.NewBatchWorker(cfg.Pipeline.AutoInterval, cfg.Pipeline.BatchLimit, pipelineUC, logger)
		go func() {
			if err := batchWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("batch worker stopped")
			}
		}()
	}

	// HTTP API
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	apiv1.NewServer(pipelineUC, queueUC, dedupUC, companyUC, cfg.API.Key, logger).Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.API.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	logger.Info().Msg("bye")
}

// buildClassifier picks the first configured provider: OpenAI, then Gemini.
// Dev mode falls back to the keyword classifier so the full pipeline runs
// without credentials.
func buildClassifier(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.Classifier, error) {
	switch {
	case cfg.AI.OpenAIKey != "":
		logger.Info().Str("model", cfg.AI.Model).Msg("using OpenAI classifier")
		return classifier.NewOpenAIClassifier(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.MaxPromptTokens)
	case cfg.AI.GeminiKey != "":
		logger.Info().Msg("using Gemini classifier")
		return classifier.NewGeminiClassifier(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model)
	case cfg.Runtime.Dev:
		logger.Warn().Msg("no AI credentials; using keyword classifier")
		return classifier.NewNoopClassifier(), nil
	default:
		return nil, errors.New("no classifier credentials configured")
	}
}

// reanalyzeHandler re-runs one posting through the pipeline. A run already
// in progress fails the job; an explicit retry picks it up later.
func reanalyzeHandler(pipeline usecase.PipelineUseCase) worker.Handler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var p struct {
			PostingID string `json:"posting_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		item, err := pipeline.ProcessSingle(ctx, p.PostingID)
		if err != nil {
			return err
		}
		if item.Error != "" {
			return errors.New(item.Error)
		}
		return nil
	}
}

// sweepHandler merges exact normalized-name duplicates across the whole
// registry, keeping the oldest record of each group as the primary.
func sweepHandler(companies repository.CompanyRepository, dedup usecase.DedupUseCase) worker.Handler {
	return func(ctx context.Context, _ json.RawMessage) error {
		active, err := companies.ListActive(ctx, repository.NoTX)
		if err != nil {
			return fmt.Errorf("list active companies: %w", err)
		}

		// ListActive is ordered oldest first, so the first record seen per
		// name is the group's primary.
		groups := make(map[string][]*model.IdentifiedCompany)
		for _, c := range active {
			groups[c.NormalizedName] = append(groups[c.NormalizedName], c)
		}

		var failed int
		for _, group := range groups {
			if len(group) < 2 {
				continue
			}
			dupIDs := make([]string, 0, len(group)-1)
			for _, c := range group[1:] {
				dupIDs = append(dupIDs, c.ID)
			}
			outcomes, err := dedup.MergeDuplicates(ctx, group[0].ID, dupIDs)
			if err != nil {
				return err
			}
			for _, o := range outcomes {
				if !o.Merged {
					failed++
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d duplicate merges failed", failed)
		}
		return nil
	}
}
