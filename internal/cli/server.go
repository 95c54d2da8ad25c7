package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"textinput-service/internal/app"
	"textinput-service/internal/config"
	"textinput-service/internal/domain"
	"textinput-service/internal/infra/memory"
	"textinput-service/internal/infra/postgres"
	redisinfra "textinput-service/internal/infra/redis"
	"textinput-service/internal/infra/sqlite"
	transport "textinput-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the text-input server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source memory.QuestionSource = memory.NewQuestionStore(sampleQuestions()...)
	var stats app.StatsRepository = memory.NewStatsStore()
	if pool != nil {
		source = postgres.NewQuestionStore(pool)
		stats = postgres.NewStatsStore(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, source, questionTTL)
	} else {
		questions = memory.NewCachedQuestionRepository(source, questionTTL)
	}

	answers, closeAnswers, err := openAnswerStore(cfg, redisClient, pool)
	if err != nil {
		return err
	}
	defer closeAnswers()

	hub := transport.NewHub(logger)
	var publisher app.Publisher = hub
	if redisClient != nil && cfg.Redis.Relay {
		relay := redisinfra.NewRelay(redisClient, "", logger)
		stopRelay, err := relay.Start(ctx, hub)
		if err != nil {
			return fmt.Errorf("start relay: %w", err)
		}
		defer stopRelay()
		publisher = relay
	}

	service := app.NewTextInputService(answers, questions, stats, publisher,
		app.WithLogger(logger),
		app.WithVisibilityTTL(questionTTL),
	)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, hub, logger),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting text-input service", "port", finalPort, "answers", cfg.AnswerBackend())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openAnswerStore(cfg config.Config, client *redis.Client, pool *pgxpool.Pool) (app.AnswerStore, func(), error) {
	noop := func() {}
	switch backend := cfg.AnswerBackend(); backend {
	case config.BackendMemory:
		return memory.NewAnswerStore(), noop, nil
	case config.BackendRedis:
		if client == nil {
			return nil, noop, fmt.Errorf("answer backend %q requires redis.addr", backend)
		}
		return redisinfra.NewAnswerStore(client, config.TTLDuration(cfg.Redis.TTL, 0)), noop, nil
	case config.BackendPostgres:
		if pool == nil {
			return nil, noop, fmt.Errorf("answer backend %q requires postgres.url", backend)
		}
		return postgres.NewAnswerStore(pool), noop, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown answer backend %q", backend)
	}
}

// sampleQuestions seeds the in-memory question store when no database is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			UID:            "sample-q1",
			Type:           domain.TextInputType,
			PresentationID: "sample",
			Data: domain.QuestionData{
				Stem:     "Name the largest planet in the solar system.",
				Solution: "(?i)^\\s*jupiter\\s*$",
				Hint:     "It is a gas giant.",
			},
		},
		{
			UID:            "sample-q2",
			Type:           domain.TextInputType,
			PresentationID: "sample",
			Position:       1,
			Data:           domain.QuestionData{Stem: "What did you learn today?"},
		},
	}
}
