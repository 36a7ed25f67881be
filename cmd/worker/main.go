package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/notify"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("json", "info").With().Str("service", "dairy-worker").Logger()
	obs.MustRegisterDomainMetrics("dairy", nil)

	pool := mustInitDatabase(cfg, logger)
	defer pool.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	notificationsRepo := repo.Notifications{Pool: pool}
	var notifiers []events.Notifier
	notifiers = append(notifiers, events.LogNotifier{Logger: logger})
	if cfg.NotifyWebhookURL != "" {
		webhook, err := events.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("configure webhook notifier")
		}
		notifiers = append(notifiers, webhook)
	}
	bus := &events.Bus{Store: notificationsRepo, Notifiers: notifiers}

	scanner := &notify.AbsenceScanner{
		Farmers:  repo.Farmers{Pool: pool},
		Entries:  repo.Entries{Pool: pool},
		Branches: repo.Branches{Pool: pool},
		Bus:      bus,
		Logger:   logger,
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.Local})
	task, err := notify.NewAbsenceTask(notify.AbsencePayload{
		Shift:     "Evening",
		BranchIDs: parseBranchIDs(cfg.AbsenceScanBranchIDs, logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build absence task")
	}
	if _, err := scheduler.Register(cfg.AbsenceScanSchedule, task); err != nil {
		logger.Fatal().Err(err).Msg("register absence schedule")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	defer scheduler.Shutdown()

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      asynqLogger{logger},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskAbsenceScan, scanner.HandleTask)

	logger.Info().Str("schedule", cfg.AbsenceScanSchedule).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "dairy-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func parseBranchIDs(raw []string, logger zerolog.Logger) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			logger.Warn().Str("value", s).Msg("skipping invalid branch id")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// asynqLogger adapts zerolog to asynq's logging interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
