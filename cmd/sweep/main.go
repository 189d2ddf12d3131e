package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/infra/config"
	"github.com/dadyutenga/driver-app-backend/internal/infra/database"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
	postgresrepo "github.com/dadyutenga/driver-app-backend/internal/repository/postgres"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// One-shot retention sweep. Intended to run from cron or a scheduled job.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zlog.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, timeout := context.WithTimeout(ctx, 5*time.Minute)
	defer timeout()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zlog)
	if err != nil {
		zlog.Fatal("failed to init postgres", zap.Error(err))
	}
	defer pool.Close()

	repos := postgresrepo.NewRepositories(pool)
	retention := usecase.NewRetentionService(
		repos.Challenges,
		repos.Sessions,
		cfg.Retention.ChallengeWindow,
		cfg.Retention.SessionWindow,
		zlog,
	)

	report, err := retention.Sweep(ctx)
	if err != nil {
		zlog.Error("retention sweep failed", zap.Error(err))
		os.Exit(1)
	}

	zlog.Info("retention sweep finished",
		zap.Int("challenges_removed", report.ChallengesRemoved),
		zap.Int("sessions_removed", report.SessionsRemoved),
	)
}
