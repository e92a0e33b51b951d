// Command cleanup sweeps expired sessions and verification tokens. Expiry is
// otherwise enforced lazily on access, so this runs as a periodic job to keep
// the tables small.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/config"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/database"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/logger"
	postgresrepo "github.com/Simon-Fontaine/bookworm-backend/internal/repository/postgres"
)

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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zlog)
	if err != nil {
		zlog.Fatal("failed to init postgres", zap.Error(err))
	}
	defer pool.Close()

	repos := postgresrepo.NewRepositories(pool)
	now := time.Now().UTC()

	sessions, err := repos.Sessions.DeleteExpired(ctx, now)
	if err != nil {
		zlog.Fatal("failed to sweep sessions", zap.Error(err))
	}

	tokens, err := repos.Tokens.DeleteExpired(ctx, now)
	if err != nil {
		zlog.Fatal("failed to sweep tokens", zap.Error(err))
	}

	zlog.Info("cleanup finished",
		zap.Int("sessions_removed", sessions),
		zap.Int("tokens_removed", tokens),
	)
}
