// Command sweep runs a single expiry sweep pass against live stores. Useful
// for draining a backlog after the server's sweeper was down, or for checking
// what a sweep would do via --dry-run.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/snaplist/internal/app"
	"github.com/pscheid92/snaplist/internal/database"
	"github.com/pscheid92/snaplist/internal/redis"
)

func main() {
	var (
		redisURL    = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Database URL (or set DATABASE_URL env)")
		dryRun      = flag.Bool("dry-run", false, "Report expired sessions without deleting anything")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *redisURL == "" {
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}
	if !*dryRun && *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	clock := clockwork.NewRealClock()
	ctx := context.Background()

	redisClient, err := redis.NewClient(ctx, *redisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	sessionRepo := redis.NewSessionRepo(redisClient, clock)

	if *dryRun {
		runDryRun(ctx, sessionRepo, clock)
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	itemRepo := database.NewItemRepo(pool)

	start := time.Now()
	sweeper := app.NewSweeper(sessionRepo, itemRepo, clock, time.Hour)
	sweeper.Sweep(ctx)

	slog.Info("Sweep pass finished", "duration", time.Since(start).String())
}

func runDryRun(ctx context.Context, sessionRepo *redis.SessionRepo, clock clockwork.Clock) {
	sessions, err := sessionRepo.ListAll(ctx)
	if err != nil {
		log.Fatalf("Failed to list sessions: %v", err)
	}

	now := clock.Now()
	var expired int
	for _, session := range sessions {
		if session.Expired(now) {
			expired++
			slog.Info("Would purge session",
				"session_id", session.ID.String(),
				"expired_at", session.ExpiresAt)
		} else {
			slog.Debug("Session still live",
				"session_id", session.ID.String(),
				"expires_at", session.ExpiresAt)
		}
	}

	slog.Info("Dry run complete", "sessions", len(sessions), "expired", expired)
}
