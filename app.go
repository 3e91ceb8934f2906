package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"dtracker/config"
	"dtracker/lock"
	"dtracker/logging"
	"dtracker/notification"
	"dtracker/repository"
	"dtracker/service"
	"dtracker/workflow"
)

const scanLockKey = "dtracker:sla-scan"

// app holds what every database-backed command needs.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	registry *workflow.Registry
	closers  []func()
}

func bootstrap(ctx context.Context, envErr error) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logging.InitLogger(serviceName, cfg.Env, cfg.Log.Level)
	if envErr != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := workflow.Load(cfg.Workflow.File)
	if err != nil {
		return nil, err
	}
	if cfg.Workflow.File != "" {
		log.Info().Str("file", cfg.Workflow.File).Msg("workflow registry loaded from file")
	}

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, registry: registry}
	a.closers = append(a.closers, func() { db.Close() })
	return a, nil
}

// openDB connects to MySQL (UTC timestamps) and checks the connection.
func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Str("addr", cfg.Addr()).Str("database", cfg.DBName).Msg("database connection established")
	return db, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// breachService wires the detector with the configured push sender and,
// when REDIS_ADDR is set, a lock shared by every instance.
func (a *app) breachService(ctx context.Context) (*service.BreachService, error) {
	var pusher notification.Pusher
	if a.cfg.Push.ServerKey != "" {
		pusher = notification.NewHTTPPusher(a.cfg.Push.Endpoint, a.cfg.Push.ServerKey, nil)
	} else {
		log.Warn().Msg("PUSH_SERVER_KEY not set, breach notifications are logged only")
		pusher = notification.NewLogPusher(log.Logger)
	}

	var locker service.ScanLocker
	if a.cfg.Redis.Addr != "" {
		client, err := lock.NewRedisClient(ctx, lock.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		locker = lock.NewRedisLocker(client, scanLockKey, a.cfg.SLA.LockTTL)
		log.Info().Str("addr", a.cfg.Redis.Addr).Msg("distributed SLA scan lock enabled")
	}

	return service.NewBreachService(
		a.db,
		repository.NewTicketRepository(a.db),
		repository.NewNotificationRepository(a.db),
		pusher,
		locker,
	), nil
}
