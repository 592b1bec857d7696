package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/medkit/internal/adapter/storage"
	"github.com/rl1809/medkit/internal/config"
	"github.com/rl1809/medkit/internal/port"
)

// app holds the wired collaborators shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	loc    *time.Location

	records  port.RecordRepository
	sessions port.SessionRepository
	registry *storage.SubscriberSet

	memSessions *storage.MemorySessionStore
	closers     []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		logger:   logger,
		loc:      loc,
		registry: storage.NewSubscriberSet(),
	}

	if err := a.openRecordStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openSessionStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}

func (a *app) openRecordStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := sql.Open("mysql", a.cfg.StoreDSN)
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		a.closers = append(a.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return err
		}
		a.records = adapter
		a.logger.Info("connected to mysql")
	default:
		adapter, err := storage.OpenSQLite(a.cfg.StoreDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, adapter.Close)
		a.records = adapter
		a.logger.Info("opened sqlite store", "path", a.cfg.StoreDSN)
	}
	return nil
}

func (a *app) openSessionStore(ctx context.Context) error {
	if a.cfg.RedisAddr == "" {
		a.memSessions = storage.NewMemorySessionStore(a.cfg.SessionTTL, nil)
		a.sessions = a.memSessions
		a.logger.Info("using in-memory dialog sessions", "ttl", a.cfg.SessionTTL.String())
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
	})
	a.closers = append(a.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	a.sessions = storage.NewRedisSessionStore(rdb, a.cfg.SessionTTL)
	a.logger.Info("connected to redis", "ttl", a.cfg.SessionTTL.String())
	return nil
}

// close releases connections in reverse order of opening.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
