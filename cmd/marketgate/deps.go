package main

import (
	"context"
	"fmt"
	"log/slog"

	evbus "github.com/asaskevich/EventBus"
	"github.com/redis/go-redis/v9"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/audit/gormsink"
	"github.com/MrEthical07/marketgate/internal/config"
	"github.com/MrEthical07/marketgate/internal/httpapi"
	"github.com/MrEthical07/marketgate/store/memory"
	"github.com/MrEthical07/marketgate/store/postgres"
)

type dependencies struct {
	users    marketgate.IdentityProvider
	products marketgate.ProductOwnerLookup
	sink     audit.Sink
	alerter  audit.Alerter
	redis    redis.UniversalClient
	ready    []httpapi.Pinger
	closers  []func() error
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

type redisPinger struct{ client redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func openDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (*dependencies, error) {
	d := &dependencies{}
	if err := d.openStore(ctx, cfg.Database, logger); err != nil {
		d.close()
		return nil, err
	}
	if err := d.openAudit(cfg.Audit, logger); err != nil {
		d.close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			d.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		d.redis = client
		d.ready = append(d.ready, redisPinger{client})
		d.closers = append(d.closers, client.Close)
	}
	return d, nil
}

func (d *dependencies) openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) error {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(cfg.DSN)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
		}
		d.users, d.products = store, store
		d.ready = append(d.ready, store)
	default:
		logger.Warn("using in-memory identity store; accounts are lost on restart")
		store := memory.New()
		d.users, d.products = store, store
	}
	return nil
}

func (d *dependencies) openAudit(cfg config.AuditFile, logger *slog.Logger) error {
	switch cfg.Sink {
	case config.SinkNone:
		d.sink = audit.NoOpSink{}
	case config.SinkFile:
		fs, err := audit.OpenFileSink(cfg.Path)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, fs.Close)
		d.sink = fs
	case config.SinkSQLite, config.SinkPostgres:
		var dialector gorm.Dialector
		if cfg.Sink == config.SinkSQLite {
			dialector = sqlite.Open(cfg.DSN)
		} else {
			dialector = gormpostgres.Open(cfg.DSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			d.closers = append(d.closers, sqlDB.Close)
		}
		sink, err := gormsink.New(db)
		if err != nil {
			return err
		}
		d.sink = sink
	default:
		d.sink = audit.NewConsoleSink(logger)
	}

	if cfg.AlertBus {
		alerter := audit.NewEventBusAlerter(evbus.New())
		if err := alerter.Bus().SubscribeAsync(audit.TopicCritical, func(e audit.Entry) {
			logger.Error("critical security event", "event_type", e.EventType, "action", e.Action, "user_id", e.UserID, "ip", e.IPAddress, "id", e.ID)
		}, false); err != nil {
			return fmt.Errorf("subscribe alert bus: %w", err)
		}
		d.alerter = alerter
	}
	return nil
}
