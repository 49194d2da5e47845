package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/oriys/inkwell/internal/config"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/service"
	"github.com/oriys/inkwell/internal/store"
)

// loadConfig layers defaults, the config file, INKWELL_* variables and the
// persistent flags, in that order.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		fileCfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	config.LoadFromEnv(cfg)

	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if pgDSN != "" {
		cfg.Postgres.DSN = pgDSN
	}
	if logLevel != "" {
		cfg.Observability.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.EntityStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		logging.Op().Warn("using in-memory entity store, data is lost on exit")
		return store.NewMemoryStore(), nil
	default:
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	}
}

// openEngine opens the store and fills the post cache. The returned close
// function releases the store.
func openEngine(ctx context.Context, cfg *config.Config) (*service.Engine, func(), error) {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	engine := service.New(s, service.Options{
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
	})
	if err := engine.Start(ctx); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("start engine: %w", err)
	}
	return engine, func() { s.Close() }, nil
}

// withEngine runs fn against a started engine built from the CLI config.
func withEngine(fn func(ctx context.Context, e *service.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	engine, closeFn, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, engine)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
