package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptest/internal/config"
	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/grading"
	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/llm"
	"github.com/abhisek/adaptest/internal/logger"
	"github.com/abhisek/adaptest/internal/rediskv"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/store"
)

// loadConfig reads --config and the environment, then applies --db.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Storage.DB = db
	}
	return cfg, nil
}

// runtime holds the opened backends a command works with.
type runtime struct {
	cfg   config.Config
	log   *logger.Logger
	store *store.Store
	redis *rediskv.Client
}

// openRuntime loads configuration and opens the database, plus Redis when a
// backend uses it. quiet discards logs, for the full-screen UI.
func openRuntime(cmd *cobra.Command, quiet bool) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	if !quiet || !writesToTerminal(cfg.Log.Output) {
		if log, err = logger.New(cfg.Log); err != nil {
			return nil, err
		}
	}

	dsn, err := store.ResolveDSN(cfg.Storage.DB)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log, store: st}
	if cfg.Storage.Sessions == config.BackendRedis || cfg.Storage.Exposure == config.BackendRedis {
		rt.redis, err = rediskv.Connect(cmd.Context(), cfg.Redis)
		if err != nil {
			st.Close()
			return nil, err
		}
	}
	return rt, nil
}

func writesToTerminal(output string) bool {
	return output == "" || output == "stderr" || output == "stdout"
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	rt.store.Close()
	rt.log.Sync()
}

func (rt *runtime) sessionStore() session.Store {
	ttl := rt.cfg.Session.TTL
	switch rt.cfg.Storage.Sessions {
	case config.BackendRedis:
		return rt.redis.Sessions(ttl)
	case config.BackendMemory:
		return session.NewMemoryStore(ttl, nil)
	default:
		return rt.store.SessionRepo(ttl)
	}
}

func (rt *runtime) ledger() exposure.Ledger {
	window := rt.cfg.Storage.ExposureWindow
	switch rt.cfg.Storage.Exposure {
	case config.BackendRedis:
		return rt.redis.Ledger(window)
	case config.BackendMemory:
		return exposure.NewMemory(exposure.WithWindow(window))
	default:
		return rt.store.ExposureRepo(window)
	}
}

// evaluator grades from answer keys, and with an LLM provider configured
// (or discovered from a vendor API key) grades constructed responses too.
func (rt *runtime) evaluator(ctx context.Context) (session.Evaluator, error) {
	cfg := rt.cfg.LLM
	cfg.Discover(os.Getenv)
	provider, err := llm.New(ctx, cfg, rt.store.EventRepo(), rt.log)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if provider == nil {
		return grading.NewRouter(nil), nil
	}
	rt.log.Info("llm grading enabled", "provider", cfg.Provider, "model", provider.ModelID())
	return grading.NewRouter(grading.NewLLMEvaluator(provider)), nil
}

// controller wires a session controller over items.
func (rt *runtime) controller(ctx context.Context, items itembank.Repository) (*session.Controller, error) {
	est, err := estimate.New(rt.cfg.Estimation)
	if err != nil {
		return nil, err
	}
	eval, err := rt.evaluator(ctx)
	if err != nil {
		return nil, err
	}
	sel := selector.New(items, rt.ledger(), rt.cfg.Selection)
	return session.NewController(session.Deps{
		Items:     items,
		Store:     rt.sessionStore(),
		Evaluator: eval,
		Profiles:  rt.store.ProfileRepo(),
		Results:   rt.store.ResultRepo(),
		Logger:    rt.log,
	}, rt.cfg.SessionConfig(), est, sel), nil
}
