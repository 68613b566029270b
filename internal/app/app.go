// Package app wires the application together: configuration, database
// pool, LLM client, tools, registry and orchestrator. Commands and the
// HTTP server consume the assembled App rather than building parts
// themselves.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"salesagent/db"
	"salesagent/internal/agent"
	"salesagent/internal/config"
	"salesagent/internal/knowledge"
	"salesagent/internal/llm"
	"salesagent/internal/log"
	"salesagent/internal/salesdb"
	"salesagent/internal/session"
	"salesagent/internal/tool"
	"salesagent/internal/viz"
	"salesagent/internal/wiki"
)

// App is the assembled application.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool      *pgxpool.Pool
	LLM       *llm.Client
	Knowledge *knowledge.Store
	Ingester  *knowledge.Ingester
	Schema    *salesdb.SchemaCache
	Sessions  *session.Store
	Registry  *tool.Registry
	Agent     *agent.Orchestrator
}

// New builds the full application. The database is migrated before the
// pool opens, so a fresh database comes up with schema and seed data.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, logger, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// assemble builds everything above the pool. Split out so tests can
// inject a nil pool for the parts that never touch the database.
func assemble(cfg *config.Config, logger log.Logger, pool *pgxpool.Pool) (*App, error) {
	client := llm.New(llm.Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Model:          cfg.ModelName,
		EmbeddingModel: cfg.EmbeddingModel,
		Temperature:    cfg.Temperature,
		MaxTokens:      int64(cfg.MaxTokens),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	store, err := knowledge.NewStore(pool, client, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	runner := salesdb.NewPoolRunner(pool)
	sqlTool, err := salesdb.NewTool(client, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("creating sales database tool: %w", err)
	}

	searchTool := knowledge.NewTool(store, cfg.TopK, cfg.MaxScore, logger)

	wikiClient := wiki.NewClient("", logger)

	chartTool, err := viz.NewTool(cfg.ChartsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating chart tool: %w", err)
	}

	registry, err := buildRegistry(logger, searchTool, sqlTool, wikiClient, chartTool)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore()

	orch, err := agent.New(agent.Config{
		Backend:   client,
		Registry:  registry,
		Sessions:  sessions,
		MaxRounds: cfg.MaxRounds,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		LLM:       client,
		Knowledge: store,
		Ingester:  knowledge.NewIngester(store, cfg.ChunkSize, cfg.ChunkOverlap, logger),
		Schema:    sqlTool.Schema(),
		Sessions:  sessions,
		Registry:  registry,
		Agent:     orch,
	}, nil
}

// buildRegistry registers every tool. The order here is the order the
// model sees in its catalogue and matches the system prompt.
func buildRegistry(logger log.Logger, searchTool *knowledge.Tool, sqlTool *salesdb.Tool, wikiClient *wiki.Client, chartTool *viz.Tool) (*tool.Registry, error) {
	registry := tool.NewRegistry(logger)

	searchSpec, err := searchTool.Spec()
	if err != nil {
		return nil, fmt.Errorf("building search tool spec: %w", err)
	}
	sqlSpec, err := sqlTool.Spec()
	if err != nil {
		return nil, fmt.Errorf("building sales database tool spec: %w", err)
	}
	wikiSpec, err := wikiClient.Spec()
	if err != nil {
		return nil, fmt.Errorf("building wiki tool spec: %w", err)
	}
	chartSpecs, err := chartTool.Specs()
	if err != nil {
		return nil, fmt.Errorf("building chart tool specs: %w", err)
	}

	specs := []tool.Spec{searchSpec, sqlSpec, wikiSpec}
	specs = append(specs, chartSpecs...)
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			return nil, fmt.Errorf("registering %s: %w", spec.Name, err)
		}
	}
	return registry, nil
}

// openPool migrates the database and opens a connection pool.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Close releases all resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
}

func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{
		Level: parseLogLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
