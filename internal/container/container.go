package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"statlab/adapters/excel"
	"statlab/adapters/llm"
	"statlab/adapters/llm/heuristic"
	"statlab/adapters/postgres"
	"statlab/adapters/stats/engine"
	"statlab/app"
	"statlab/domain/analysis"
	"statlab/internal"
	"statlab/internal/config"
	"statlab/internal/usage"
	"statlab/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	Engine   *engine.Engine
	Reader   *excel.DataReader
	Narrator ports.Narrator
	Usage    *usage.Tracker
	Repo     ports.AnalysisRepository

	Service *app.AnalysisService
}

// New creates a container with everything that does not need a database.
// Call InitWithDatabase to enable run history.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		Engine: engine.New(),
		Reader: excel.NewDataReader(excel.DefaultReaderConfig(cfg.Limits.MaxRows), logger),
		Usage:  usage.NewTracker(logger),
	}
	c.Narrator = c.newNarrator()
	c.buildService()
	return c, nil
}

// newNarrator prefers the configured model and always keeps the offline
// narrator as fallback
func (c *Container) newNarrator() ports.Narrator {
	offline := heuristic.NewNarrator()
	if !c.Config.AI.Enabled() {
		c.Logger.Info("No LLM_API_KEY configured, narratives use the offline narrator")
		return offline
	}

	n, err := llm.NewNarrator(llm.Config{
		Model:               c.Config.AI.Model,
		APIKey:              c.Config.AI.APIKey,
		BaseURL:             c.Config.AI.BaseURL,
		Temperature:         c.Config.AI.Temperature,
		MaxTokens:           c.Config.AI.MaxTokens,
		Timeout:             c.Config.AI.Timeout,
		FallbackToHeuristic: true,
		PromptsDir:          c.Config.AI.PromptsDir,
	}, offline, c.Logger.With("component", "narrator"))
	if err != nil {
		c.Logger.Warn("Failed to initialize LLM narrator, using the offline narrator: %v", err)
		return offline
	}
	c.Logger.Info("Narratives use %s", c.Config.AI.Model)
	return n.WithUsageRecorder(c.Usage)
}

// InitWithDatabase opens the run-history store and rebuilds the service on it
func (c *Container) InitWithDatabase(ctx context.Context) error {
	db, err := postgres.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return err
	}
	c.DB = db
	c.Repo = postgres.NewAnalysisRepository(db)
	c.buildService()

	c.Logger.Info("Run history stored in %s", c.Config.Database.Driver)
	return nil
}

func (c *Container) buildService() {
	c.Service = app.NewAnalysisService(
		c.Engine,
		c.Narrator,
		c.Repo,
		analysis.Capabilities{Advanced: c.Config.Plan.Advanced},
		app.Limits{
			MaxRows:               c.Config.Limits.MaxRows,
			MaxConcurrentAnalyses: c.Config.Limits.MaxConcurrentAnalyses,
		},
		c.Logger.With("component", "analysis"),
	)
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
