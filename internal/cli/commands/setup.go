// Package commands contains the oclsharp subcommands.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vitruv-tools/oclsharp/internal/cli/config"
	"github.com/vitruv-tools/oclsharp/internal/cli/output"
	"github.com/vitruv-tools/oclsharp/internal/engine"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a loaded engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	return newCommandContext(cmd, getConfig())
}

func newCommandContext(cmd *cobra.Command, cfg *config.Config) (*CommandContext, error) {
	logger := config.GetLogger(cmd.Context())

	eng, err := engine.New(engine.Config{
		ConstraintFile: cfg.ConstraintFile,
		MetamodelFiles: cfg.MetamodelFiles,
		InstanceFiles:  cfg.InstanceFiles,
		Workers:        cfg.Workers,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	if err := eng.Load(); err != nil {
		return nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, nil
}

// getConfig returns the current configuration, falling back to defaults when
// no load has happened (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		ConstraintFile: config.DefaultConstraintFile,
		Workers:        config.DefaultWorkers,
		OutputFormat:   config.DefaultOutput,
	}
}
