// Package engine orchestrates the checking session: it loads metamodels
// and instance models into a registry, then runs constraint files
// against it. Loading is a strict barrier; no constraint is checked
// before every file is in, and the registry is read-only afterwards.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vitruv-tools/oclsharp/pkg/checker"
	"github.com/vitruv-tools/oclsharp/pkg/model"
)

// Config holds engine configuration.
type Config struct {
	// ConstraintFile is the path to the .ocl constraint file.
	ConstraintFile string
	// MetamodelFiles are metamodel definitions, in dependency order:
	// a metamodel referencing classes of another must come after it.
	MetamodelFiles []string
	// InstanceFiles are instance models validated against the metamodels.
	InstanceFiles []string
	// Workers bounds concurrent constraint evaluation. Zero or one
	// evaluates sequentially.
	Workers int
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine drives loading and checking for one session.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	registry *model.Registry
}

// New creates an engine. Load must be called before any checking.
func New(cfg Config) (*Engine, error) {
	if cfg.ConstraintFile == "" {
		return nil, fmt.Errorf("no constraint file configured")
	}
	if len(cfg.MetamodelFiles) == 0 {
		return nil, fmt.Errorf("no metamodel files configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Load builds a fresh registry from the configured metamodel and
// instance files. It replaces any previously loaded registry atomically,
// so a failed reload keeps the last good model.
func (e *Engine) Load() error {
	reg := model.NewRegistry()

	for _, path := range e.cfg.MetamodelFiles {
		if err := model.LoadMetamodelFile(reg, path); err != nil {
			return err
		}
		e.logger.Debug("loaded metamodel", "file", path)
	}
	for _, path := range e.cfg.InstanceFiles {
		if err := model.LoadInstanceFile(reg, path); err != nil {
			return err
		}
		e.logger.Debug("loaded instances", "file", path)
	}

	e.mu.Lock()
	e.registry = reg
	e.mu.Unlock()

	e.logger.Info("model loaded",
		"metamodels", len(reg.Metamodels()),
		"instances", reg.InstanceCount())
	return nil
}

// Registry returns the currently loaded registry, or nil before Load.
func (e *Engine) Registry() *model.Registry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry
}

// Check runs every constraint of the configured constraint file.
func (e *Engine) Check() (*checker.Report, error) {
	return e.check("")
}

// CheckConstraint runs a single named constraint.
func (e *Engine) CheckConstraint(name string) (*checker.Report, error) {
	return e.check(name)
}

func (e *Engine) check(name string) (*checker.Report, error) {
	reg := e.Registry()
	if reg == nil {
		return nil, fmt.Errorf("model not loaded")
	}

	src, err := os.ReadFile(e.cfg.ConstraintFile)
	if err != nil {
		return nil, fmt.Errorf("read constraints %s: %w", e.cfg.ConstraintFile, err)
	}

	c := checker.New(reg, e.cfg.Workers)
	filename := filepath.Base(e.cfg.ConstraintFile)

	var report *checker.Report
	if name == "" {
		report = c.CheckSource(string(src), filename)
	} else {
		report = c.CheckConstraint(string(src), filename, name)
	}

	e.logger.Info("check complete",
		"run_id", report.RunID,
		"constraints", len(report.Results),
		"satisfied", report.Satisfied)
	return report, nil
}
