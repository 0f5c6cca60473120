package engine_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruv-tools/oclsharp/internal/engine"
	"github.com/vitruv-tools/oclsharp/pkg/checker"
)

const metamodelYAML = `
metamodel: spaceMission
classes:
  Spacecraft:
    attributes:
      mass: real
      name: string
`

const instancesYAML = `
instances:
  - id: voyager
    class: spaceMission::Spacecraft
    attributes:
      mass: 10.5
      name: voyager
  - id: derelict
    class: spaceMission::Spacecraft
    attributes:
      mass: -1.0
      name: derelict
`

const constraintsOCL = `
context spaceMission::Spacecraft inv positiveMass:
  self.mass > 0

context spaceMission::Spacecraft inv named:
  self.name <> ''
`

func writeProject(t *testing.T) engine.Config {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	return engine.Config{
		ConstraintFile: write("constraints.ocl", constraintsOCL),
		MetamodelFiles: []string{write("spaceMission.yaml", metamodelYAML)},
		InstanceFiles:  []string{write("mission.yaml", instancesYAML)},
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEngineLoadAndCheck(t *testing.T) {
	e, err := engine.New(writeProject(t))
	require.NoError(t, err)
	require.NoError(t, e.Load())

	report, err := e.Check()
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Satisfied)

	assert.Equal(t, checker.Violated, report.Results[0].Verdict)
	require.Len(t, report.Results[0].Violations, 1)
	assert.Equal(t, "derelict", report.Results[0].Violations[0].Label)
	assert.Equal(t, checker.Satisfied, report.Results[1].Verdict)
}

func TestEngineCheckConstraintByName(t *testing.T) {
	e, err := engine.New(writeProject(t))
	require.NoError(t, err)
	require.NoError(t, e.Load())

	report, err := e.CheckConstraint("named")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "named", report.Results[0].Name)
	assert.True(t, report.Satisfied)
}

func TestEngineRequiresLoad(t *testing.T) {
	e, err := engine.New(writeProject(t))
	require.NoError(t, err)

	_, err = e.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded")
}

func TestEngineConfigValidation(t *testing.T) {
	_, err := engine.New(engine.Config{MetamodelFiles: []string{"mm.yaml"}})
	require.Error(t, err)

	_, err = engine.New(engine.Config{ConstraintFile: "c.ocl"})
	require.Error(t, err)
}

func TestEngineReloadKeepsLastGoodModel(t *testing.T) {
	cfg := writeProject(t)
	e, err := engine.New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Load())
	reg := e.Registry()

	// Break an instance file and reload; the registry must not change.
	require.NoError(t, os.WriteFile(cfg.InstanceFiles[0], []byte("instances: [{id: x, class: nope}]"), 0o644))
	require.Error(t, e.Load())
	assert.Same(t, reg, e.Registry())
}
