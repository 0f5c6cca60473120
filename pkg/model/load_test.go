package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitruv-tools/oclsharp/pkg/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const satelliteMM = `
metamodel: satelliteSystem
classes:
  Satellite:
    attributes:
      name: string
      massKg: real
`

const missionMM = `
metamodel: spaceMission
classes:
  Spacecraft:
    attributes:
      name: string
      mass: real
    references:
      payload:
        target: satelliteSystem::Satellite
        many: true
`

func TestLoadMetamodelFiles(t *testing.T) {
	dir := t.TempDir()
	satPath := writeFile(t, dir, "satellite.yaml", satelliteMM)
	missionPath := writeFile(t, dir, "mission.yaml", missionMM)

	r := model.NewRegistry()
	require.NoError(t, model.LoadMetamodelFile(r, satPath))
	require.NoError(t, model.LoadMetamodelFile(r, missionPath))

	assert.Equal(t, []string{"satelliteSystem", "spaceMission"}, r.Metamodels())

	craft, err := r.ResolveClass("spaceMission", "Spacecraft")
	require.NoError(t, err)

	// Cross-metamodel reference target resolved against the registry.
	ref, ok := craft.LookupReference("payload")
	require.True(t, ok)
	assert.Equal(t, "satelliteSystem::Satellite", ref.Target.QualifiedName())
}

func TestLoadMetamodelOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	missionPath := writeFile(t, dir, "mission.yaml", missionMM)

	r := model.NewRegistry()
	err := model.LoadMetamodelFile(r, missionPath)
	require.Error(t, err, "target metamodel not yet registered")
	assert.ErrorIs(t, err, model.ErrMetamodelNotFound)
}

func TestLoadInstanceFile(t *testing.T) {
	dir := t.TempDir()
	satPath := writeFile(t, dir, "satellite.yaml", satelliteMM)
	missionPath := writeFile(t, dir, "mission.yaml", missionMM)
	instPath := writeFile(t, dir, "fleet.yaml", `
instances:
  - id: comsat
    class: satelliteSystem::Satellite
    attributes:
      name: ComSat
      massKg: 3
  - id: atlas
    class: spaceMission::Spacecraft
    attributes:
      name: Atlas
      mass: 10.5
    references:
      payload: comsat
`)

	r := model.NewRegistry()
	require.NoError(t, model.LoadMetamodelFile(r, satPath))
	require.NoError(t, model.LoadMetamodelFile(r, missionPath))
	require.NoError(t, model.LoadInstanceFile(r, instPath))

	require.Len(t, r.ContextObjects(), 2)

	craft, _ := r.ResolveClass("spaceMission", "Spacecraft")
	crafts := r.AllInstances(craft)
	require.Len(t, crafts, 1)
	assert.Equal(t, 10.5, crafts[0].Attrs["mass"])
	assert.Equal(t, "fleet.yaml", crafts[0].SourceFile)

	// Scalar reference form resolves like a one-element list.
	payload := crafts[0].Referenced("payload")
	require.Len(t, payload, 1)
	assert.Equal(t, 3.0, payload[0].Attrs["massKg"])
}

func TestLoadMissingFile(t *testing.T) {
	r := model.NewRegistry()
	err := model.LoadMetamodelFile(r, "/nonexistent/mm.yaml")
	assert.Error(t, err)
}
