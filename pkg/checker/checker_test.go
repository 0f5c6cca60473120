package checker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruv-tools/oclsharp/pkg/checker"
	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/sema"
)

func loadedRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()

	require.NoError(t, model.RegisterMetamodelDoc(reg, &model.MetamodelDoc{
		Metamodel: "spaceMission",
		Classes: map[string]model.ClassDoc{
			"Spacecraft": {
				Attributes: map[string]string{"mass": "real", "name": "string"},
			},
		},
	}))

	doc := &model.InstanceDoc{Instances: []*model.InstanceNode{
		{
			Label:      "voyager",
			Class:      "spaceMission::Spacecraft",
			Attributes: map[string]any{"mass": 10.0, "name": "voyager"},
		},
		{
			Label:      "derelict",
			Class:      "spaceMission::Spacecraft",
			Attributes: map[string]any{"mass": -5.0, "name": "derelict"},
		},
	}}
	require.NoError(t, model.AddInstanceDoc(reg, doc, "mission.yaml"))
	return reg
}

const batchSource = `
context spaceMission::Spacecraft inv massKnown:
  self.mass <> 0

context spaceMission::Spacecraft inv positiveMass:
  self.mass > 0

context ghostMM::Ghost inv phantom:
  true

context spaceMission::Spacecraft inv zeroDivision:
  1 div 0 = 1
`

func TestCheckSourceBatch(t *testing.T) {
	reg := loadedRegistry(t)
	report := checker.New(reg, 1).CheckSource(batchSource, "batch.ocl")

	require.NotEmpty(t, report.RunID)
	require.Len(t, report.Results, 4)
	assert.False(t, report.Satisfied)

	assert.Equal(t, "massKnown", report.Results[0].Name)
	assert.Equal(t, checker.Satisfied, report.Results[0].Verdict)
	assert.Equal(t, 2, report.Results[0].Instances)

	assert.Equal(t, "positiveMass", report.Results[1].Name)
	assert.Equal(t, checker.Violated, report.Results[1].Verdict)
	require.Len(t, report.Results[1].Violations, 1)
	assert.Equal(t, "derelict", report.Results[1].Violations[0].Label)
	assert.Equal(t, "mission.yaml", report.Results[1].Violations[0].SourceFile)

	assert.Equal(t, "phantom", report.Results[2].Name)
	assert.Equal(t, checker.CompileError, report.Results[2].Verdict)
	require.NotEmpty(t, report.Results[2].Errors)
	assert.Equal(t, sema.CodeUnresolvedMetamodel, report.Results[2].Errors[0].Code)

	assert.Equal(t, "zeroDivision", report.Results[3].Name)
	assert.Equal(t, checker.RuntimeError, report.Results[3].Verdict)
	require.NotEmpty(t, report.Results[3].Messages)
	assert.Contains(t, report.Results[3].Messages[0], "mission.yaml")
}

func TestConcurrentCheckKeepsDeclarationOrder(t *testing.T) {
	reg := loadedRegistry(t)

	sequential := checker.New(reg, 1).CheckSource(batchSource, "batch.ocl")
	concurrent := checker.New(reg, 8).CheckSource(batchSource, "batch.ocl")

	require.Len(t, concurrent.Results, len(sequential.Results))
	for i := range sequential.Results {
		assert.Equal(t, sequential.Results[i].Name, concurrent.Results[i].Name)
		assert.Equal(t, sequential.Results[i].Verdict, concurrent.Results[i].Verdict)
	}
}

func TestCheckConstraintByName(t *testing.T) {
	reg := loadedRegistry(t)
	c := checker.New(reg, 1)

	report := c.CheckConstraint(batchSource, "batch.ocl", "massKnown")
	require.Len(t, report.Results, 1)
	assert.Equal(t, "massKnown", report.Results[0].Name)
	assert.True(t, report.Satisfied)

	report = c.CheckConstraint(batchSource, "batch.ocl", "doesNotExist")
	require.Len(t, report.Results, 1)
	assert.Equal(t, checker.CompileError, report.Results[0].Verdict)
	assert.False(t, report.Satisfied)
	require.NotEmpty(t, report.Results[0].Messages)
	assert.Contains(t, report.Results[0].Messages[0], "doesNotExist")
}

func TestVacuousSatisfaction(t *testing.T) {
	reg := model.NewRegistry()
	require.NoError(t, model.RegisterMetamodelDoc(reg, &model.MetamodelDoc{
		Metamodel: "spaceMission",
		Classes: map[string]model.ClassDoc{
			"Spacecraft": {Attributes: map[string]string{"mass": "real"}},
		},
	}))

	report := checker.New(reg, 1).CheckSource(
		"context spaceMission::Spacecraft inv m: self.mass > 0", "empty.ocl")
	require.Len(t, report.Results, 1)
	assert.Equal(t, checker.Satisfied, report.Results[0].Verdict)
	assert.Equal(t, 0, report.Results[0].Instances)
	assert.True(t, report.Satisfied)
}

func TestParseErrorDoesNotDropSiblings(t *testing.T) {
	reg := loadedRegistry(t)
	src := `
context spaceMission::Spacecraft inv broken: self.mass >
context spaceMission::Spacecraft inv intact: self.mass <> 0
`
	report := checker.New(reg, 1).CheckSource(src, "mixed.ocl")

	require.NotEmpty(t, report.ParseErrors)
	assert.False(t, report.Satisfied)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "intact", report.Results[0].Name)
	assert.Equal(t, checker.Satisfied, report.Results[0].Verdict)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "satisfied", checker.Satisfied.String())
	assert.Equal(t, "violated", checker.Violated.String())
	assert.Equal(t, "compile-error", checker.CompileError.String())
	assert.Equal(t, "runtime-error", checker.RuntimeError.String())
}
