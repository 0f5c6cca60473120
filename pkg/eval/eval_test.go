package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitruv-tools/oclsharp/pkg/eval"
	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
	"github.com/vitruv-tools/oclsharp/pkg/sema"
)

func missionRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()

	require.NoError(t, model.RegisterMetamodelDoc(reg, &model.MetamodelDoc{
		Metamodel: "spaceMission",
		Classes: map[string]model.ClassDoc{
			"Spacecraft": {
				Attributes: map[string]string{
					"mass":      "real",
					"name":      "string",
					"thrusters": "int",
				},
				References: map[string]model.ReferenceDoc{
					"payloads": {Target: "Payload", Many: true},
					"partner":  {Target: "Spacecraft"},
				},
			},
			"Payload": {
				Attributes: map[string]string{"massKg": "int", "active": "bool"},
			},
		},
	}))

	require.NoError(t, model.RegisterMetamodelDoc(reg, &model.MetamodelDoc{
		Metamodel: "satelliteSystem",
		Classes: map[string]model.ClassDoc{
			"Satellite": {
				Attributes: map[string]string{"massKg": "int"},
			},
			"CubeSat": {Extends: []string{"Satellite"}},
		},
	}))

	return reg
}

func addSpacecraft(t *testing.T, reg *model.Registry, label string, mass float64, filename string) {
	t.Helper()
	doc := &model.InstanceDoc{Instances: []*model.InstanceNode{
		{
			Label: label,
			Class: "spaceMission::Spacecraft",
			Attributes: map[string]any{
				"mass":      mass,
				"name":      label,
				"thrusters": 4,
			},
			References: map[string]model.RefTargets{
				"payloads": {label + "-cam", label + "-ant"},
			},
			Contains: []*model.InstanceNode{
				{
					Label:      label + "-cam",
					Class:      "spaceMission::Payload",
					Attributes: map[string]any{"massKg": 3, "active": true},
				},
				{
					Label:      label + "-ant",
					Class:      "spaceMission::Payload",
					Attributes: map[string]any{"massKg": 4, "active": false},
				},
			},
		},
	}}
	require.NoError(t, model.AddInstanceDoc(reg, doc, filename))
}

func addSatellites(t *testing.T, reg *model.Registry, masses ...int) {
	t.Helper()
	doc := &model.InstanceDoc{}
	for i, m := range masses {
		doc.Instances = append(doc.Instances, &model.InstanceNode{
			Label:      "sat" + string(rune('A'+i)),
			Class:      "satelliteSystem::Satellite",
			Attributes: map[string]any{"massKg": m},
		})
	}
	require.NoError(t, model.AddInstanceDoc(reg, doc, "sats.yaml"))
}

func evaluate(t *testing.T, reg *model.Registry, body string) []eval.InstanceResult {
	t.Helper()
	src := "context spaceMission::Spacecraft inv c: " + body
	file, errs := parser.ParseFile(src, "test.ocl")
	require.Empty(t, errs)
	require.Len(t, file.Constraints, 1)

	checked, diags := sema.Analyze(file.Constraints[0], reg)
	require.False(t, sema.HasErrors(diags), "diags: %v", diags)

	return eval.New(reg, checked).Evaluate()
}

func TestSatisfiedConstraint(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")

	results := evaluate(t, reg, "self.mass > 0")
	require.Len(t, results, 1)
	assert.True(t, results[0].Satisfied)
	assert.Empty(t, results[0].Message)
}

func TestViolatedConstraintNamesSourceFile(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")
	addSpacecraft(t, reg, "derelict", -5.0, "bad.yaml")

	results := evaluate(t, reg, "self.mass > 0")
	require.Len(t, results, 2)
	assert.True(t, results[0].Satisfied)
	assert.False(t, results[1].Satisfied)
	assert.Equal(t, "bad.yaml", results[1].SourceFile)
	assert.Equal(t, "derelict", results[1].Object.Label())
	assert.Contains(t, results[1].Message, "false")
}

func TestCrossMetamodelAggregate(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 5.0, "mission.yaml")
	addSatellites(t, reg, 3, 4)

	results := evaluate(t, reg,
		"satelliteSystem::Satellite.allInstances().collect(s | s.massKg).sum() > self.mass")
	require.Len(t, results, 1)
	assert.True(t, results[0].Satisfied)
}

func TestDivisionByZeroIsScopedRuntimeError(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")
	addSpacecraft(t, reg, "pioneer", 8.0, "mission.yaml")

	results := evaluate(t, reg, "self.thrusters div 0 > 1")
	require.Len(t, results, 2)
	for _, r := range results {
		require.NotNil(t, r.Err)
		assert.Equal(t, eval.ArithmeticError, r.Err.Kind)
		assert.False(t, r.Satisfied)
	}
}

func TestNullSafety(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")

	tests := []struct {
		name string
		body string
	}{
		{"navigation from unset reference is empty", "self.partner.name->isEmpty()"},
		{"unset reference compares equal to null", "self.partner = null"},
		{"at out of range is empty", "self.payloads->at(99)->isEmpty()"},
		{"at zero is empty", "self.payloads->at(0)->isEmpty()"},
		{"first of empty is empty", "self.partner.payloads->first()->isEmpty()"},
		{"sum of empty is zero", "self.payloads->select(p | false).collect(p | p.massKg).sum() = 0"},
		{"avg of empty is empty", "self.partner.mass->avg()->isEmpty()"},
		{"forAll over empty is true", "self.partner.payloads->forAll(p | p.massKg > 100)"},
		{"exists over empty is false", "not self.partner.payloads->exists(p | true)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := evaluate(t, reg, tt.body)
			require.Len(t, results, 1)
			assert.True(t, results[0].Satisfied, "message: %s", results[0].Message)
			assert.Nil(t, results[0].Err)
		})
	}
}

func TestIteratorsAndAggregates(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")

	tests := []struct {
		name string
		body string
	}{
		{"select filters", "self.payloads->select(p | p.active)->size() = 1"},
		{"reject filters complement", "self.payloads->reject(p | p.active)->size() = 1"},
		{"collect maps", "self.payloads->collect(p | p.massKg)->sum() = 7"},
		{"forAll", "self.payloads->forAll(p | p.massKg > 0)"},
		{"exists", "self.payloads->exists(p | p.active)"},
		{"size", "self.payloads->size() = 2"},
		{"first", "self.payloads->first().massKg = 3"},
		{"last", "self.payloads->last().massKg = 4"},
		{"at is one-based", "self.payloads->at(1).massKg = 3"},
		{"min", "self.payloads.massKg->min() = 3"},
		{"max", "self.payloads.massKg->max() = 4"},
		{"avg", "self.payloads.massKg->avg() = 3.5"},
		{"notEmpty", "self.payloads->notEmpty()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := evaluate(t, reg, tt.body)
			require.Len(t, results, 1)
			assert.True(t, results[0].Satisfied, "message: %s", results[0].Message)
		})
	}
}

func TestNavigationKeepsDuplicates(t *testing.T) {
	reg := missionRegistry(t)
	doc := &model.InstanceDoc{Instances: []*model.InstanceNode{
		{
			Label:      "carrier",
			Class:      "spaceMission::Spacecraft",
			Attributes: map[string]any{"mass": 10.0, "name": "carrier", "thrusters": 4},
			References: map[string]model.RefTargets{
				"payloads": {"cam", "ant"},
			},
			Contains: []*model.InstanceNode{
				{
					Label:      "cam",
					Class:      "spaceMission::Payload",
					Attributes: map[string]any{"massKg": 3, "active": true},
				},
				{
					Label:      "ant",
					Class:      "spaceMission::Payload",
					Attributes: map[string]any{"massKg": 3, "active": false},
				},
			},
		},
	}}
	require.NoError(t, model.AddInstanceDoc(reg, doc, "carrier.yaml"))

	// Implicit attribute navigation over a collection is collect: equal
	// values from distinct payloads must both count.
	tests := []struct {
		name string
		body string
	}{
		{"implicit navigation keeps equal values", "self.payloads.massKg->size() = 2"},
		{"implicit navigation sum", "self.payloads.massKg->sum() = 6"},
		{"explicit collect sum agrees", "self.payloads->collect(p | p.massKg)->sum() = 6"},
		{"spellings agree", "self.payloads.massKg->sum() = self.payloads->collect(p | p.massKg)->sum()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := evaluate(t, reg, tt.body)
			require.Len(t, results, 1)
			assert.True(t, results[0].Satisfied, "message: %s", results[0].Message)
		})
	}
}

func TestNavigationKeepsSharedTargets(t *testing.T) {
	reg := missionRegistry(t)
	doc := &model.InstanceDoc{Instances: []*model.InstanceNode{
		{
			Label:      "hub",
			Class:      "spaceMission::Spacecraft",
			Attributes: map[string]any{"mass": 1.0, "name": "hub", "thrusters": 1},
		},
		{
			Label:      "alpha",
			Class:      "spaceMission::Spacecraft",
			Attributes: map[string]any{"mass": 1.0, "name": "alpha", "thrusters": 1},
			References: map[string]model.RefTargets{"partner": {"hub"}},
		},
		{
			Label:      "beta",
			Class:      "spaceMission::Spacecraft",
			Attributes: map[string]any{"mass": 1.0, "name": "beta", "thrusters": 1},
			References: map[string]model.RefTargets{"partner": {"hub"}},
		},
	}}
	require.NoError(t, model.AddInstanceDoc(reg, doc, "fleet.yaml"))

	// alpha and beta share one partner; navigating partner from the
	// craft collection must keep both occurrences of hub.
	body := "spaceMission::Spacecraft.allInstances()" +
		"->select(s | s.partner->notEmpty()).partner->size() = 2"
	results := evaluate(t, reg, body)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.Satisfied, "%s: %s", res.Object.Label(), res.Message)
	}
}

func TestExpressionForms(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")

	tests := []struct {
		name string
		body string
	}{
		{"let binding", "let twice = self.mass * 2.0 in twice = 20.0"},
		{"sequential let", "let m = self.mass, half = m / 2.0 in half = 5.0"},
		{"if then branch", "if self.mass > 5.0 then 'heavy' else 'light' endif = 'heavy'"},
		{"if else branch", "if self.mass > 50.0 then 'heavy' else 'light' endif = 'light'"},
		{"string concat", "self.name + '!' = 'voyager!'"},
		{"implies short-circuit", "self.mass < 0 implies 1 div 0 = 1"},
		{"and short-circuit", "false and 1 div 0 = 1 implies true"},
		{"integer promotion", "self.thrusters * 2.5 = 10.0"},
		{"mod", "self.thrusters mod 3 = 1"},
		{"unary minus", "-self.mass = -10.0"},
		{"isKindOf", "self.oclIsKindOf(spaceMission::Spacecraft)"},
		{"isTypeOf", "self.oclIsTypeOf(spaceMission::Spacecraft)"},
		{"asType keeps conforming object", "self.oclAsType(spaceMission::Spacecraft)->notEmpty()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := evaluate(t, reg, tt.body)
			require.Len(t, results, 1)
			require.Nil(t, results[0].Err)
			assert.True(t, results[0].Satisfied, "message: %s", results[0].Message)
		})
	}
}

func TestAllInstancesIncludesSubtypes(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")
	addSatellites(t, reg, 3)
	require.NoError(t, model.AddInstanceDoc(reg, &model.InstanceDoc{
		Instances: []*model.InstanceNode{
			{Label: "cube", Class: "satelliteSystem::CubeSat", Attributes: map[string]any{"massKg": 1}},
		},
	}, "cube.yaml"))

	results := evaluate(t, reg, "satelliteSystem::Satellite.allInstances()->size() = 2")
	require.Len(t, results, 1)
	assert.True(t, results[0].Satisfied, "message: %s", results[0].Message)
}

func TestVerdictShapes(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"false body", "self.mass < 0", "evaluated to false"},
		{"empty body", "self.partner.name = null implies null", "empty collection"},
		{"non-boolean body", "if true then self.mass else self.mass endif", "non-Boolean"},
		{"multi-element body", "self.payloads->collect(p | p.active)", "2-element collection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := evaluate(t, reg, tt.body)
			require.Len(t, results, 1)
			require.Nil(t, results[0].Err)
			assert.False(t, results[0].Satisfied)
			assert.Contains(t, results[0].Message, tt.message)
		})
	}
}

func TestEmptyIfConditionIsInvalidCondition(t *testing.T) {
	reg := missionRegistry(t)
	addSpacecraft(t, reg, "voyager", 10.0, "mission.yaml")

	results := evaluate(t, reg, "if null then true else false endif")
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Err)
	assert.Equal(t, eval.InvalidConditionError, results[0].Err.Kind)
}

func TestNoMatchingInstances(t *testing.T) {
	reg := missionRegistry(t)
	addSatellites(t, reg, 3)

	results := evaluate(t, reg, "self.mass > 0")
	assert.Empty(t, results)
}
