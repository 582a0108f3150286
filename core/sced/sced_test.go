package sced_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/psst/core/model"
	"github.com/kilianp07/psst/core/reader"
	"github.com/kilianp07/psst/core/sced"
	"github.com/kilianp07/psst/core/solver"
	"github.com/kilianp07/psst/infra/solver/gonumlp"
)

const fixtures = "../../test/testdata"

type recordLog struct{ warnings []string }

func (l *recordLog) Debugf(string, ...any)         {}
func (l *recordLog) Debugw(string, map[string]any) {}
func (l *recordLog) Infof(string, ...any)          {}
func (l *recordLog) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *recordLog) Errorf(string, ...any) {}

func solve(t *testing.T, h *sced.Handle) {
	t.Helper()
	b, err := gonumlp.New(nil)
	require.NoError(t, err)
	sol, err := b.Solve(context.Background(), h.Problem(), solver.Options{})
	require.NoError(t, err)
	require.NoError(t, h.Attach(sol))
}

func fixture(t *testing.T) *sced.Handle {
	t.Helper()
	data, err := reader.ReadModel(filepath.Join(fixtures, "twobus.dat"))
	require.NoError(t, err)
	uc, err := reader.ReadUnitCommitment(filepath.Join(fixtures, "twobus_uc.txt"))
	require.NoError(t, err)
	h, err := sced.Build(data, uc, sced.BuildOptions{SymbolicLabels: true})
	require.NoError(t, err)
	return h
}

func get(t *testing.T, f func(string, int) (float64, error), id string, hour int) float64 {
	t.Helper()
	v, err := f(id, hour)
	require.NoError(t, err)
	return v
}

func TestFixtureDispatch(t *testing.T) {
	h := fixture(t)
	require.False(t, h.Solved())
	solve(t, h)
	require.True(t, h.Solved())

	assert.Equal(t, []string{"GenCo1", "GenCo2"}, h.Generators())
	assert.Equal(t, []string{"Bus1", "Bus2"}, h.Buses())
	assert.Equal(t, []string{"1"}, h.Lines())
	assert.Equal(t, []int{1, 2, 3}, h.TimePeriods())

	const d = 1e-6
	wantP1 := []float64{0.4, 0.5, 0.3}
	wantP2 := []float64{0, 0.3, 0}
	wantAngle := []float64{-0.04, -0.05, -0.03}
	wantLMP2 := []float64{10, 30, 10}
	for hour := 1; hour <= 3; hour++ {
		assert.InDelta(t, wantP1[hour-1], get(t, h.PowerGenerated, "GenCo1", hour), d, "hour %d", hour)
		assert.InDelta(t, wantP2[hour-1], get(t, h.PowerGenerated, "GenCo2", hour), d, "hour %d", hour)
		assert.InDelta(t, 10*wantP1[hour-1], get(t, h.ProductionCost, "GenCo1", hour), d)
		assert.InDelta(t, 30*wantP2[hour-1], get(t, h.ProductionCost, "GenCo2", hour), d)
		assert.InDelta(t, 0, get(t, h.Angle, "Bus1", hour), d)
		assert.InDelta(t, wantAngle[hour-1], get(t, h.Angle, "Bus2", hour), d)
		assert.InDelta(t, 10, get(t, h.LMP, "Bus1", hour), d, "hour %d", hour)
		assert.InDelta(t, wantLMP2[hour-1], get(t, h.LMP, "Bus2", hour), d, "hour %d", hour)
		assert.InDelta(t, wantP1[hour-1], get(t, h.LinePower, "1", hour), d)
	}

	assert.Equal(t, 20.0, get(t, h.StartupCost, "GenCo2", 2))
	assert.Equal(t, 0.0, get(t, h.StartupCost, "GenCo2", 1))
	assert.Equal(t, 5.0, get(t, h.ShutdownCost, "GenCo2", 3))
	assert.Equal(t, 0.0, get(t, h.ShutdownCost, "GenCo1", 3))

	obj, err := h.Objective()
	require.NoError(t, err)
	assert.InDelta(t, 46, obj, d)

	c, err := h.Commitment("GenCo2", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestFixtureLabels(t *testing.T) {
	p := fixture(t).Problem()
	names := make(map[string]bool)
	for _, v := range p.Vars {
		names[v.Name] = true
	}
	for _, r := range p.Rows {
		names[r.Name] = true
	}
	for _, n := range []string{
		"PowerGenerated(GenCo1_1)",
		"PowerSegment(GenCo2_3_3)",
		"Angle(Bus2_2)",
		"LinePower(1_3)",
		"PowerBalance(Bus1_1)",
		"PowerDefinition(GenCo1_2)",
		"CalculateLinePower(1_2)",
		"ReferenceAngle(Bus1_3)",
		"EnforceRampUpLimits(GenCo2_2)",
	} {
		assert.True(t, names[n], "missing %s", n)
	}
}

func TestGenericLabels(t *testing.T) {
	data, uc := twoBus(t)
	h, err := sced.Build(data, uc, sced.BuildOptions{})
	require.NoError(t, err)
	p := h.Problem()
	assert.Equal(t, "x1", p.Vars[0].Name)
	assert.Equal(t, "c1", p.Rows[0].Name)
}

func TestAccessorsBeforeSolve(t *testing.T) {
	h := fixture(t)
	_, err := h.PowerGenerated("GenCo1", 1)
	assert.True(t, errors.Is(err, sced.ErrMissingResult))
	_, err = h.LMP("Bus1", 1)
	assert.True(t, errors.Is(err, sced.ErrMissingResult))
	_, err = h.Objective()
	assert.True(t, errors.Is(err, sced.ErrMissingResult))
	assert.True(t, errors.Is(h.Attach(nil), sced.ErrMissingResult))

	solve(t, h)
	_, err = h.PowerGenerated("GenCo9", 1)
	assert.True(t, errors.Is(err, sced.ErrMissingResult))
	_, err = h.Angle("Bus1", 4)
	assert.True(t, errors.Is(err, sced.ErrMissingResult))
}

// twoBus is a copy of the fixture that tests can modify.
func twoBus(t *testing.T) (*model.ModelData, *model.UnitCommitment) {
	t.Helper()
	data := model.NewModelData()
	data.Buses = []string{"Bus1", "Bus2"}
	data.NumTimePeriods = 2
	data.Lines = []model.Line{{ID: "1", From: "Bus1", To: "Bus2", ThermalLimit: math.Inf(1), Reactance: 0.1}}
	g1 := model.NewGenerator("GenCo1")
	g1.Bus, g1.MaxOutput, g1.HasLimits, g1.CostA1 = "Bus1", 2, true, 10
	g1.UnitOnT0State = 1
	g2 := model.NewGenerator("GenCo2")
	g2.Bus, g2.MaxOutput, g2.HasLimits, g2.CostA1 = "Bus2", 2, true, 30
	g2.UnitOnT0State = -1
	data.Generators = []model.Generator{g2, g1}
	data.Demand[model.DemandKey{Bus: "Bus2", Period: 1}] = 1
	data.Demand[model.DemandKey{Bus: "Bus2", Period: 2}] = 1

	uc := model.NewUnitCommitment()
	require.NoError(t, uc.Add("GenCo1", []int{1, 1}))
	require.NoError(t, uc.Add("GenCo2", []int{0, 1}))
	return data, uc
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.ModelData, *model.UnitCommitment)
	}{
		{"no buses", func(d *model.ModelData, _ *model.UnitCommitment) { d.Buses = nil }},
		{"no generators", func(d *model.ModelData, _ *model.UnitCommitment) { d.Generators = nil }},
		{"no periods", func(d *model.ModelData, _ *model.UnitCommitment) { d.NumTimePeriods = 0 }},
		{"missing limits", func(d *model.ModelData, _ *model.UnitCommitment) { d.Generators[0].HasLimits = false }},
		{"inverted limits", func(d *model.ModelData, _ *model.UnitCommitment) { d.Generators[0].MinOutput = 3 }},
		{"no bus", func(d *model.ModelData, _ *model.UnitCommitment) { d.Generators[0].Bus = "" }},
		{"unknown bus", func(d *model.ModelData, _ *model.UnitCommitment) { d.Generators[0].Bus = "Bus9" }},
		{"line bus", func(d *model.ModelData, _ *model.UnitCommitment) { d.Lines[0].To = "Bus9" }},
		{"zero reactance", func(d *model.ModelData, _ *model.UnitCommitment) { d.Lines[0].Reactance = 0 }},
		{"no commitment", func(d *model.ModelData, _ *model.UnitCommitment) { d.Generators[0].ID = "GenCo3" }},
		{"short commitment", func(d *model.ModelData, _ *model.UnitCommitment) { d.NumTimePeriods = 3 }},
		{"demand bus", func(d *model.ModelData, _ *model.UnitCommitment) {
			d.Demand[model.DemandKey{Bus: "Bus9", Period: 1}] = 1
		}},
		{"demand period", func(d *model.ModelData, _ *model.UnitCommitment) {
			d.Demand[model.DemandKey{Bus: "Bus2", Period: 5}] = 1
		}},
		{"stranded demand", func(d *model.ModelData, _ *model.UnitCommitment) {
			d.Buses = append(d.Buses, "Bus3")
			d.Demand[model.DemandKey{Bus: "Bus3", Period: 1}] = 1
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, uc := twoBus(t)
			tc.mutate(data, uc)
			_, err := sced.Build(data, uc, sced.BuildOptions{})
			assert.True(t, errors.Is(err, sced.ErrModelBuild), "got %v", err)
		})
	}

	_, err := sced.Build(nil, model.NewUnitCommitment(), sced.BuildOptions{})
	assert.True(t, errors.Is(err, sced.ErrModelBuild))
}

func TestHotStartAndIsolatedBus(t *testing.T) {
	data, uc := twoBus(t)
	data.Buses = append(data.Buses, "Bus3")
	for i := range data.Generators {
		data.Generators[i].ColdStartCost = 100
		data.Generators[i].HotStartCost = 7
		data.Generators[i].MinDownTime = 2
	}
	log := &recordLog{}
	require.NoError(t, uc.Add("GenCo7", []int{1, 1}))
	h, err := sced.Build(data, uc, sced.BuildOptions{Log: log})
	require.NoError(t, err)
	solve(t, h)

	// Down one hour before T0 plus hour 1 is not more than two hours.
	assert.Equal(t, 7.0, get(t, h.StartupCost, "GenCo2", 2))
	assert.Equal(t, 0.0, get(t, h.LMP, "Bus3", 1))
	// GenCo2 is committed in hour 2 but GenCo1 remains the marginal unit.
	assert.InDelta(t, 0, get(t, h.PowerGenerated, "GenCo2", 2), 1e-6)
	assert.InDelta(t, 10, get(t, h.LMP, "Bus2", 2), 1e-6)
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "GenCo7")
}

func TestReserveWarning(t *testing.T) {
	data, uc := twoBus(t)
	data.Reserve[1] = 1.5
	data.Reserve[2] = 1.5
	log := &recordLog{}
	_, err := sced.Build(data, uc, sced.BuildOptions{Log: log})
	require.NoError(t, err)
	require.Len(t, log.warnings, 1)
	assert.True(t, strings.HasPrefix(log.warnings[0], "period 1:"), log.warnings[0])
}

func TestQuadraticCostSegments(t *testing.T) {
	data, uc := twoBus(t)
	for i := range data.Generators {
		if data.Generators[i].ID == "GenCo1" {
			data.Generators[i].CostA0 = 1
			data.Generators[i].CostA2 = 3
			data.Generators[i].MaxOutput = 3
		}
	}
	data.Demand[model.DemandKey{Bus: "Bus2", Period: 1}] = 0.5
	h, err := sced.Build(data, uc, sced.BuildOptions{CostCurvePieces: 3})
	require.NoError(t, err)
	solve(t, h)

	// Hour 1: GenCo1 serves 0.5 on the first segment, slope 10 + 3*1 = 13.
	assert.InDelta(t, 0.5, get(t, h.PowerGenerated, "GenCo1", 1), 1e-6)
	assert.InDelta(t, 1+13*0.5, get(t, h.ProductionCost, "GenCo1", 1), 1e-6)
	assert.InDelta(t, 13, get(t, h.LMP, "Bus2", 1), 1e-6)
}

func TestMissingCommitmentVector(t *testing.T) {
	data, uc := twoBus(t)
	uc.AddMissing("GenCo9")
	log := &recordLog{}
	_, err := sced.Build(data, uc, sced.BuildOptions{Log: log})
	require.NoError(t, err)
	require.Len(t, log.warnings, 1)
	assert.Equal(t, "no commitment vector for GenCo9", log.warnings[0])

	data, uc = twoBus(t)
	missing := model.NewUnitCommitment()
	s, _ := uc.Schedule("GenCo1")
	require.NoError(t, missing.Add("GenCo1", s))
	missing.AddMissing("GenCo2")
	_, err = sced.Build(data, missing, sced.BuildOptions{Log: &recordLog{}})
	assert.True(t, errors.Is(err, sced.ErrModelBuild), "got %v", err)
}
