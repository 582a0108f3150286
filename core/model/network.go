package model

import "math"

// Generator holds the parameters of a thermal unit. Power values are in per
// unit of the system base, as written by the market simulator.
type Generator struct {
	ID  string
	Bus string

	PowerT0       float64 // output in the hour preceding period 1
	UnitOnT0State int     // >0 hours on before period 1, <0 hours off

	MinOutput float64
	MaxOutput float64
	// HasLimits is false when the data file gave no output limits.
	HasLimits bool

	MinUpTime   int
	MinDownTime int

	// Ramp limits default to +Inf when absent.
	RampUp       float64
	RampDown     float64
	StartupRamp  float64
	ShutdownRamp float64

	ColdStartCost float64
	HotStartCost  float64
	ShutdownCost  float64

	CostA0 float64
	CostA1 float64
	CostA2 float64
}

// NewGenerator returns a generator with unconstrained ramp limits.
func NewGenerator(id string) Generator {
	inf := math.Inf(1)
	return Generator{ID: id, RampUp: inf, RampDown: inf, StartupRamp: inf, ShutdownRamp: inf}
}

// Line is a transmission line between two buses.
type Line struct {
	ID   string
	From string
	To   string
	// ThermalLimit is +Inf when the line is unconstrained.
	ThermalLimit float64
	Reactance    float64
}

// DemandKey indexes demand by bus and 1-based period.
type DemandKey struct {
	Bus    string
	Period int
}

// ModelData is the network, generator and load description of one SCED run.
type ModelData struct {
	Buses          []string
	Lines          []Line
	Generators     []Generator
	NumTimePeriods int
	Demand         map[DemandKey]float64
	// Reserve is indexed by period; missing periods have no requirement.
	Reserve map[int]float64
}

// NewModelData returns empty model data with initialised maps.
func NewModelData() *ModelData {
	return &ModelData{
		Demand:  make(map[DemandKey]float64),
		Reserve: make(map[int]float64),
	}
}

// Generator returns the generator with the given id.
func (m *ModelData) Generator(id string) (Generator, bool) {
	for _, g := range m.Generators {
		if g.ID == id {
			return g, true
		}
	}
	return Generator{}, false
}

// DemandAt returns the load at bus in period t, zero when unspecified.
func (m *ModelData) DemandAt(bus string, t int) float64 {
	return m.Demand[DemandKey{Bus: bus, Period: t}]
}

// TotalDemand sums the load over all buses in period t.
func (m *ModelData) TotalDemand(t int) float64 {
	var sum float64
	for k, v := range m.Demand {
		if k.Period == t {
			sum += v
		}
	}
	return sum
}

// TimePeriods returns 1..NumTimePeriods.
func (m *ModelData) TimePeriods() []int {
	ts := make([]int, m.NumTimePeriods)
	for i := range ts {
		ts[i] = i + 1
	}
	return ts
}
