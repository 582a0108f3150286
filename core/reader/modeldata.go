package reader

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/kilianp07/psst/core/model"
	"github.com/kilianp07/psst/core/reader/dat"
)

// ReadModel loads the reference model data file (AMPL/Pyomo .dat syntax).
func ReadModel(path string) (*model.ModelData, error) {
	p, err := checkPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, &FormatError{Path: p, Msg: "cannot open file", Err: err}
	}
	defer f.Close()

	file, err := dat.Parse(f)
	if err != nil {
		return nil, wrapSyntax(p, err)
	}
	m := mapper{path: p, f: file}
	return m.modelData()
}

func wrapSyntax(path string, err error) error {
	var se *dat.SyntaxError
	if errors.As(err, &se) {
		return &FormatError{Path: path, Line: se.Line, Msg: se.Msg}
	}
	return &FormatError{Path: path, Msg: "read failed", Err: err}
}

// mapper converts the generic statements of a data file into ModelData.
type mapper struct {
	path string
	f    *dat.File
}

func (m mapper) errorf(name string, format string, args ...any) error {
	return &FormatError{Path: m.path, Line: m.f.Line(name), Msg: fmt.Sprintf(format, args...)}
}

func (m mapper) toFloat(name, key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, m.errorf(name, "%s[%s]: invalid number %q", name, key, raw)
	}
	return v, nil
}

func (m mapper) toInt(name, key, raw string) (int, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, m.errorf(name, "%s[%s]: invalid integer %q", name, key, raw)
	}
	return int(v), nil
}

func (m mapper) modelData() (*model.ModelData, error) {
	data := model.NewModelData()
	data.Buses, _ = m.f.Set("Buses")

	periods, err := m.periods()
	if err != nil {
		return nil, err
	}
	data.NumTimePeriods = periods

	if data.Generators, err = m.generators(); err != nil {
		return nil, err
	}
	if err := m.assignBuses(data); err != nil {
		return nil, err
	}
	if data.Lines, err = m.lines(); err != nil {
		return nil, err
	}
	if err := m.demand(data); err != nil {
		return nil, err
	}
	if err := m.reserve(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (m mapper) periods() (int, error) {
	raw, _, err := m.f.Scalar("NumTimePeriods")
	if err != nil {
		return 0, wrapSyntax(m.path, err)
	}
	if raw != "" {
		n, err := m.toInt("NumTimePeriods", "", raw)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, m.errorf("NumTimePeriods", "NumTimePeriods must not be negative, got %d", n)
		}
		return n, nil
	}
	// Without an explicit count, fall back to the generation stage periods.
	seen := make(map[string]bool)
	for _, s := range m.f.IndexedSets("GenerationTimeInStage") {
		for _, t := range s.Items {
			seen[t] = true
		}
	}
	return len(seen), nil
}

type genSetter func(g *model.Generator, v float64)

var genColumns = []struct {
	name    string
	integer bool
	set     genSetter
}{
	{"PowerGeneratedT0", false, func(g *model.Generator, v float64) { g.PowerT0 = v }},
	{"UnitOnT0State", true, func(g *model.Generator, v float64) { g.UnitOnT0State = int(v) }},
	{"MinimumPowerOutput", false, func(g *model.Generator, v float64) { g.MinOutput = v }},
	{"MaximumPowerOutput", false, func(g *model.Generator, v float64) { g.MaxOutput = v }},
	{"MinimumUpTime", true, func(g *model.Generator, v float64) { g.MinUpTime = int(v) }},
	{"MinimumDownTime", true, func(g *model.Generator, v float64) { g.MinDownTime = int(v) }},
	{"NominalRampUpLimit", false, func(g *model.Generator, v float64) { g.RampUp = v }},
	{"NominalRampDownLimit", false, func(g *model.Generator, v float64) { g.RampDown = v }},
	{"StartupRampLimit", false, func(g *model.Generator, v float64) { g.StartupRamp = v }},
	{"ShutdownRampLimit", false, func(g *model.Generator, v float64) { g.ShutdownRamp = v }},
	{"ColdStartCost", false, func(g *model.Generator, v float64) { g.ColdStartCost = v }},
	{"HotStartCost", false, func(g *model.Generator, v float64) { g.HotStartCost = v }},
	{"ShutdownCostCoefficient", false, func(g *model.Generator, v float64) { g.ShutdownCost = v }},
	{"ProductionCostA0", false, func(g *model.Generator, v float64) { g.CostA0 = v }},
	{"ProductionCostA1", false, func(g *model.Generator, v float64) { g.CostA1 = v }},
	{"ProductionCostA2", false, func(g *model.Generator, v float64) { g.CostA2 = v }},
}

func (m mapper) generators() ([]model.Generator, error) {
	ids, ok := m.f.Set("ThermalGenerators")
	if !ok {
		keys, _, err := m.f.Column("MaximumPowerOutput")
		if err != nil {
			return nil, wrapSyntax(m.path, err)
		}
		ids = keys
	}
	index := make(map[string]int, len(ids))
	gens := make([]model.Generator, len(ids))
	for i, id := range ids {
		if _, dup := index[id]; dup {
			return nil, m.errorf("ThermalGenerators", "duplicate generator %s", id)
		}
		index[id] = i
		gens[i] = model.NewGenerator(id)
	}

	hasMin := make(map[string]bool)
	hasMax := make(map[string]bool)
	for _, col := range genColumns {
		keys, vals, err := m.f.Column(col.name)
		if err != nil {
			return nil, wrapSyntax(m.path, err)
		}
		for _, k := range keys {
			i, ok := index[k]
			if !ok {
				return nil, m.errorf(col.name, "%s: unknown generator %s", col.name, k)
			}
			var v float64
			if col.integer {
				n, err := m.toInt(col.name, k, vals[k])
				if err != nil {
					return nil, err
				}
				v = float64(n)
			} else if v, err = m.toFloat(col.name, k, vals[k]); err != nil {
				return nil, err
			}
			col.set(&gens[i], v)
			switch col.name {
			case "MinimumPowerOutput":
				hasMin[k] = true
			case "MaximumPowerOutput":
				hasMax[k] = true
			}
		}
	}
	for i := range gens {
		gens[i].HasLimits = hasMin[gens[i].ID] && hasMax[gens[i].ID]
	}
	return gens, nil
}

func (m mapper) assignBuses(data *model.ModelData) error {
	known := make(map[string]bool, len(data.Buses))
	for _, b := range data.Buses {
		known[b] = true
	}
	index := make(map[string]int, len(data.Generators))
	for i, g := range data.Generators {
		index[g.ID] = i
	}
	for bus, set := range m.f.IndexedSets("ThermalGeneratorsAtBus") {
		name := "ThermalGeneratorsAtBus[" + bus + "]"
		if len(known) > 0 && !known[bus] {
			return m.errorf(name, "unknown bus %s", bus)
		}
		for _, id := range set.Items {
			i, ok := index[id]
			if !ok {
				return m.errorf(name, "%s: unknown generator %s", name, id)
			}
			if prev := data.Generators[i].Bus; prev != "" {
				return m.errorf(name, "generator %s assigned to both %s and %s", id, prev, bus)
			}
			data.Generators[i].Bus = bus
		}
	}
	return nil
}

func (m mapper) lines() ([]model.Line, error) {
	declared := -1
	raw, _, err := m.f.Scalar("NumTransmissionLines")
	if err != nil {
		return nil, wrapSyntax(m.path, err)
	}
	if raw != "" {
		if declared, err = m.toInt("NumTransmissionLines", "", raw); err != nil {
			return nil, err
		}
	}

	var lines []model.Line
	keys, from, err := m.f.Column("BusFrom")
	if err != nil {
		return nil, wrapSyntax(m.path, err)
	}
	if keys != nil {
		_, to, err := m.f.Column("BusTo")
		if err != nil {
			return nil, wrapSyntax(m.path, err)
		}
		_, limit, err := m.f.Column("ThermalLimit")
		if err != nil {
			return nil, wrapSyntax(m.path, err)
		}
		_, reactance, err := m.f.Column("Reactance")
		if err != nil {
			return nil, wrapSyntax(m.path, err)
		}
		for _, k := range keys {
			l := model.Line{ID: k, From: from[k], To: to[k], ThermalLimit: math.Inf(1)}
			if l.To == "" {
				return nil, m.errorf("BusFrom", "line %s has no BusTo", k)
			}
			if s, ok := limit[k]; ok {
				if l.ThermalLimit, err = m.toFloat("ThermalLimit", k, s); err != nil {
					return nil, err
				}
			}
			if s, ok := reactance[k]; ok {
				if l.Reactance, err = m.toFloat("Reactance", k, s); err != nil {
					return nil, err
				}
			}
			lines = append(lines, l)
		}
	} else if pairs, ok := m.f.Set("TransmissionLines"); ok {
		if len(pairs)%2 != 0 {
			return nil, m.errorf("TransmissionLines", "TransmissionLines: expected bus pairs, got %d items", len(pairs))
		}
		for i := 0; i < len(pairs); i += 2 {
			lines = append(lines, model.Line{
				ID:           strconv.Itoa(i/2 + 1),
				From:         pairs[i],
				To:           pairs[i+1],
				ThermalLimit: math.Inf(1),
			})
		}
	}
	if declared >= 0 && declared != len(lines) {
		return nil, m.errorf("NumTransmissionLines", "NumTransmissionLines is %d but %d lines are defined", declared, len(lines))
	}
	return lines, nil
}

func (m mapper) demand(data *model.ModelData) error {
	entries, _, err := m.f.Indexed2("Demand")
	if err != nil {
		return wrapSyntax(m.path, err)
	}
	for _, e := range entries {
		key := e.I + "," + e.J
		t, err := m.toInt("Demand", key, e.J)
		if err != nil {
			return err
		}
		v, err := m.toFloat("Demand", key, e.Value)
		if err != nil {
			return err
		}
		dk := model.DemandKey{Bus: e.I, Period: t}
		if _, dup := data.Demand[dk]; dup {
			return m.errorf("Demand", "Demand[%s]: duplicate entry", key)
		}
		data.Demand[dk] = v
	}
	return nil
}

func (m mapper) reserve(data *model.ModelData) error {
	keys, vals, err := m.f.Column("ReserveRequirement")
	if err != nil {
		return wrapSyntax(m.path, err)
	}
	for _, k := range keys {
		t, err := m.toInt("ReserveRequirement", k, k)
		if err != nil {
			return err
		}
		v, err := m.toFloat("ReserveRequirement", k, vals[k])
		if err != nil {
			return err
		}
		data.Reserve[t] = v
	}
	return nil
}
