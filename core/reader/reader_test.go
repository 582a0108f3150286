package reader

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/psst/core/model"
)

const fixtures = "../../test/testdata"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadModelFixture(t *testing.T) {
	data, err := ReadModel(filepath.Join(fixtures, "twobus.dat"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Bus1", "Bus2"}, data.Buses)
	assert.Equal(t, 3, data.NumTimePeriods)
	require.Len(t, data.Lines, 1)
	assert.Equal(t, model.Line{ID: "1", From: "Bus1", To: "Bus2", ThermalLimit: 0.5, Reactance: 0.1}, data.Lines[0])

	require.Len(t, data.Generators, 2)
	g1, ok := data.Generator("GenCo1")
	require.True(t, ok)
	assert.Equal(t, "Bus1", g1.Bus)
	assert.Equal(t, 0.5, g1.PowerT0)
	assert.Equal(t, 1, g1.UnitOnT0State)
	assert.Equal(t, 2.0, g1.MaxOutput)
	assert.True(t, g1.HasLimits)
	assert.Equal(t, 10.0, g1.CostA1)

	g2, _ := data.Generator("GenCo2")
	assert.Equal(t, "Bus2", g2.Bus)
	assert.Equal(t, -1, g2.UnitOnT0State)
	assert.Equal(t, 20.0, g2.ColdStartCost)
	assert.Equal(t, 10.0, g2.HotStartCost)
	assert.Equal(t, 5.0, g2.ShutdownCost)

	assert.Len(t, data.Demand, 3)
	assert.Equal(t, 0.8, data.DemandAt("Bus2", 2))
	assert.Len(t, data.Reserve, 3)
}

func TestReadModelQuotedPath(t *testing.T) {
	path, err := filepath.Abs(filepath.Join(fixtures, "twobus.dat"))
	require.NoError(t, err)
	data, err := ReadModel("'" + path + "'")
	require.NoError(t, err)
	assert.Len(t, data.Buses, 2)
}

func TestReadModelDefaults(t *testing.T) {
	path := writeFile(t, "m.dat", `
set Buses := Bus1 ;
set TransmissionLines := ;
set GenerationTimeInStage[SecondStage] := 1 2 ;
param: MinimumPowerOutput MaximumPowerOutput := G1 0 1 G2 0 2 ;
`)
	data, err := ReadModel(path)
	require.NoError(t, err)
	assert.Equal(t, 2, data.NumTimePeriods)
	require.Len(t, data.Generators, 2)
	assert.Equal(t, "G1", data.Generators[0].ID)
	assert.True(t, math.IsInf(data.Generators[0].RampUp, 1))
	assert.Empty(t, data.Lines)
}

func TestReadModelLinesFromSet(t *testing.T) {
	path := writeFile(t, "m.dat", "set Buses := A B C ;\nset TransmissionLines :=\nA B\nB C\n;\n")
	data, err := ReadModel(path)
	require.NoError(t, err)
	require.Len(t, data.Lines, 2)
	assert.Equal(t, "2", data.Lines[1].ID)
	assert.Equal(t, "C", data.Lines[1].To)
	assert.Zero(t, data.Lines[1].Reactance)
}

func TestReadModelFormatErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		line int
	}{
		{"syntax", "set Buses := Bus1\n", 1},
		{"line count", "param NumTransmissionLines := 2 ;\nparam: BusFrom BusTo ThermalLimit Reactance :=\n1 A B 1 0.1 ;", 1},
		{"table width", "param: BusFrom BusTo ThermalLimit Reactance :=\n1 A B 1 ;", 1},
		{"bad number", "set ThermalGenerators := G1 ;\nparam: MaximumPowerOutput := G1 abc ;", 2},
		{"bad integer", "set ThermalGenerators := G1 ;\nparam: MinimumUpTime := G1 1.5 ;", 2},
		{"unknown generator", "set ThermalGenerators := G1 ;\nparam: MaximumPowerOutput := G2 1 ;", 2},
		{"unknown bus", "set Buses := A ;\nset ThermalGenerators := G1 ;\nset ThermalGeneratorsAtBus[B] := G1 ;", 3},
		{"demand arity", "param: Demand :=\nA 1 ;", 1},
		{"duplicate demand", "param Demand := A 1 0.5 A 1 0.7 ;", 1},
		{"odd line pairs", "set TransmissionLines := A B C ;", 1},
		{"negative periods", "param NumTimePeriods := -1 ;", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "bad.dat", tc.in)
			_, err := ReadModel(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFileFormat), "got %v", err)
			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.line, fe.Line)
			assert.Equal(t, path, fe.Path)
		})
	}
}

func TestReadPathErrors(t *testing.T) {
	for _, p := range []string{"", "  ", "''", filepath.Join(t.TempDir(), "missing.dat"), t.TempDir()} {
		_, err := ReadModel(p)
		assert.True(t, errors.Is(err, ErrPath), "model %q: %v", p, err)
		_, err = ReadUnitCommitment(p)
		assert.True(t, errors.Is(err, ErrPath), "uc %q: %v", p, err)
	}
}

func TestReadUnitCommitmentFixture(t *testing.T) {
	uc, err := ReadUnitCommitment(filepath.Join(fixtures, "twobus_uc.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"GenCo1", "GenCo2"}, uc.Generators())
	assert.Equal(t, 3, uc.Periods())
	s, _ := uc.Schedule("GenCo2")
	assert.Equal(t, []int{0, 1, 0}, s)
}

func TestReadUnitCommitmentDimensions(t *testing.T) {
	var b strings.Builder
	for g := 1; g <= 5; g++ {
		b.WriteString("GenCo")
		b.WriteByte(byte('0' + g))
		b.WriteString("\n")
		for h := 0; h < 24; h++ {
			b.WriteString("\t1\n")
		}
		b.WriteString("\n")
	}
	uc, err := ReadUnitCommitment(writeFile(t, "uc.txt", b.String()))
	require.NoError(t, err)
	assert.Equal(t, 5, uc.Len())
	assert.Equal(t, 24, uc.Periods())
}

func TestReadUnitCommitmentErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		line int
	}{
		{"status first", "\t1\nG1\n", 1},
		{"bad status", "G1\n\t2\n", 2},
		{"ragged", "G1\n\t1\n\t1\nG2\n\t1\n", 4},
		{"duplicate", "G1\n\t1\nG1\n\t0\n", 3},
		{"garbage", "G1\n\t1 0\n", 2},
		{"empty", "\n\n", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadUnitCommitment(writeFile(t, "uc.txt", tc.in))
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.True(t, errors.Is(err, ErrFileFormat))
			assert.Equal(t, tc.line, fe.Line)
		})
	}
}

func TestFormatErrorMessage(t *testing.T) {
	err := &FormatError{Path: "a.dat", Line: 3, Msg: "bad"}
	assert.Equal(t, "a.dat:3: bad", err.Error())
	err = &FormatError{Path: "a.dat", Msg: "cannot open file", Err: errors.New("denied")}
	assert.Equal(t, "a.dat: cannot open file: denied", err.Error())
}

func TestReadUnitCommitmentNumericNameAndMissingVector(t *testing.T) {
	uc, err := ReadUnitCommitment(writeFile(t, "uc.txt", "GenCo1\n\t1\n\t0\n101\n\t0\n\t1\nGenCo3\nGenCo4\n\t1\n\t1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"GenCo1", "101", "GenCo4"}, uc.Generators())
	assert.Equal(t, []string{"GenCo3"}, uc.Missing())
	s, ok := uc.Schedule("101")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, s)

	_, err = ReadUnitCommitment(writeFile(t, "uc.txt", "GenCo1\n\t1\n\tGenCo2\n"))
	var fe *FormatError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, 3, fe.Line)

	_, err = ReadUnitCommitment(writeFile(t, "uc.txt", "GenCo1\nGenCo2\n"))
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Contains(t, fe.Msg, "no units")
}
