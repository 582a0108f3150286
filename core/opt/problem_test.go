package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRow(t *testing.T) {
	var p Problem
	x := p.AddVar("x", 1)
	y := p.AddVar("y", 2)

	i, err := p.AddRow("r", []Term{{x, 1}, {y, 0}}, LE, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Len(t, p.Rows[0].Terms, 1)

	_, err = p.AddRow("empty", []Term{{y, 0}}, EQ, 0)
	assert.True(t, errors.Is(err, ErrEmptyRow))

	_, err = p.AddRow("range", []Term{{5, 1}}, EQ, 0)
	assert.Error(t, err)

	_, err = p.AddRow("inf", []Term{{x, 1}}, LE, math.Inf(1))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	var p Problem
	assert.Error(t, p.Validate())

	x := p.AddVar("x", 1)
	p.AddVar("unused", 0)
	_, err := p.AddRow("r", []Term{{x, 1}}, GE, 1)
	require.NoError(t, err)
	assert.ErrorContains(t, p.Validate(), "unused")
}

func TestValueAndCheck(t *testing.T) {
	p := Problem{Constant: 5}
	p.AddVar("x", 2)
	p.AddVar("y", -1)
	assert.Equal(t, 5+2*3-1*4.0, p.Value([]float64{3, 4}))

	s := &Solution{Primal: []float64{1}}
	assert.Error(t, s.Check(&p))
	s.Primal = []float64{1, 2}
	assert.NoError(t, s.Check(&p))
	s.Dual = []float64{1}
	assert.Error(t, s.Check(&p))
}

func TestSenseString(t *testing.T) {
	assert.Equal(t, "<=", LE.String())
	assert.Equal(t, ">=", GE.String())
	assert.Equal(t, "=", EQ.String())
	assert.Equal(t, "infeasible", Infeasible.String())
}
