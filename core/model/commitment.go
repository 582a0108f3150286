package model

import (
	"fmt"
)

// UnitCommitment is the fixed on/off schedule of each generating unit.
// Rows are units in file order; columns are time periods starting at 1.
type UnitCommitment struct {
	units   []string
	status  map[string][]int
	missing []string
}

// NewUnitCommitment returns an empty schedule.
func NewUnitCommitment() *UnitCommitment {
	return &UnitCommitment{status: make(map[string][]int)}
}

// Add appends the schedule of a unit. Every status must be 0 or 1 and a unit
// may only be added once.
func (u *UnitCommitment) Add(unit string, statuses []int) error {
	if unit == "" {
		return fmt.Errorf("empty unit name")
	}
	if _, ok := u.status[unit]; ok {
		return fmt.Errorf("duplicate unit %s", unit)
	}
	for i, s := range statuses {
		if s != 0 && s != 1 {
			return fmt.Errorf("unit %s hour %d: invalid status %d", unit, i+1, s)
		}
	}
	cp := make([]int, len(statuses))
	copy(cp, statuses)
	u.units = append(u.units, unit)
	u.status[unit] = cp
	return nil
}

// AddMissing records a unit listed without any status.
func (u *UnitCommitment) AddMissing(unit string) {
	u.missing = append(u.missing, unit)
}

// Missing returns the units listed without a commitment vector.
func (u *UnitCommitment) Missing() []string {
	return append([]string(nil), u.missing...)
}

// Generators returns the unit names in the order they were added.
func (u *UnitCommitment) Generators() []string {
	cp := make([]string, len(u.units))
	copy(cp, u.units)
	return cp
}

// Len returns the number of units.
func (u *UnitCommitment) Len() int { return len(u.units) }

// Periods returns the number of time periods of the first unit, or zero for
// an empty schedule.
func (u *UnitCommitment) Periods() int {
	if len(u.units) == 0 {
		return 0
	}
	return len(u.status[u.units[0]])
}

// Schedule returns a copy of the statuses of unit.
func (u *UnitCommitment) Schedule(unit string) ([]int, bool) {
	s, ok := u.status[unit]
	if !ok {
		return nil, false
	}
	cp := make([]int, len(s))
	copy(cp, s)
	return cp, true
}

// Status returns the commitment of unit at period t (1-based).
func (u *UnitCommitment) Status(unit string, t int) (int, bool) {
	s, ok := u.status[unit]
	if !ok || t < 1 || t > len(s) {
		return 0, false
	}
	return s[t-1], true
}
