package glpk

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/psst/core/opt"
)

// plainSolution is the content of a GLPK plain text solution file
// (glpsol -w). Values are indexed by GLPK row and column ordinals.
type plainSolution struct {
	kind      string // bas, ipt or mip
	status    opt.Status
	objective float64
	rowPrim   []float64
	rowDual   []float64
	colPrim   []float64
	colDual   []float64
	hasDual   bool
}

func statusOf(kind string, fields []string) opt.Status {
	if kind == "mip" {
		switch fields[0] {
		case "o", "f":
			return opt.Optimal
		case "n":
			return opt.Infeasible
		default:
			return opt.Failed
		}
	}
	p, d := fields[0], fields[1]
	switch {
	case p == "f" && d == "f":
		return opt.Optimal
	case p == "n" || p == "i":
		return opt.Infeasible
	case d == "n" || d == "i":
		return opt.Unbounded
	default:
		return opt.Failed
	}
}

// parseSolution reads a plain solution file.
func parseSolution(r io.Reader) (*plainSolution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var s *plainSolution
	line := 0
	failf := func(format string, args ...any) error {
		return fmt.Errorf("solution line %d: %s", line, fmt.Sprintf(format, args...))
	}
	parseF := func(tok string) (float64, error) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, failf("invalid number %q", tok)
		}
		return v, nil
	}
	for sc.Scan() {
		line++
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "c":
		case "s":
			if s != nil {
				return nil, failf("duplicate solution line")
			}
			if len(f) < 2 {
				return nil, failf("short solution line")
			}
			s = &plainSolution{kind: f[1]}
			want := 7
			if s.kind == "mip" {
				want = 6
			}
			if s.kind != "bas" && s.kind != "ipt" && s.kind != "mip" {
				return nil, failf("unknown solution kind %q", s.kind)
			}
			if len(f) != want {
				return nil, failf("solution line has %d fields, want %d", len(f), want)
			}
			m, err1 := strconv.Atoi(f[2])
			n, err2 := strconv.Atoi(f[3])
			if err1 != nil || err2 != nil || m < 0 || n < 0 {
				return nil, failf("invalid dimensions %s %s", f[2], f[3])
			}
			s.status = statusOf(s.kind, f[4:])
			obj, err := parseF(f[len(f)-1])
			if err != nil {
				return nil, err
			}
			s.objective = obj
			s.hasDual = s.kind != "mip"
			s.rowPrim, s.colPrim = make([]float64, m), make([]float64, n)
			if s.hasDual {
				s.rowDual, s.colDual = make([]float64, m), make([]float64, n)
			}
		case "i", "j":
			if s == nil {
				return nil, failf("%s record before solution line", f[0])
			}
			if len(f) < 3 {
				return nil, failf("short %s record", f[0])
			}
			idx, err := strconv.Atoi(f[1])
			prim, dual := s.rowPrim, s.rowDual
			if f[0] == "j" {
				prim, dual = s.colPrim, s.colDual
			}
			if err != nil || idx < 1 || idx > len(prim) {
				return nil, failf("index %s out of range", f[1])
			}
			// bas records carry a status column, ipt records do not.
			vals := f[2:]
			if s.kind == "bas" {
				if len(vals) != 3 {
					return nil, failf("expected status, primal and dual")
				}
				vals = vals[1:]
			}
			want := 2
			if !s.hasDual {
				want = 1
			}
			if len(vals) != want {
				return nil, failf("expected %d values, got %d", want, len(vals))
			}
			if prim[idx-1], err = parseF(vals[0]); err != nil {
				return nil, err
			}
			if s.hasDual {
				if dual[idx-1], err = parseF(vals[1]); err != nil {
					return nil, err
				}
			}
		case "e":
			if s == nil {
				return nil, failf("end of file before solution line")
			}
			return s, nil
		default:
			return nil, failf("unknown record %q", f[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("solution file is empty")
	}
	return s, nil
}

// toSolution maps GLPK ordinals back onto the problem. order[k] is the
// problem column of GLPK column k+1.
func (s *plainSolution) toSolution(p *opt.Problem, order []int) (*opt.Solution, error) {
	if len(s.rowPrim) != len(p.Rows) || len(s.colPrim) != len(p.Vars) {
		return nil, fmt.Errorf("solution has %d rows and %d columns, problem has %d and %d",
			len(s.rowPrim), len(s.colPrim), len(p.Rows), len(p.Vars))
	}
	sol := &opt.Solution{Status: s.status}
	if s.status != opt.Optimal {
		return sol, nil
	}
	sol.Primal = make([]float64, len(p.Vars))
	for k, j := range order {
		sol.Primal[j] = s.colPrim[k]
	}
	if s.hasDual {
		sol.Dual = append([]float64(nil), s.rowDual...)
	}
	sol.Objective = p.Value(sol.Primal)
	return sol, nil
}
