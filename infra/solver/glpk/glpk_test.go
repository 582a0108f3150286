package glpk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/psst/core/opt"
	"github.com/kilianp07/psst/core/solver"
)

func smallProblem(t *testing.T) *opt.Problem {
	t.Helper()
	p := &opt.Problem{Name: "small"}
	x := p.AddVar("x", 1)
	y := p.AddVar("y", 2)
	_, err := p.AddRow("total", []opt.Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}}, opt.EQ, 1)
	require.NoError(t, err)
	_, err = p.AddRow("xlo", []opt.Term{{Var: x, Coeff: 1}}, opt.GE, 0)
	require.NoError(t, err)
	_, err = p.AddRow("xhi", []opt.Term{{Var: x, Coeff: 1}}, opt.LE, 0.6)
	require.NoError(t, err)
	return p
}

const smallLP = `\* Problem: small *\

Minimize
 obj: + 1 x + 2 y

Subject To
 total: + 1 x + 1 y = 1
 xlo: + 1 x >= 0
 xhi: + 1 x <= 0.6

Bounds
 x free
 y free

End
`

const smallSolution = `c Problem:    small
c Rows:       3
c Columns:    2
c
s bas 3 2 f f 1.4
i 1 s 1 2
i 2 b 0.6 0
i 3 u 0.6 -1
j 1 b 0.6 0
j 2 b 0.4 0
e o f
`

func TestWriteLP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, smallProblem(t)))
	assert.Equal(t, smallLP, buf.String())
}

func TestWriteLPWrapsLongRows(t *testing.T) {
	p := &opt.Problem{}
	var terms []opt.Term
	for i := 0; i < 13; i++ {
		terms = append(terms, opt.Term{Var: p.AddVar(fmt.Sprintf("v%d", i), 0), Coeff: -1.5})
	}
	_, err := p.AddRow("sum", terms, opt.LE, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, p))
	assert.Contains(t, buf.String(), " obj: 0 v0\n")
	assert.Contains(t, buf.String(), " sum: - 1.5 v0")
	assert.Equal(t, 2, strings.Count(buf.String(), "\n  "))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "PowerGenerated(GenCo1_1)", sanitize("PowerGenerated(GenCo1_1)"))
	assert.Equal(t, "_1abc", sanitize("1abc"))
	assert.Equal(t, "_e1", sanitize("e1"))
	assert.Equal(t, "a_b", sanitize("a b"))

	p := &opt.Problem{}
	p.AddVar("a b", 0)
	p.AddVar("a_b", 0)
	p.AddVar("", 0)
	p.Rows = []opt.Row{{Name: "a_b"}}
	cols, rows := lpNames(p)
	assert.Equal(t, []string{"a_b", "a_b#2", "x3"}, cols)
	assert.Equal(t, []string{"a_b#3"}, rows)
}

func TestColumnOrder(t *testing.T) {
	p := &opt.Problem{}
	x := p.AddVar("x", 0)
	y := p.AddVar("y", 2)
	z := p.AddVar("z", 0)
	_, _ = p.AddRow("r1", []opt.Term{{Var: z, Coeff: 1}, {Var: x, Coeff: 1}}, opt.LE, 1)
	_, _ = p.AddRow("r2", []opt.Term{{Var: y, Coeff: 1}}, opt.LE, 1)
	assert.Equal(t, []int{y, z, x}, columnOrder(p))
}

func TestParseSolution(t *testing.T) {
	s, err := parseSolution(strings.NewReader(smallSolution))
	require.NoError(t, err)
	assert.Equal(t, "bas", s.kind)
	assert.Equal(t, opt.Optimal, s.status)
	assert.Equal(t, 1.4, s.objective)
	assert.Equal(t, []float64{2, 0, -1}, s.rowDual)
	assert.Equal(t, []float64{0.6, 0.4}, s.colPrim)

	mip, err := parseSolution(strings.NewReader("s mip 1 1 o 3\ni 1 3\nj 1 3\ne o f\n"))
	require.NoError(t, err)
	assert.Equal(t, opt.Optimal, mip.status)
	assert.False(t, mip.hasDual)
	assert.Equal(t, []float64{3}, mip.colPrim)

	ipt, err := parseSolution(strings.NewReader("s ipt 1 1 f f 3\ni 1 3 1\nj 1 3 0\ne o f\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, ipt.rowDual)
}

func TestParseSolutionStatus(t *testing.T) {
	cases := map[string]opt.Status{
		"s bas 1 1 n f 0\ne o f\n": opt.Infeasible,
		"s bas 1 1 f n 0\ne o f\n": opt.Unbounded,
		"s bas 1 1 u u 0\ne o f\n": opt.Failed,
		"s mip 1 1 n 0\ne o f\n":   opt.Infeasible,
	}
	for in, want := range cases {
		s, err := parseSolution(strings.NewReader(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, s.status, in)
	}
}

func TestParseSolutionErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"i 1 b 0 0\n",
		"s bas 1 1 f f\n",
		"s lp 1 1 f f 0\n",
		"s bas 1 1 f f 0\ni 2 b 0 0\n",
		"s bas 1 1 f f 0\ni 1 b x 0\n",
		"s bas 1 1 f f 0\nj 1 0 0\n",
		"s bas 1 1 f f 0\nq\n",
		"s bas 1 1 f f 0\ns bas 1 1 f f 0\n",
	} {
		_, err := parseSolution(strings.NewReader(in))
		assert.Error(t, err, "%q", in)
	}
}

func TestToSolutionDimensions(t *testing.T) {
	s, err := parseSolution(strings.NewReader("s bas 1 1 f f 0\ne o f\n"))
	require.NoError(t, err)
	_, err = s.toSolution(smallProblem(t), []int{0, 1})
	assert.Error(t, err)
}

// fakeCommand runs this test binary as glpsol.
func fakeCommand(solution string, exit int) func(context.Context, string, ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"FAKE_GLPK_SOLUTION="+solution,
			fmt.Sprintf("FAKE_GLPK_EXIT=%d", exit),
		)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	var lp, sol string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--lp":
			lp = args[i+1]
		case "-w":
			sol = args[i+1]
		}
	}
	if _, err := os.Stat(lp); err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s\n", lp)
		os.Exit(2)
	}
	fmt.Println("GLPSOL: fake")
	fmt.Println("args:", strings.Join(args[2:], " "))
	if code := os.Getenv("FAKE_GLPK_EXIT"); code != "0" {
		fmt.Println("solver error")
		os.Exit(1)
	}
	if err := os.WriteFile(sol, []byte(os.Getenv("FAKE_GLPK_SOLUTION")), 0o644); err != nil {
		os.Exit(3)
	}
	os.Exit(0)
}

type captureLog struct{ infos []string }

func (l *captureLog) Debugf(string, ...any)         {}
func (l *captureLog) Debugw(string, map[string]any) {}
func (l *captureLog) Infof(format string, args ...any) {
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}
func (l *captureLog) Warnf(string, ...any)  {}
func (l *captureLog) Errorf(string, ...any) {}

func withCommand(t *testing.T, c func(context.Context, string, ...string) *exec.Cmd) {
	t.Helper()
	orig := command
	command = c
	t.Cleanup(func() { command = orig })
}

func TestSolveWithFakeGLPK(t *testing.T) {
	withCommand(t, fakeCommand(smallSolution, 0))
	work := t.TempDir()
	log := &captureLog{}
	b, err := New(map[string]any{"workdir": work}, log)
	require.NoError(t, err)

	opts := solver.Defaults()
	opts.KeepIntermediateFiles = false
	sol, err := b.Solve(context.Background(), smallProblem(t), opts)
	require.NoError(t, err)
	assert.Equal(t, opt.Optimal, sol.Status)
	assert.Equal(t, []float64{0.6, 0.4}, sol.Primal)
	assert.Equal(t, []float64{2, 0, -1}, sol.Dual)
	assert.InDelta(t, 1.4, sol.Objective, 1e-12)

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, log.infos, "glpsol: GLPSOL: fake")
	found := false
	for _, l := range log.infos {
		if strings.Contains(l, "--mipgap 0.01") {
			found = true
		}
	}
	assert.True(t, found, "mip gap not passed: %v", log.infos)
}

func TestSolveKeepsFiles(t *testing.T) {
	withCommand(t, fakeCommand(smallSolution, 0))
	work := t.TempDir()
	b, err := New(map[string]any{"workdir": work}, nil)
	require.NoError(t, err)

	opts := solver.Defaults()
	opts.Verbose = false
	_, err = b.Solve(context.Background(), smallProblem(t), opts)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(work, "psst-glpk-*", problemFile))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	body, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, smallLP, string(body))
}

func TestSolveFailures(t *testing.T) {
	b, err := New(map[string]any{"workdir": t.TempDir()}, nil)
	require.NoError(t, err)
	opts := solver.Defaults()
	opts.KeepIntermediateFiles = false

	opts.SolverIO = "nl"
	_, err = b.Solve(context.Background(), smallProblem(t), opts)
	assert.True(t, errors.Is(err, ErrSolverIO))
	opts.SolverIO = "lp"

	withCommand(t, fakeCommand(smallSolution, 1))
	_, err = b.Solve(context.Background(), smallProblem(t), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solver error")

	withCommand(t, fakeCommand("garbage\n", 0))
	_, err = b.Solve(context.Background(), smallProblem(t), opts)
	assert.Error(t, err)

	withCommand(t, fakeCommand("s bas 3 2 n f 0\ne o f\n", 0))
	sol, err := b.Solve(context.Background(), smallProblem(t), opts)
	require.NoError(t, err)
	assert.Equal(t, opt.Infeasible, sol.Status)
}

func TestNewConfig(t *testing.T) {
	b, err := New(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBinary, b.cfg.Binary)

	b, err = New(map[string]any{"binary": "/opt/glpk/bin/glpsol", "args": []any{"--nopresol"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"--lp", "a", "-w", "b", "--nopresol"}, b.args("a", "b", solver.Options{}))

	_, err = New(map[string]any{"binry": "x"}, nil)
	assert.Error(t, err)
}
