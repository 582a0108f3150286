// Package glpk solves dispatch programs with the GLPK command-line solver.
// The problem is written in CPLEX LP format, glpsol is run on it, and the
// plain text solution it writes is read back.
package glpk

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/psst/core/factory"
	"github.com/kilianp07/psst/core/logger"
	"github.com/kilianp07/psst/core/opt"
	"github.com/kilianp07/psst/core/solver"
)

// DefaultBinary is the solver executable looked up on PATH.
const DefaultBinary = "glpsol"

const (
	problemFile  = "model.lp"
	solutionFile = "model.sol"
)

// command is swapped in tests.
var command = exec.CommandContext

// ErrSolverIO is returned for an io mode other than "lp".
var ErrSolverIO = errors.New("unsupported solver io")

// Config is read from solver.conf.
type Config struct {
	Binary  string   `json:"binary"`
	Args    []string `json:"args"`
	WorkDir string   `json:"workdir"`
}

// Backend runs glpsol.
type Backend struct {
	cfg Config
	log logger.Logger
}

// New builds a Backend from raw settings.
func New(conf map[string]any, log logger.Logger) (*Backend, error) {
	var c Config
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	return &Backend{cfg: c, log: logger.OrNop(log)}, nil
}

func (b *Backend) args(lp, sol string, opts solver.Options) []string {
	args := []string{"--lp", lp, "-w", sol}
	if opts.IsMixedInteger {
		args = append(args, "--mipgap", strconv.FormatFloat(opts.MIPGap, 'g', -1, 64))
	}
	return append(args, b.cfg.Args...)
}

// Solve implements solver.Backend.
func (b *Backend) Solve(ctx context.Context, p *opt.Problem, opts solver.Options) (*opt.Solution, error) {
	if mode := strings.ToLower(opts.SolverIO); mode != "" && mode != "lp" {
		return nil, fmt.Errorf("%w: %q", ErrSolverIO, opts.SolverIO)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(b.cfg.WorkDir, "psst-glpk-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if opts.KeepIntermediateFiles {
			b.log.Infof("solver files kept in %s", dir)
			return
		}
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			b.log.Warnf("remove %s: %v", dir, rmErr)
		}
	}()

	lpPath := filepath.Join(dir, problemFile)
	solPath := filepath.Join(dir, solutionFile)
	if err := writeFile(lpPath, p); err != nil {
		return nil, err
	}

	if err := b.run(ctx, lpPath, solPath, opts); err != nil {
		return nil, err
	}

	f, err := os.Open(solPath)
	if err != nil {
		return nil, fmt.Errorf("glpsol wrote no solution: %w", err)
	}
	defer f.Close()
	plain, err := parseSolution(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", solPath, err)
	}
	return plain.toSolution(p, columnOrder(p))
}

func writeFile(path string, p *opt.Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteLP(f, p); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (b *Backend) run(ctx context.Context, lp, sol string, opts solver.Options) error {
	cmd := command(ctx, b.cfg.Binary, b.args(lp, sol, opts)...)
	var tail bytes.Buffer
	var out io.Writer = &tail
	var pw *io.PipeWriter
	done := make(chan struct{})
	if opts.Verbose {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		out = io.MultiWriter(&tail, pw)
		go func() {
			defer close(done)
			sc := bufio.NewScanner(pr)
			for sc.Scan() {
				b.log.Infof("glpsol: %s", sc.Text())
			}
			_, _ = io.Copy(io.Discard, pr)
		}()
	} else {
		close(done)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	b.log.Debugf("running %s %s", b.cfg.Binary, strings.Join(cmd.Args[1:], " "))
	err := cmd.Run()
	if pw != nil {
		pw.Close()
	}
	<-done
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", b.cfg.Binary, err, lastLines(tail.String(), 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
