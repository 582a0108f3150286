// Package report writes the flat text result file read back by the
// market simulator.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrMissingResult is returned when a value cannot be read from the model.
	ErrMissingResult = errors.New("missing result")
	// ErrIOWrite wraps failures creating or writing the output file.
	ErrIOWrite = errors.New("write output")
)

// SolutionHours is the fixed width of the HAS_SOLUTION section.
const SolutionHours = 24

// Results is the read side of a solved model.
type Results interface {
	Solved() bool
	Generators() []string
	Buses() []string
	TimePeriods() []int
	PowerGenerated(g string, t int) (float64, error)
	ProductionCost(g string, t int) (float64, error)
	StartupCost(g string, t int) (float64, error)
	ShutdownCost(g string, t int) (float64, error)
	Angle(b string, t int) (float64, error)
	LMP(b string, t int) (float64, error)
}

func missing(err error) error {
	return fmt.Errorf("%w: %w", ErrMissingResult, err)
}

// Write renders r to w.
func Write(w io.Writer, r Results) error {
	if r == nil || !r.Solved() {
		return fmt.Errorf("%w: model has no solution", ErrMissingResult)
	}
	bw := bufio.NewWriter(w)
	for _, section := range []func(*bufio.Writer, Results) error{
		writeLMP, writeGenCo, writeAngles, writeTail,
	} {
		if err := section(bw, r); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIOWrite, err)
	}
	return nil
}

// writeLMP numbers buses from 1 within every hour.
func writeLMP(w *bufio.Writer, r Results) error {
	w.WriteString("LMP\n")
	for _, t := range r.TimePeriods() {
		for i, b := range r.Buses() {
			v, err := r.LMP(b, t)
			if err != nil {
				return missing(err)
			}
			fmt.Fprintf(w, "%d : %d : %s\n", i+1, t, FormatFloat(v))
		}
	}
	w.WriteString("END_LMP\n")
	return nil
}

func writeGenCo(w *bufio.Writer, r Results) error {
	w.WriteString("GenCoResults\n")
	for _, g := range r.Generators() {
		for _, t := range r.TimePeriods() {
			var vals [4]float64
			for i, f := range []func(string, int) (float64, error){
				r.PowerGenerated, r.ProductionCost, r.StartupCost, r.ShutdownCost,
			} {
				v, err := f(g, t)
				if err != nil {
					return missing(err)
				}
				vals[i] = v
			}
			fmt.Fprintf(w, "%-8sHour: %d\tPowerGenerated: %s\tProductionCost: %s\tStartupCost: %s\tShutdownCost: %s\n",
				g, t, FormatFloat(vals[0]), FormatFloat(vals[1]), FormatFloat(vals[2]), FormatFloat(vals[3]))
		}
	}
	w.WriteString("END_GenCoResults\n")
	return nil
}

func writeAngles(w *bufio.Writer, r Results) error {
	w.WriteString("VOLTAGE_ANGLES\n")
	for _, b := range r.Buses() {
		for _, t := range r.TimePeriods() {
			v, err := r.Angle(b, t)
			if err != nil {
				return missing(err)
			}
			fmt.Fprintf(w, "%s %d : %s\n", b, t, FormatFloat(v))
		}
	}
	w.WriteString("END_VOLTAGE_ANGLES\n")
	return nil
}

func writeTail(w *bufio.Writer, _ Results) error {
	w.WriteString("DAILY_BRANCH_LMP\nEND_DAILY_BRANCH_LMP\n")
	w.WriteString("DAILY_PRICE_SENSITIVE_DEMAND\nEND_DAILY_PRICE_SENSITIVE_DEMAND\n")
	w.WriteString("HAS_SOLUTION\n")
	w.WriteString(strings.Repeat("1\t", SolutionHours))
	w.WriteString("\nEND_HAS_SOLUTION\n")
	return nil
}

// WriteFile renders r into path. The report is written to a temporary file
// in the same directory and renamed into place once complete.
func WriteFile(path string, r Results) error {
	if r == nil || !r.Solved() {
		return fmt.Errorf("%w: model has no solution", ErrMissingResult)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOWrite, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrIOWrite, err)
	}

	if err := Write(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIOWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrIOWrite, err)
	}
	return nil
}
