package reader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/psst/core/model"
)

// ReadUnitCommitment loads the commitment vector file: each unit name on its
// own line followed by one indented 0/1 status per hour. Units listed without
// statuses are recorded as missing rather than rejected.
func ReadUnitCommitment(path string) (*model.UnitCommitment, error) {
	p, err := checkPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, &FormatError{Path: p, Msg: "cannot open file", Err: err}
	}
	defer f.Close()
	return parseUnitCommitment(p, f)
}

func parseUnitCommitment(path string, r io.Reader) (*model.UnitCommitment, error) {
	uc := model.NewUnitCommitment()
	var (
		unit     string
		unitLine int
		statuses []int
		periods  = -1
	)
	flush := func() error {
		if unit == "" {
			return nil
		}
		if len(statuses) == 0 {
			uc.AddMissing(unit)
			return nil
		}
		if periods >= 0 && len(statuses) != periods {
			return &FormatError{Path: path, Line: unitLine, Msg: fmt.Sprintf("unit %s has %d periods, expected %d", unit, len(statuses), periods)}
		}
		periods = len(statuses)
		if err := uc.Add(unit, statuses); err != nil {
			return &FormatError{Path: path, Line: unitLine, Msg: err.Error()}
		}
		return nil
	}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Text()
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		// Statuses are indented; a name flush left is a unit even when numeric.
		indented := raw[0] == ' ' || raw[0] == '\t'
		if v, err := strconv.Atoi(text); err == nil && indented {
			if unit == "" {
				return nil, &FormatError{Path: path, Line: line, Msg: "commitment status before any unit name"}
			}
			if v != 0 && v != 1 {
				return nil, &FormatError{Path: path, Line: line, Msg: fmt.Sprintf("invalid commitment status %d, expected 0 or 1", v)}
			}
			statuses = append(statuses, v)
			continue
		}
		if indented || strings.ContainsAny(text, " \t") {
			return nil, &FormatError{Path: path, Line: line, Msg: fmt.Sprintf("unexpected content %q", text)}
		}
		if err := flush(); err != nil {
			return nil, err
		}
		unit, unitLine, statuses = text, line, nil
	}
	if err := sc.Err(); err != nil {
		return nil, &FormatError{Path: path, Msg: "read failed", Err: err}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if uc.Len() == 0 {
		return nil, &FormatError{Path: path, Msg: "no units found"}
	}
	return uc, nil
}
