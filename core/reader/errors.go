package reader

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrPath is returned when a path argument is empty or does not exist.
	ErrPath = errors.New("invalid path")
	// ErrFileFormat is matched by every FormatError.
	ErrFileFormat = errors.New("invalid file format")
)

// FormatError describes a file that could not be read or violates the
// expected layout. Line is zero when the problem is not tied to a line.
type FormatError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports ErrFileFormat so callers can match the category.
func (e *FormatError) Is(target error) bool { return target == ErrFileFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// CleanPath strips surrounding whitespace and the single quotes the market
// simulator wraps around absolute paths.
func CleanPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "'")
}

// checkPath validates a path argument and returns the cleaned form.
func checkPath(path string) (string, error) {
	p := CleanPath(path)
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrPath)
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s not found", ErrPath, p)
		}
		return "", &FormatError{Path: p, Msg: "cannot stat file", Err: err}
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrPath, p)
	}
	return p, nil
}
