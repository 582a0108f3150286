// Package dat parses the subset of the AMPL/Pyomo data file syntax written by
// the market simulator: set and param statements terminated by semicolons.
package dat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SyntaxError reports a malformed statement.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// Set is a `set NAME := ... ;` statement.
type Set struct {
	Name  string
	Line  int
	Items []string
}

// Param is a single `param NAME := ... ;` statement. Values holds the raw
// tokens; their index arity is decided by the consumer.
type Param struct {
	Name   string
	Line   int
	Values []string
}

// Table is a `param: A B C := key a b c ... ;` statement. Values holds the
// raw tokens after `:=`; Split groups them once the key arity is known.
type Table struct {
	Line    int
	Columns []string
	Values  []string
}

// Split groups the table values into rows of arity key tokens followed by one
// value per column.
func (t Table) Split(arity int) (keys [][]string, rows [][]string, err error) {
	width := arity + len(t.Columns)
	if len(t.Values)%width != 0 {
		return nil, nil, &SyntaxError{Line: t.Line, Msg: fmt.Sprintf("table %s has %d values, not a multiple of %d (%d keys + %d columns)",
			strings.Join(t.Columns, " "), len(t.Values), width, arity, len(t.Columns))}
	}
	for i := 0; i < len(t.Values); i += width {
		keys = append(keys, t.Values[i:i+arity])
		rows = append(rows, t.Values[i+arity:i+width])
	}
	return keys, rows, nil
}

// File holds every statement of a data file.
type File struct {
	Sets   map[string]Set
	Params map[string]Param
	Tables []Table
}

type token struct {
	text string
	line int
}

// Parse reads a data file from r.
func Parse(r io.Reader) (*File, error) {
	toks, err := tokenize(r)
	if err != nil {
		return nil, err
	}
	f := &File{Sets: make(map[string]Set), Params: make(map[string]Param)}
	seen := make(map[string]int)
	var stmt []token
	for _, tk := range toks {
		if tk.text != ";" {
			stmt = append(stmt, tk)
			continue
		}
		if len(stmt) == 0 {
			continue
		}
		if err := f.statement(stmt, seen); err != nil {
			return nil, err
		}
		stmt = stmt[:0]
	}
	if len(stmt) > 0 {
		return nil, &SyntaxError{Line: stmt[0].line, Msg: fmt.Sprintf("unterminated %s statement", stmt[0].text)}
	}
	return f, nil
}

func (f *File) statement(stmt []token, seen map[string]int) error {
	line := stmt[0].line
	define := func(name string) error {
		if prev, ok := seen[name]; ok {
			return &SyntaxError{Line: line, Msg: fmt.Sprintf("%s already defined on line %d", name, prev)}
		}
		seen[name] = line
		return nil
	}
	switch stmt[0].text {
	case "set":
		if len(stmt) < 3 || stmt[2].text != ":=" {
			return &SyntaxError{Line: line, Msg: "expected set NAME := ..."}
		}
		name := stmt[1].text
		if err := define(name); err != nil {
			return err
		}
		items, err := words(stmt[3:])
		if err != nil {
			return err
		}
		f.Sets[name] = Set{Name: name, Line: line, Items: items}
	case "param":
		if len(stmt) >= 2 && stmt[1].text == ":" {
			return f.table(stmt[2:], line, define)
		}
		if len(stmt) < 3 || stmt[2].text != ":=" {
			return &SyntaxError{Line: line, Msg: "expected param NAME := ..."}
		}
		name := stmt[1].text
		if err := define(name); err != nil {
			return err
		}
		vals, err := words(stmt[3:])
		if err != nil {
			return err
		}
		f.Params[name] = Param{Name: name, Line: line, Values: vals}
	default:
		return &SyntaxError{Line: line, Msg: fmt.Sprintf("unknown statement %q", stmt[0].text)}
	}
	return nil
}

func (f *File) table(rest []token, line int, define func(string) error) error {
	sep := -1
	for i, tk := range rest {
		if tk.text == ":=" {
			sep = i
			break
		}
	}
	if sep <= 0 {
		return &SyntaxError{Line: line, Msg: "expected param: COLUMNS := ..."}
	}
	cols, err := words(rest[:sep])
	if err != nil {
		return err
	}
	for _, c := range cols {
		if err := define(c); err != nil {
			return err
		}
	}
	vals, err := words(rest[sep+1:])
	if err != nil {
		return err
	}
	t := Table{Line: line, Columns: cols, Values: vals}
	f.Tables = append(f.Tables, t)
	return nil
}

func words(toks []token) ([]string, error) {
	out := make([]string, len(toks))
	for i, tk := range toks {
		if tk.text == ":=" || tk.text == ":" {
			return nil, &SyntaxError{Line: tk.line, Msg: fmt.Sprintf("unexpected %q", tk.text)}
		}
		out[i] = tk.text
	}
	return out, nil
}

func tokenize(r io.Reader) ([]token, error) {
	var toks []token
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		var cur strings.Builder
		flush := func() {
			if cur.Len() > 0 {
				toks = append(toks, token{text: cur.String(), line: line})
				cur.Reset()
			}
		}
		for i := 0; i < len(text); i++ {
			c := text[i]
			switch {
			case c == ' ' || c == '\t' || c == '\r':
				flush()
			case c == ';':
				flush()
				toks = append(toks, token{text: ";", line: line})
			case c == ':':
				flush()
				if i+1 < len(text) && text[i+1] == '=' {
					toks = append(toks, token{text: ":=", line: line})
					i++
				} else {
					toks = append(toks, token{text: ":", line: line})
				}
			default:
				cur.WriteByte(c)
			}
		}
		flush()
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return toks, nil
}

// Set returns the items of a set.
func (f *File) Set(name string) ([]string, bool) {
	s, ok := f.Sets[name]
	return s.Items, ok
}

// IndexedSets returns every set named prefix[IDX] keyed by IDX.
func (f *File) IndexedSets(prefix string) map[string]Set {
	out := make(map[string]Set)
	for name, s := range f.Sets {
		if strings.HasPrefix(name, prefix+"[") && strings.HasSuffix(name, "]") {
			out[name[len(prefix)+1:len(name)-1]] = s
		}
	}
	return out
}

// Scalar returns the single value of a scalar param.
func (f *File) Scalar(name string) (string, int, error) {
	p, ok := f.Params[name]
	if !ok {
		return "", 0, nil
	}
	if len(p.Values) != 1 {
		return "", p.Line, &SyntaxError{Line: p.Line, Msg: fmt.Sprintf("%s: expected a single value, got %d", name, len(p.Values))}
	}
	return p.Values[0], p.Line, nil
}

// Column returns a one-index param as key -> value, looking it up both as a
// standalone param and as a table column. Keys preserve file order.
func (f *File) Column(name string) ([]string, map[string]string, error) {
	if p, ok := f.Params[name]; ok {
		if len(p.Values)%2 != 0 {
			return nil, nil, &SyntaxError{Line: p.Line, Msg: fmt.Sprintf("%s: expected key/value pairs, got %d values", name, len(p.Values))}
		}
		keys := make([]string, 0, len(p.Values)/2)
		vals := make(map[string]string, len(p.Values)/2)
		for i := 0; i < len(p.Values); i += 2 {
			if _, dup := vals[p.Values[i]]; dup {
				return nil, nil, &SyntaxError{Line: p.Line, Msg: fmt.Sprintf("%s: duplicate key %s", name, p.Values[i])}
			}
			keys = append(keys, p.Values[i])
			vals[p.Values[i]] = p.Values[i+1]
		}
		return keys, vals, nil
	}
	for _, t := range f.Tables {
		for ci, c := range t.Columns {
			if c != name {
				continue
			}
			rowKeys, rows, err := t.Split(1)
			if err != nil {
				return nil, nil, err
			}
			keys := make([]string, 0, len(rowKeys))
			vals := make(map[string]string, len(rowKeys))
			for ri, k := range rowKeys {
				if _, dup := vals[k[0]]; dup {
					return nil, nil, &SyntaxError{Line: t.Line, Msg: fmt.Sprintf("%s: duplicate key %s", name, k[0])}
				}
				keys = append(keys, k[0])
				vals[k[0]] = rows[ri][ci]
			}
			return keys, vals, nil
		}
	}
	return nil, nil, nil
}

// Entry is one value of a two-index param.
type Entry struct {
	I, J  string
	Value string
}

// Indexed2 returns a two-index param such as Demand as ordered triples.
func (f *File) Indexed2(name string) ([]Entry, int, error) {
	p, ok := f.Params[name]
	if !ok {
		for _, t := range f.Tables {
			if len(t.Columns) == 1 && t.Columns[0] == name {
				p = Param{Name: name, Line: t.Line, Values: t.Values}
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, 0, nil
	}
	if len(p.Values)%3 != 0 {
		return nil, p.Line, &SyntaxError{Line: p.Line, Msg: fmt.Sprintf("%s: expected index index value triples, got %d values", name, len(p.Values))}
	}
	out := make([]Entry, 0, len(p.Values)/3)
	for i := 0; i < len(p.Values); i += 3 {
		out = append(out, Entry{I: p.Values[i], J: p.Values[i+1], Value: p.Values[i+2]})
	}
	return out, p.Line, nil
}

// Line returns the line of the statement defining name, or zero.
func (f *File) Line(name string) int {
	if s, ok := f.Sets[name]; ok {
		return s.Line
	}
	if p, ok := f.Params[name]; ok {
		return p.Line
	}
	for _, t := range f.Tables {
		for _, c := range t.Columns {
			if c == name {
				return t.Line
			}
		}
	}
	return 0
}
