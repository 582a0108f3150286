package glpk

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/psst/core/opt"
)

const termsPerLine = 6

// lpNames returns column and row names valid in CPLEX LP syntax and unique
// across both sets.
func lpNames(p *opt.Problem) (cols, rows []string) {
	used := make(map[string]bool, len(p.Vars)+len(p.Rows))
	unique := func(name, fallback string) string {
		s := sanitize(name)
		if s == "" {
			s = fallback
		}
		base := s
		for i := 2; used[s]; i++ {
			s = base + "#" + strconv.Itoa(i)
		}
		used[s] = true
		return s
	}
	cols = make([]string, len(p.Vars))
	for i, v := range p.Vars {
		cols[i] = unique(v.Name, "x"+strconv.Itoa(i+1))
	}
	rows = make([]string, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = unique(r.Name, "c"+strconv.Itoa(i+1))
	}
	return cols, rows
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("!\"#$%&()/,.;?@_`'{}|~", r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 255 {
		s = s[:255]
	}
	if s != "" && (s[0] == '.' || (s[0] >= '0' && s[0] <= '9') || s[0] == 'e' || s[0] == 'E') {
		s = "_" + s
	}
	return s
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeTerms(w *bufio.Writer, names []string, terms []opt.Term) {
	for i, t := range terms {
		if i > 0 && i%termsPerLine == 0 {
			w.WriteString("\n  ")
		}
		if t.Coeff < 0 {
			fmt.Fprintf(w, " - %s %s", num(-t.Coeff), names[t.Var])
		} else {
			fmt.Fprintf(w, " + %s %s", num(t.Coeff), names[t.Var])
		}
	}
}

// WriteLP writes p in CPLEX LP format. The objective constant is left out;
// callers add it back. All columns are declared free.
func WriteLP(out io.Writer, p *opt.Problem) error {
	cols, rows := lpNames(p)
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "\\* Problem: %s *\\\n\n", sanitize(p.Name))
	w.WriteString("Minimize\n obj:")
	var obj []opt.Term
	for j, v := range p.Vars {
		if v.Cost != 0 {
			obj = append(obj, opt.Term{Var: j, Coeff: v.Cost})
		}
	}
	if len(obj) == 0 {
		// An empty objective still needs a column reference.
		fmt.Fprintf(w, " 0 %s", cols[0])
	}
	writeTerms(w, cols, obj)
	w.WriteString("\n\nSubject To\n")
	for i, r := range p.Rows {
		fmt.Fprintf(w, " %s:", rows[i])
		writeTerms(w, cols, r.Terms)
		fmt.Fprintf(w, " %s %s\n", r.Sense, num(r.RHS))
	}
	w.WriteString("\nBounds\n")
	for _, c := range cols {
		fmt.Fprintf(w, " %s free\n", c)
	}
	w.WriteString("\nEnd\n")
	return w.Flush()
}

// columnOrder returns, for each GLPK column ordinal, the problem column it
// refers to. GLPK numbers columns by first appearance in the LP file.
func columnOrder(p *opt.Problem) []int {
	seen := make([]bool, len(p.Vars))
	order := make([]int, 0, len(p.Vars))
	add := func(j int) {
		if !seen[j] {
			seen[j] = true
			order = append(order, j)
		}
	}
	hasObj := false
	for j, v := range p.Vars {
		if v.Cost != 0 {
			add(j)
			hasObj = true
		}
	}
	if !hasObj && len(p.Vars) > 0 {
		add(0)
	}
	for _, r := range p.Rows {
		for _, t := range r.Terms {
			add(t.Var)
		}
	}
	for j := range p.Vars {
		add(j)
	}
	return order
}
