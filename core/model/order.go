package model

import (
	"sort"
	"strings"
)

// NaturalLess orders identifiers so that embedded numbers compare by value:
// "GenCo2" sorts before "GenCo10".
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, ra := leadingDigits(a)
			nb, rb := leadingDigits(b)
			ta := strings.TrimLeft(na, "0")
			tb := strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

// SortNatural returns a sorted copy of ids using NaturalLess.
func SortNatural(ids []string) []string {
	cp := make([]string, len(ids))
	copy(cp, ids)
	sort.SliceStable(cp, func(i, j int) bool { return NaturalLess(cp[i], cp[j]) })
	return cp
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}
