// Package fuzzy ranks how well a query matches a string, from exact equality
// down to a loose in-order subsequence, and filters slices by that rank.
//
// Ranks follow the tiers below; a [Matches] rank carries a fractional bonus in
// [0, 1) favoring queries whose characters sit close together.
package fuzzy

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Rank float64

const (
	NoMatch Rank = iota
	Matches
	Acronym
	Contains
	WordStartsWith
	StartsWith
	Equal
	CaseSensitiveEqual
)

// RankString ranks query against value. Diacritics are ignored and, below
// [CaseSensitiveEqual], so is case.
func RankString(value, query string) Rank {
	value, query = stripDiacritics(value), stripDiacritics(query)
	if len([]rune(query)) > len([]rune(value)) {
		return NoMatch
	}
	if value == query {
		return CaseSensitiveEqual
	}

	fold := cases.Fold()
	value, query = fold.String(value), fold.String(query)
	switch {
	case value == query:
		return Equal
	case strings.HasPrefix(value, query):
		return StartsWith
	case strings.Contains(value, " "+query):
		return WordStartsWith
	case strings.Contains(value, query):
		return Contains
	case len([]rune(query)) == 1:
		return NoMatch
	case strings.Contains(acronym(value), query):
		return Acronym
	default:
		return closeness(value, query)
	}
}

// Filter returns the items for which any key ranks at least [Matches],
// best ranked first. Ties are broken by the index of the matching key, then by
// the matched value, then by the original order.
func Filter[T any](items []T, query string, keys ...func(T) string) []T {
	type ranked struct {
		item     T
		rank     Rank
		keyIndex int
		value    string
	}

	matches := make([]ranked, 0, len(items))
	for _, item := range items {
		best := ranked{item: item, rank: NoMatch}
		for i, key := range keys {
			value := key(item)
			if value == "" {
				continue
			}
			if rank := RankString(value, query); rank > best.rank {
				best.rank, best.keyIndex, best.value = rank, i, value
			}
		}
		if best.rank >= Matches {
			matches = append(matches, best)
		}
	}

	slices.SortStableFunc(matches, func(a, b ranked) int {
		return cmp.Or(
			cmp.Compare(b.rank, a.rank),
			cmp.Compare(a.keyIndex, b.keyIndex),
			strings.Compare(a.value, b.value),
		)
	})

	out := make([]T, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// acronym joins the first letter of every space or hyphen separated word.
func acronym(s string) string {
	var b strings.Builder
	for _, word := range strings.Split(s, " ") {
		for _, part := range strings.Split(word, "-") {
			if r := []rune(part); len(r) > 0 {
				b.WriteRune(r[0])
			}
		}
	}
	return b.String()
}

// closeness ranks query as an in-order subsequence of value; the closer the
// matched characters, the higher the rank within [Matches, Acronym).
func closeness(value, query string) Rank {
	v, q := []rune(value), []rune(query)

	pos, matched := 0, 0
	find := func(c rune) int {
		for j := pos; j < len(v); j++ {
			if v[j] == c {
				matched++
				return j + 1
			}
		}
		return -1
	}

	first := find(q[0])
	if first < 0 {
		return NoMatch
	}
	pos = first
	for _, c := range q[1:] {
		pos = find(c)
		if pos < 0 {
			return NoMatch
		}
	}

	spread := pos - first
	inOrder := float64(matched) / float64(len(q))
	return Matches + Rank(inOrder*(1/float64(spread)))
}
