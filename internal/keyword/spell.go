package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Speller proposes corrected queries from the terms of a TermDictionary.
type Speller struct {
	dict        TermDictionary
	maxDistance int
}

// NewSpeller returns a Speller accepting corrections within maxDistance edits
// (default 2).
func NewSpeller(dict TermDictionary, maxDistance int) *Speller {
	if maxDistance <= 0 {
		maxDistance = 2
	}
	return &Speller{dict: dict, maxDistance: maxDistance}
}

type candidate struct {
	term     string
	distance int
	freq     int
}

// Suggest returns query with each unknown term replaced by its closest indexed
// term, or "" when nothing would change.
func (s *Speller) Suggest(query string) (string, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return "", nil
	}
	dict, err := s.dict.Terms()
	if err != nil {
		return "", err
	}

	changed := false
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term
		if _, ok := dict[term]; ok {
			continue
		}
		if best, ok := s.closest(term, dict); ok {
			out[i] = best
			changed = true
		}
	}
	if !changed {
		return "", nil
	}
	return strings.Join(out, " "), nil
}

// closest picks the nearest term; ties go to the more frequent, then alphabetical.
func (s *Speller) closest(term string, dict map[string]int) (string, bool) {
	n := utf8.RuneCountInString(term)
	var cands []candidate
	for t, freq := range dict {
		if diff := utf8.RuneCountInString(t) - n; diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		if d := editDistance(term, t); d <= s.maxDistance {
			cands = append(cands, candidate{term: t, distance: d, freq: freq})
		}
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		return a.term < b.term
	})
	return cands[0].term, true
}
