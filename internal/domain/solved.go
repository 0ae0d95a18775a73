package domain

import (
	"strings"
	"unicode"
)

// SolvedSet is an ordered set of problem instance ids; order is solve order.
type SolvedSet []string

// ParseSolvedSet decodes the comma-joined persisted form. Blank tokens and
// repeats are dropped so a hand-edited row cannot double count.
func ParseSolvedSet(raw string) SolvedSet {
	if strings.TrimSpace(raw) == "" {
		return SolvedSet{}
	}
	set := SolvedSet{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" || set.Contains(token) {
			continue
		}
		set = append(set, token)
	}
	return set
}

// CheckContestID reports whether instance ids built from contestID survive the
// persisted form: no separator and no whitespace, which parsing would strip.
func CheckContestID(contestID string) error {
	switch {
	case contestID == "":
		return Validationf("contest id is required")
	case strings.ContainsRune(contestID, ','):
		return Validationf("contest id %q must not contain ','", contestID)
	case strings.IndexFunc(contestID, unicode.IsSpace) >= 0:
		return Validationf("contest id %q must not contain whitespace", contestID)
	}
	return nil
}

// Encode returns the comma-joined persisted form.
func (s SolvedSet) Encode() string {
	return strings.Join(s, ",")
}

func (s SolvedSet) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns a copy with id appended, or a copy of s if id is already present.
func (s SolvedSet) Add(id string) SolvedSet {
	out := make(SolvedSet, len(s), len(s)+1)
	copy(out, s)
	if s.Contains(id) {
		return out
	}
	return append(out, id)
}
