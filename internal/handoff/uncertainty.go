// Package handoff builds the completion brief from collected stage coverage
// and classifies field values as certain or uncertain. The classification is
// a single shared rule: the live summary and the final brief must never
// disagree about the same value.
package handoff

import "strings"

// Phrases that mark a stated value as uncertain. Matched case-insensitively
// as substrings, so "I haven't thought about it yet" and "Haven't thought"
// both match.
var uncertaintyPhrases = []string{
	"uncertain",
	"unknown",
	"don't know",
	"dont know",
	"not sure",
	"haven't thought",
	"havent thought",
}

// IsUncertain reports whether a captured text value should be marked as
// needing validation: missing/empty values and values expressing doubt are
// uncertain, everything else is certain.
func IsUncertain(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(v, phrase) {
			return true
		}
	}
	return false
}

// IsUncertainList is the list-valued counterpart: an empty collection is
// uncertain, a non-empty one is certain regardless of element content.
func IsUncertainList(values []string) bool {
	return len(values) == 0
}
