// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// =============================================================================
// RESOLUTION
// =============================================================================

const (
	// substringBonus is added when the identifier appears verbatim
	// (case-insensitively) inside a model name.
	substringBonus = 0.3

	// matchThreshold is the minimum combined score for a candidate.
	matchThreshold = 0.4

	// maxCandidates caps the suggestion list shown to the user.
	maxCandidates = 5
)

// Outcome discriminates the three resolution results.
type Outcome int

const (
	// Matched means exactly one entry was selected.
	Matched Outcome = iota
	// Ambiguous means several entries scored above the threshold.
	Ambiguous
	// NotFound means nothing matched.
	NotFound
)

// Candidate is one scored suggestion for an ambiguous identifier.
type Candidate struct {
	Name  string
	Score float64
}

// Resolution is the result of Resolve. Entry is set only when Outcome is
// Matched; Candidates only when Ambiguous; Reason only when NotFound.
type Resolution struct {
	Outcome    Outcome
	Entry      *Entry
	Candidates []Candidate
	Reason     string
}

// Resolve maps a user-supplied identifier to a catalog entry.
//
// Resolution is staged: an exact name match wins outright; an all-digit
// identifier selects by 1-based catalog position; otherwise fuzzy matching
// scores every name and the identifier resolves, suggests, or fails
// depending on how many names clear the threshold.
func (c *Catalog) Resolve(identifier string) Resolution {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Resolution{Outcome: NotFound, Reason: "empty model identifier"}
	}

	if e, ok := c.Get(identifier); ok {
		return Resolution{Outcome: Matched, Entry: e}
	}

	if isAllDigits(identifier) {
		return c.resolveIndex(identifier)
	}

	return c.resolveFuzzy(identifier)
}

func (c *Catalog) resolveIndex(identifier string) Resolution {
	n, err := strconv.Atoi(identifier)
	if err != nil || n < 1 || n > len(c.entries) {
		return Resolution{
			Outcome: NotFound,
			Reason:  fmt.Sprintf("model number %s out of range (valid: 1-%d)", identifier, len(c.entries)),
		}
	}
	return Resolution{Outcome: Matched, Entry: &c.entries[n-1]}
}

func (c *Catalog) resolveFuzzy(identifier string) Resolution {
	query := strings.ToLower(identifier)
	var candidates []Candidate
	for _, e := range c.entries {
		score := similarity(query, strings.ToLower(e.Name))
		if strings.Contains(strings.ToLower(e.Name), query) {
			score += substringBonus
		}
		if score > matchThreshold {
			candidates = append(candidates, Candidate{Name: e.Name, Score: score})
		}
	}

	switch len(candidates) {
	case 0:
		return Resolution{
			Outcome: NotFound,
			Reason:  fmt.Sprintf("no model matching %q", identifier),
		}
	case 1:
		e, _ := c.Get(candidates[0].Name)
		return Resolution{Outcome: Matched, Entry: e}
	}

	// Catalog order already breaks ties; SliceStable keeps it that way.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return Resolution{Outcome: Ambiguous, Candidates: candidates}
}

// similarity is a normalized edit-distance ratio in [0, 1]: 1 for equal
// strings, 0 for nothing in common.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)
	return 1 - float64(dist)/float64(longest)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
