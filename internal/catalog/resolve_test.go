// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]Entry{
		{Name: "gpt120b", Connection: "groq/openai/gpt-oss-120b", Provider: "Groq"},
		{Name: "gpt20b", Connection: "groq/openai/gpt-oss-20b", Provider: "Groq"},
		{Name: "gemini-pro", Connection: "gemini/gemini-2.5-pro", Provider: "Google"},
		{Name: "gemini-flash", Connection: "gemini/gemini-2.5-flash", Provider: "Google"},
		{Name: "mistral-small", Connection: "mistral/mistral-small-latest", Provider: "Mistral"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty name", []Entry{{Name: "", Connection: "a/b"}}},
		{"whitespace in name", []Entry{{Name: "bad name", Connection: "a/b"}}},
		{"missing connection", []Entry{{Name: "ok", Connection: ""}}},
		{"duplicate name", []Entry{
			{Name: "dup", Connection: "a/b"},
			{Name: "dup", Connection: "c/d"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.entries); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestResolve_Exact(t *testing.T) {
	c := testCatalog(t)
	res := c.Resolve("gpt120b")
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want Matched", res.Outcome)
	}
	if res.Entry.Connection != "groq/openai/gpt-oss-120b" {
		t.Errorf("connection = %q", res.Entry.Connection)
	}
}

func TestResolve_Index(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		identifier string
		want       string
		found      bool
	}{
		{"1", "gpt120b", true},
		{"5", "mistral-small", true},
		{"0", "", false},
		{"6", "", false},
		{"007", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			res := c.Resolve(tt.identifier)
			if tt.found {
				if res.Outcome != Matched {
					t.Fatalf("outcome = %v, want Matched", res.Outcome)
				}
				if res.Entry.Name != tt.want {
					t.Errorf("name = %q, want %q", res.Entry.Name, tt.want)
				}
				return
			}
			if res.Outcome != NotFound {
				t.Fatalf("outcome = %v, want NotFound", res.Outcome)
			}
			if res.Reason == "" {
				t.Error("NotFound without a reason")
			}
		})
	}
}

func TestResolve_FuzzyCaseInsensitive(t *testing.T) {
	c := testCatalog(t)
	res := c.Resolve("MISTRAL-SMALL")
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want Matched", res.Outcome)
	}
	if res.Entry.Name != "mistral-small" {
		t.Errorf("name = %q, want mistral-small", res.Entry.Name)
	}
}

func TestResolve_SubstringAmbiguity(t *testing.T) {
	c := testCatalog(t)

	// "gemini" is a substring of two names; both clear the threshold.
	res := c.Resolve("gemini")
	if res.Outcome != Ambiguous {
		t.Fatalf("outcome = %v, want Ambiguous", res.Outcome)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	for _, cand := range res.Candidates {
		if cand.Score <= matchThreshold {
			t.Errorf("candidate %s below threshold: %f", cand.Name, cand.Score)
		}
	}
	// scores must be sorted descending
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].Score > res.Candidates[i-1].Score {
			t.Error("candidates not sorted by score")
		}
	}
}

func TestResolve_UniqueFuzzyMatch(t *testing.T) {
	c := testCatalog(t)
	res := c.Resolve("mistral")
	if res.Outcome != Matched {
		t.Fatalf("outcome = %v, want Matched", res.Outcome)
	}
	if res.Entry.Name != "mistral-small" {
		t.Errorf("name = %q, want mistral-small", res.Entry.Name)
	}
}

func TestResolve_NotFound(t *testing.T) {
	c := testCatalog(t)
	for _, id := range []string{"zzzz", "", "   "} {
		res := c.Resolve(id)
		if res.Outcome != NotFound {
			t.Errorf("Resolve(%q) outcome = %v, want NotFound", id, res.Outcome)
		}
	}
}

func TestResolve_CandidateCap(t *testing.T) {
	entries := make([]Entry, 8)
	for i := range entries {
		entries[i] = Entry{
			Name:       "model-" + string(rune('a'+i)),
			Connection: "p/m",
			Provider:   "P",
		}
	}
	c, err := New(entries)
	if err != nil {
		t.Fatal(err)
	}
	res := c.Resolve("model")
	if res.Outcome != Ambiguous {
		t.Fatalf("outcome = %v, want Ambiguous", res.Outcome)
	}
	if len(res.Candidates) != maxCandidates {
		t.Errorf("candidates = %d, want %d", len(res.Candidates), maxCandidates)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1},
		{"", "", 1},
		{"abc", "abd", 2.0 / 3.0},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		got := similarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 0.001 || diff < -0.001 {
			t.Errorf("similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestGroups(t *testing.T) {
	c := testCatalog(t)
	groups := c.Groups()
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if groups[0].Provider != "Groq" || groups[1].Provider != "Google" {
		t.Errorf("group order: %s, %s", groups[0].Provider, groups[1].Provider)
	}
	// global indexes stay stable across grouping
	if groups[1].Models[0].Index != 3 {
		t.Errorf("gemini-pro index = %d, want 3", groups[1].Models[0].Index)
	}
}
