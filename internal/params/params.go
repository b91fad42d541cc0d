// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package params manages the tunable sampling parameters of a session.
//
// Each parameter is optional: an unset parameter is omitted from outgoing
// requests so the provider's own default applies. "none" or "default"
// resets a single parameter back to unset.
package params

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownParameter is returned for names outside the fixed set.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidType is returned when the raw value does not parse as
	// the parameter's type.
	ErrInvalidType = errors.New("invalid value type")
)

// RangeError reports a parsed value outside the allowed bounds.
type RangeError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
	// Unbounded marks a parameter with no upper limit (max_tokens).
	Unbounded bool
}

func (e *RangeError) Error() string {
	if e.Unbounded {
		return fmt.Sprintf("%s must be >= %g, got %g", e.Name, e.Min, e.Value)
	}
	return fmt.Sprintf("%s must be in [%g, %g], got %g", e.Name, e.Min, e.Max, e.Value)
}

// =============================================================================
// PARAMETER SET
// =============================================================================

// Set holds the five supported sampling parameters. A nil field means
// unset. The zero value is ready to use with everything unset.
type Set struct {
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

type spec struct {
	name      string
	integer   bool
	min       float64
	max       float64
	unbounded bool
	assign    func(*Set, float64)
	clear     func(*Set)
	current   func(*Set) (float64, bool)
}

// specs is the closed parameter table; order drives display.
var specs = []spec{
	{
		name: "temperature", min: 0, max: 2,
		assign:  func(s *Set, v float64) { s.Temperature = &v },
		clear:   func(s *Set) { s.Temperature = nil },
		current: func(s *Set) (float64, bool) { return deref(s.Temperature) },
	},
	{
		name: "max_tokens", integer: true, min: 1, unbounded: true,
		assign: func(s *Set, v float64) { n := int(v); s.MaxTokens = &n },
		clear:  func(s *Set) { s.MaxTokens = nil },
		current: func(s *Set) (float64, bool) {
			if s.MaxTokens == nil {
				return 0, false
			}
			return float64(*s.MaxTokens), true
		},
	},
	{
		name: "top_p", min: 0, max: 1,
		assign:  func(s *Set, v float64) { s.TopP = &v },
		clear:   func(s *Set) { s.TopP = nil },
		current: func(s *Set) (float64, bool) { return deref(s.TopP) },
	},
	{
		name: "presence_penalty", min: -2, max: 2,
		assign:  func(s *Set, v float64) { s.PresencePenalty = &v },
		clear:   func(s *Set) { s.PresencePenalty = nil },
		current: func(s *Set) (float64, bool) { return deref(s.PresencePenalty) },
	},
	{
		name: "frequency_penalty", min: -2, max: 2,
		assign:  func(s *Set, v float64) { s.FrequencyPenalty = &v },
		clear:   func(s *Set) { s.FrequencyPenalty = nil },
		current: func(s *Set) (float64, bool) { return deref(s.FrequencyPenalty) },
	},
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func lookup(name string) (*spec, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range specs {
		if specs[i].name == name {
			return &specs[i], true
		}
	}
	return nil, false
}

// Names returns the supported parameter names in display order.
func Names() []string {
	names := make([]string, len(specs))
	for i, sp := range specs {
		names[i] = sp.name
	}
	return names
}

// Apply sets one parameter from its raw string form. "none" and "default"
// (any case) unset the named parameter.
func (s *Set) Apply(name, raw string) error {
	sp, ok := lookup(name)
	if !ok {
		sorted := Names()
		sort.Strings(sorted)
		return fmt.Errorf("%w %q (supported: %s)", ErrUnknownParameter, name, strings.Join(sorted, ", "))
	}

	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "none", "default":
		sp.clear(s)
		return nil
	}

	var v float64
	if sp.integer {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidType, sp.name, raw)
		}
		v = float64(n)
	} else {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidType, sp.name, raw)
		}
		v = f
	}

	if v < sp.min || (!sp.unbounded && v > sp.max) {
		return &RangeError{Name: sp.name, Value: v, Min: sp.min, Max: sp.max, Unbounded: sp.unbounded}
	}

	sp.assign(s, v)
	return nil
}

// Reset unsets every parameter.
func (s *Set) Reset() {
	for i := range specs {
		specs[i].clear(s)
	}
}

// Value is one explicitly-set parameter for display.
type Value struct {
	Name    string
	Value   float64
	Integer bool
}

func (v Value) String() string {
	if v.Integer {
		return fmt.Sprintf("%s=%d", v.Name, int(v.Value))
	}
	return fmt.Sprintf("%s=%g", v.Name, v.Value)
}

// Effective returns only the parameters a user has set, in display order.
func (s *Set) Effective() []Value {
	var out []Value
	for i := range specs {
		if v, ok := specs[i].current(s); ok {
			out = append(out, Value{Name: specs[i].name, Value: v, Integer: specs[i].integer})
		}
	}
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c := &Set{}
	for i := range specs {
		if v, ok := specs[i].current(s); ok {
			specs[i].assign(c, v)
		}
	}
	return c
}
