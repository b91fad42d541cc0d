// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog holds the set of models the client can talk to and
// resolves user-supplied identifiers (names, numbers, typos) to entries.
package catalog

import (
	"fmt"
	"strings"
)

// =============================================================================
// ENTRIES
// =============================================================================

// Entry describes one selectable model.
type Entry struct {
	// Name is the friendly identifier users type. It must not contain
	// whitespace: the transcript header stores it space-delimited.
	Name string

	// Connection is the provider-qualified model string sent to the
	// completion layer, e.g. "groq/openai/gpt-oss-120b". The segment
	// before the first slash selects the provider.
	Connection string

	// Provider is the display grouping ("OpenAI", "Groq", ...).
	Provider string

	Description string
	UseCase     string
}

// Catalog is an ordered, immutable collection of entries. Order is the
// order entries appeared in configuration and drives numeric selection.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// New builds a catalog from entries. Duplicate names and names containing
// whitespace are rejected.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("model entry with empty name (connection %q)", e.Connection)
		}
		if strings.ContainsAny(e.Name, " \t") {
			return nil, fmt.Errorf("model name %q contains whitespace", e.Name)
		}
		if e.Connection == "" {
			return nil, fmt.Errorf("model %q has no connection string", e.Name)
		}
		if _, dup := c.byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate model name %q", e.Name)
		}
		c.byName[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Get looks up an entry by exact name.
func (c *Catalog) Get(name string) (*Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return &c.entries[i], true
}

// Names returns all friendly names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// =============================================================================
// PROVIDER GROUPING
// =============================================================================

// Indexed pairs an entry with its stable 1-based position in the catalog.
type Indexed struct {
	Index int
	Entry Entry
}

// Group is the per-provider slice used by the /models listing.
type Group struct {
	Provider string
	Models   []Indexed
}

// Groups returns the entries grouped by provider. Providers appear in the
// order of their first entry; entries keep catalog order within a group.
func (c *Catalog) Groups() []Group {
	var groups []Group
	at := make(map[string]int)
	for i, e := range c.entries {
		gi, ok := at[e.Provider]
		if !ok {
			gi = len(groups)
			at[e.Provider] = gi
			groups = append(groups, Group{Provider: e.Provider})
		}
		groups[gi].Models = append(groups[gi].Models, Indexed{Index: i + 1, Entry: e})
	}
	return groups
}
