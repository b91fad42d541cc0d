// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompts maintains the library of named system prompts.
//
// The library is mutated through Add and Remove, and every successful
// mutation is written back to its TOML file before the call returns. If
// the write fails the in-memory state is rolled back so memory and disk
// never disagree.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/omnichat/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrEmptyAlias      = errors.New("prompt alias is empty")
	ErrEmptyText       = errors.New("prompt text is empty")
	ErrAliasWhitespace = errors.New("prompt alias contains whitespace")
	ErrProtected       = errors.New("prompt is protected")
	ErrNotFound        = errors.New("prompt not found")
)

// protected aliases ship with the client and cannot be removed. They can
// still be redefined.
var protected = map[string]bool{
	"default": true,
	"direct":  true,
	"coder":   true,
}

// Builtin returns the prompts the library starts with when no file exists.
func Builtin() map[string]string {
	return map[string]string{
		"default": "You are a helpful assistant.",
		"direct":  "You are a helpful assistant. Answer directly and concisely without preamble.",
		"coder":   "You are an expert programmer. Provide working code with brief explanations.",
	}
}

// =============================================================================
// LIBRARY
// =============================================================================

// Entry is one alias/text pair.
type Entry struct {
	Alias string
	Text  string
}

// Library is the prompt store. Not safe for concurrent use; the client is
// single-threaded at this layer.
type Library struct {
	path    string
	order   []string
	entries map[string]string
}

// Load reads the library from path, seeding missing built-in aliases.
// A missing file is not an error; a malformed file is.
func Load(path string) (*Library, error) {
	l := &Library{
		path:    path,
		entries: make(map[string]string),
	}

	var onDisk map[string]string
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &onDisk); err != nil {
			return nil, fmt.Errorf("parsing prompt library %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading prompt library %s: %w", path, err)
	}

	// Built-ins first in a fixed order, then user prompts alphabetically.
	builtin := Builtin()
	for _, alias := range []string{"default", "direct", "coder"} {
		text := builtin[alias]
		if t, ok := onDisk[alias]; ok {
			text = t
		}
		l.order = append(l.order, alias)
		l.entries[alias] = text
	}
	var rest []string
	for alias := range onDisk {
		if !protected[alias] {
			rest = append(rest, alias)
		}
	}
	sort.Strings(rest)
	for _, alias := range rest {
		l.order = append(l.order, alias)
		l.entries[alias] = onDisk[alias]
	}
	return l, nil
}

// Path returns the backing file path.
func (l *Library) Path() string {
	return l.path
}

// Get returns the text for an alias.
func (l *Library) Get(alias string) (string, bool) {
	text, ok := l.entries[alias]
	return text, ok
}

// List returns all entries in library order.
func (l *Library) List() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, alias := range l.order {
		out = append(out, Entry{Alias: alias, Text: l.entries[alias]})
	}
	return out
}

// IsProtected reports whether the alias is one of the built-in set.
func IsProtected(alias string) bool {
	return protected[alias]
}

// Add stores a prompt under alias, replacing any existing definition, and
// persists the library. Replaced reports whether an existing alias was
// overwritten so the caller can warn.
func (l *Library) Add(alias, text string) (replaced bool, err error) {
	alias = strings.TrimSpace(alias)
	switch {
	case alias == "":
		return false, ErrEmptyAlias
	case strings.ContainsAny(alias, " \t"):
		return false, fmt.Errorf("%w: %q", ErrAliasWhitespace, alias)
	case strings.TrimSpace(text) == "":
		return false, ErrEmptyText
	}

	prev, existed := l.entries[alias]
	l.entries[alias] = text
	if !existed {
		l.order = append(l.order, alias)
	}

	if err := l.persist(); err != nil {
		// Roll back so memory matches disk.
		if existed {
			l.entries[alias] = prev
		} else {
			delete(l.entries, alias)
			l.order = l.order[:len(l.order)-1]
		}
		return false, err
	}
	return existed, nil
}

// Remove deletes a non-protected prompt and persists the library.
func (l *Library) Remove(alias string) error {
	if protected[alias] {
		return fmt.Errorf("%w: %q cannot be removed", ErrProtected, alias)
	}
	prev, ok := l.entries[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, alias)
	}

	pos := -1
	for i, a := range l.order {
		if a == alias {
			pos = i
			break
		}
	}
	delete(l.entries, alias)
	l.order = append(l.order[:pos], l.order[pos+1:]...)

	if err := l.persist(); err != nil {
		l.entries[alias] = prev
		l.order = append(l.order, "")
		copy(l.order[pos+1:], l.order[pos:])
		l.order[pos] = alias
		return err
	}
	return nil
}

func (l *Library) persist() error {
	var sb strings.Builder
	sb.WriteString("# omnichat prompt library\n# Edit by hand or via /addprompt and /delprompt.\n\n")
	enc := toml.NewEncoder(&sb)
	if err := enc.Encode(l.entries); err != nil {
		return fmt.Errorf("encoding prompt library: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating prompt library directory: %w", err)
		}
	}
	if err := util.AtomicWriteFile(l.path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("writing prompt library: %w", err)
	}
	return nil
}
