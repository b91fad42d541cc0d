// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript persists conversations as human-readable markdown.
//
// The format is plain enough to read and edit by hand: a metadata header
// terminated by a horizontal rule, then "## User" and "## Assistant"
// sections in order, with bold one-line markers for model switches.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/omnichat/internal/chat"
	"github.com/jeranaias/omnichat/internal/util"
)

var (
	// ErrEmptyConversation is returned when there is nothing to save.
	ErrEmptyConversation = errors.New("nothing to save, the conversation is empty")

	// ErrFileNotFound is returned when a named transcript does not exist.
	ErrFileNotFound = errors.New("transcript not found")
)

const (
	modelLinePrefix  = "**Model:** "
	promptLinePrefix = "**System prompt:** "
	switchMarkPrefix = "**[Model switched to: "
	switchMarkSuffix = "]**"
	headerRule       = "---"
)

// =============================================================================
// STORE
// =============================================================================

// Info describes one saved transcript for listing.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Store reads and writes transcripts under a single directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating transcript directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (st *Store) Dir() string {
	return st.dir
}

// List returns the saved transcripts, most recently modified first.
func (st *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("reading transcript directory %s: %w", st.dir, err)
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:    e.Name(),
			Path:    filepath.Join(st.dir, e.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the session's conversation to a markdown file and returns
// the resolved path. An empty name picks an automatic timestamped one;
// the ".md" extension is appended when missing.
func (st *Store) Save(s *chat.Session, name string) (string, error) {
	events := s.Events()
	if len(events) == 0 {
		return "", ErrEmptyConversation
	}

	if name == "" {
		model := "unknown"
		if s.ActiveModel() != nil {
			model = s.ActiveModel().Name
		}
		name = fmt.Sprintf("chat_%s_%s.md", model, time.Now().Format("20060102_150405"))
	}
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}

	path := filepath.Join(st.dir, name)
	if err := util.AtomicWriteFile(path, []byte(render(s, events)), 0600); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}

func render(s *chat.Session, events []chat.Event) string {
	var sb strings.Builder
	sb.WriteString("# Chat Transcript\n\n")
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", time.Now().Format("2006-01-02 15:04:05")))
	if m := s.ActiveModel(); m != nil {
		sb.WriteString(fmt.Sprintf("%s%s (%s)\n", modelLinePrefix, m.Name, m.Connection))
	}
	if p := s.SystemPrompt(); p != "" {
		sb.WriteString(fmt.Sprintf("%s%s\n", promptLinePrefix, firstLine(p)))
	}
	if t := s.TokensTotal(); t > 0 {
		sb.WriteString(fmt.Sprintf("**Total tokens:** %d\n", t))
	}
	sb.WriteString("\n" + headerRule + "\n")

	for _, ev := range events {
		switch ev.Kind {
		case chat.EventMessage:
			if ev.Message == nil {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n## %s\n\n%s\n", ev.Message.Role.DisplayName(), ev.Message.Content))
		case chat.EventModelSwitch:
			sb.WriteString(fmt.Sprintf("\n%s%s%s\n", switchMarkPrefix, ev.Model, switchMarkSuffix))
		case chat.EventPromptChange:
			// closes a conversation; never part of a saved one
		}
	}
	return sb.String()
}

// firstLine keeps the header one line per field.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads a transcript into the session, replacing its conversation.
// The ".md" extension is appended when missing. It returns the number of
// restored messages and, when the header names a model the catalog no
// longer resolves, a warning the caller should show.
func (st *Store) Load(s *chat.Session, name string) (restored int, warning string, err error) {
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	path := filepath.Join(st.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return 0, "", fmt.Errorf("reading transcript %s: %w", path, err)
	}

	header, body := splitHeader(string(data))

	s.StartNewChat()
	if prompt, ok := headerField(header, promptLinePrefix); ok {
		s.RestorePrompt(prompt)
	}
	if modelField, ok := headerField(header, modelLinePrefix); ok {
		// model names carry no spaces, everything after the first
		// space is display detail
		modelName, _, _ := strings.Cut(modelField, " ")
		// exact lookup only: fuzzy matching here could silently pick a
		// different model than the transcript used
		if _, ok := s.Catalog().Get(modelName); ok {
			s.SwitchModel(modelName)
		} else {
			warning = fmt.Sprintf("model %q from the transcript is not in the catalog, keeping the current model", modelName)
		}
	}

	events := parseBody(body)
	s.Restore(events)
	return len(s.Messages()), warning, nil
}

// splitHeader separates the metadata block from the conversation body at
// the first horizontal rule. Without a rule the whole file is body.
func splitHeader(content string) (header []string, body []string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == headerRule {
			return lines[:i], lines[i+1:]
		}
	}
	return nil, lines
}

func headerField(header []string, prefix string) (string, bool) {
	for _, line := range header {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

func parseBody(lines []string) []chat.Event {
	var events []chat.Event
	var role chat.Role
	var buf []string
	inSection := false

	flush := func() {
		if !inSection {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = nil
		if content == "" {
			return
		}
		m := chat.Message{Role: role, Content: content}
		events = append(events, chat.Event{Kind: chat.EventMessage, Message: &m})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case roleForHeading(trimmed) != "":
			flush()
			role = roleForHeading(trimmed)
			inSection = true
		case strings.HasPrefix(trimmed, switchMarkPrefix) && strings.HasSuffix(trimmed, switchMarkSuffix):
			flush()
			inSection = false
			model := strings.TrimSuffix(strings.TrimPrefix(trimmed, switchMarkPrefix), switchMarkSuffix)
			events = append(events, chat.Event{Kind: chat.EventModelSwitch, Model: model})
		default:
			if inSection {
				buf = append(buf, line)
			}
		}
	}
	flush()
	return events
}

func roleForHeading(line string) chat.Role {
	switch line {
	case "## User":
		return chat.RoleUser
	case "## Assistant":
		return chat.RoleAssistant
	case "## System":
		return chat.RoleSystem
	}
	return ""
}
