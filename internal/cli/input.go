// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/omnichat/internal/catalog"
	"github.com/jeranaias/omnichat/internal/commands"
	"github.com/jeranaias/omnichat/internal/config"
)

// =============================================================================
// INPUT
// =============================================================================

// Input wraps liner with persistent history and slash-command completion.
type Input struct {
	line        *liner.State
	historyFile string
}

// NewInput creates the line editor, loading history and installing
// completion over command names and model names.
func NewInput(registry *commands.Registry, cat *catalog.Catalog) *Input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	in := &Input{
		line:        line,
		historyFile: filepath.Join(configDir, "history"),
	}
	in.loadHistory()
	line.SetCompleter(completer(registry, cat))
	return in
}

func completer(registry *commands.Registry, cat *catalog.Catalog) liner.Completer {
	return func(line string) []string {
		if !strings.HasPrefix(line, "/") {
			return nil
		}

		// completing a model argument for /switch
		if name, arg, ok := strings.Cut(line, " "); ok {
			if name != "/switch" && name != "/sw" {
				return nil
			}
			var out []string
			for _, model := range cat.Names() {
				if strings.HasPrefix(model, arg) {
					out = append(out, name+" "+model)
				}
			}
			return out
		}

		var out []string
		for _, name := range registry.Names() {
			if strings.HasPrefix(name, line) {
				out = append(out, name)
			}
		}
		return out
	}
}

func (in *Input) loadHistory() {
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads one line, appending non-empty input to history.
func (in *Input) ReadLine(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists history with owner-only permissions.
func (in *Input) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	in.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (in *Input) Close() {
	in.SaveHistory()
	in.line.Close()
}
