// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command surface of the client.
package commands

import (
	"errors"

	"github.com/jeranaias/omnichat/internal/chat"
	"github.com/jeranaias/omnichat/internal/config"
	"github.com/jeranaias/omnichat/internal/transcript"
	"github.com/jeranaias/omnichat/internal/usage"
)

// ErrQuit is returned by /quit; the REPL exits cleanly when it sees it.
var ErrQuit = errors.New("quit")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Context carries the collaborators handlers operate on.
type Context struct {
	Session *chat.Session
	Store   *transcript.Store
	Config  *config.Config

	// Ledger may be nil when the usage database failed to open.
	Ledger *usage.Ledger

	// Registry is the registry dispatching to these handlers; /help
	// walks it.
	Registry *Registry
}

// Command represents one slash command.
type Command struct {
	// Name is the primary command name (e.g., "/switch")
	Name string

	// Aliases are alternative names (e.g., "/sw")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/switch <model>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler executes the command and returns text for the terminal
	Handler func(ctx *Context, args []string, rawArgs string) (string, error)

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Description string
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	order    []string
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the commands in registration order.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.order))
	for _, name := range r.order {
		cmds = append(cmds, r.commands[name])
	}
	return cmds
}

// Names returns every command name and alias, for input completion.
func (r *Registry) Names() []string {
	var names []string
	for _, name := range r.order {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	return names
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Category:    "General",
		Handler:     handleHelp,
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit omnichat",
		Category:    "General",
		Handler:     handleQuit,
	})

	r.Register(&Command{
		Name:        "/models",
		Aliases:     []string{"/m"},
		Description: "List models grouped by provider",
		Category:    "Models",
		Handler:     handleModels,
	})
	r.Register(&Command{
		Name:        "/switch",
		Aliases:     []string{"/sw"},
		Description: "Switch the active model by name, number, or fuzzy match",
		Usage:       "/switch <model>",
		Args:        []ArgDef{{Name: "model", Required: true, Description: "model name, 1-based number, or partial name"}},
		Category:    "Models",
		Handler:     handleSwitch,
	})

	r.Register(&Command{
		Name:        "/system",
		Aliases:     []string{"/sys"},
		Description: "Set the system prompt (starts a new conversation)",
		Usage:       "/system <alias or prompt text>",
		Args:        []ArgDef{{Name: "prompt", Required: true, Description: "prompt alias or verbatim text"}},
		Category:    "Conversation",
		Handler:     handleSystem,
	})
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Category:    "Conversation",
		Handler:     handleNew,
	})
	r.Register(&Command{
		Name:        "/stats",
		Description: "Show session statistics",
		Usage:       "/stats [all]",
		Category:    "Conversation",
		Handler:     handleStats,
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the conversation to markdown",
		Usage:       "/save [name]",
		Args:        []ArgDef{{Name: "name", Description: "file name, auto-generated when omitted"}},
		Category:    "Transcripts",
		Handler:     handleSave,
	})
	r.Register(&Command{
		Name:        "/load",
		Aliases:     []string{"/l"},
		Description: "Load a saved conversation",
		Usage:       "/load <name>",
		Args:        []ArgDef{{Name: "name", Required: true, Description: "transcript file name"}},
		Category:    "Transcripts",
		Handler:     handleLoad,
	})
	r.Register(&Command{
		Name:        "/list",
		Aliases:     []string{"/ls"},
		Description: "List saved conversations",
		Category:    "Transcripts",
		Handler:     handleList,
	})

	r.Register(&Command{
		Name:        "/set",
		Description: "Set a sampling parameter, or reset one with none/default",
		Usage:       "/set <parameter> <value>",
		Args: []ArgDef{
			{Name: "parameter", Required: true, Description: "temperature, max_tokens, top_p, presence_penalty, frequency_penalty"},
			{Name: "value", Required: true, Description: "number, or none/default to unset"},
		},
		Category: "Parameters",
		Handler:  handleSet,
	})
	r.Register(&Command{
		Name:        "/reset",
		Description: "Reset all sampling parameters to defaults",
		Category:    "Parameters",
		Handler:     handleReset,
	})

	r.Register(&Command{
		Name:        "/prompts",
		Description: "List system prompt aliases",
		Category:    "Prompts",
		Handler:     handlePrompts,
	})
	r.Register(&Command{
		Name:        "/addprompt",
		Description: "Add or replace a prompt alias",
		Usage:       "/addprompt <alias> <text>",
		Args: []ArgDef{
			{Name: "alias", Required: true, Description: "alias without whitespace"},
			{Name: "text", Required: true, Description: "the prompt text"},
		},
		Category: "Prompts",
		Handler:  handleAddPrompt,
	})
	r.Register(&Command{
		Name:        "/delprompt",
		Description: "Delete a prompt alias",
		Usage:       "/delprompt <alias>",
		Args:        []ArgDef{{Name: "alias", Required: true, Description: "alias to delete"}},
		Category:    "Prompts",
		Handler:     handleDelPrompt,
	})
}
