// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/omnichat/internal/catalog"
	"github.com/jeranaias/omnichat/internal/prompts"
	"github.com/jeranaias/omnichat/internal/usage"
	"github.com/jeranaias/omnichat/internal/util"
)

// =============================================================================
// GENERAL
// =============================================================================

func handleHelp(ctx *Context, args []string, _ string) (string, error) {
	reg := ctx.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	if len(args) > 0 {
		name := args[0]
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		cmd := reg.Get(name)
		if cmd == nil {
			return "", fmt.Errorf("unknown command %s, try /help", name)
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s - %s\n", cmd.Name, cmd.Description))
		if cmd.Usage != "" {
			sb.WriteString(fmt.Sprintf("usage: %s\n", cmd.Usage))
		}
		if len(cmd.Aliases) > 0 {
			sb.WriteString(fmt.Sprintf("aliases: %s\n", strings.Join(cmd.Aliases, ", ")))
		}
		for _, a := range cmd.Args {
			req := ""
			if a.Required {
				req = " (required)"
			}
			sb.WriteString(fmt.Sprintf("  %-12s %s%s\n", a.Name, a.Description, req))
		}
		return sb.String(), nil
	}

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	lastCategory := ""
	for _, cmd := range reg.All() {
		if cmd.Category != lastCategory {
			sb.WriteString(fmt.Sprintf("\n%s:\n", cmd.Category))
			lastCategory = cmd.Category
		}
		label := cmd.Name
		if cmd.Usage != "" {
			label = cmd.Usage
		}
		sb.WriteString(fmt.Sprintf("  %-34s %s\n", label, cmd.Description))
	}
	sb.WriteString("\nAnything else you type is sent to the active model.\n")
	return sb.String(), nil
}

func handleQuit(_ *Context, _ []string, _ string) (string, error) {
	return "", ErrQuit
}

// =============================================================================
// MODELS
// =============================================================================

func handleModels(ctx *Context, _ []string, _ string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Available models:\n")
	active := ""
	if m := ctx.Session.ActiveModel(); m != nil {
		active = m.Name
	}
	for _, group := range ctx.Session.Catalog().Groups() {
		sb.WriteString(fmt.Sprintf("\n%s:\n", group.Provider))
		for _, im := range group.Models {
			marker := "  "
			if im.Entry.Name == active {
				marker = "* "
			}
			sb.WriteString(fmt.Sprintf("%s%2d. %-16s %s", marker, im.Index, im.Entry.Name, im.Entry.Description))
			if im.Entry.UseCase != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", im.Entry.UseCase))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nSwitch with /switch <name or number>.\n")
	return sb.String(), nil
}

func handleSwitch(ctx *Context, args []string, _ string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: /switch <model>")
	}
	res := ctx.Session.SwitchModel(args[0])
	switch res.Outcome {
	case catalog.Matched:
		return fmt.Sprintf("Switched to %s (%s)\n", res.Entry.Name, res.Entry.Connection), nil
	case catalog.Ambiguous:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%q matches several models:\n", args[0]))
		indexOf := make(map[string]int)
		for i, name := range ctx.Session.Catalog().Names() {
			indexOf[name] = i + 1
		}
		for _, cand := range res.Candidates {
			sb.WriteString(fmt.Sprintf("  %2d. %-16s (similarity %.2f)\n", indexOf[cand.Name], cand.Name, cand.Score))
		}
		sb.WriteString("Pick one with /switch <name> or /switch <number>.\n")
		return sb.String(), nil
	default:
		return "", fmt.Errorf("%s, see /models", res.Reason)
	}
}

// =============================================================================
// CONVERSATION
// =============================================================================

func handleSystem(ctx *Context, args []string, rawArgs string) (string, error) {
	text := strings.TrimSpace(rawArgs)
	if len(args) == 0 || text == "" {
		return "", errors.New("usage: /system <alias or prompt text>")
	}
	if ctx.Session.SetSystemPrompt(text) {
		return fmt.Sprintf("System prompt set from alias %q. Started a new conversation.\n", text), nil
	}
	return "System prompt updated. Started a new conversation.\n", nil
}

func handleNew(ctx *Context, _ []string, _ string) (string, error) {
	ctx.Session.StartNewChat()
	return "Started a new conversation.\n", nil
}

func handleStats(ctx *Context, args []string, _ string) (string, error) {
	var sb strings.Builder

	model := "(none, use /switch)"
	if m := ctx.Session.ActiveModel(); m != nil {
		model = fmt.Sprintf("%s (%s)", m.Name, m.Connection)
	}
	sb.WriteString(fmt.Sprintf("Model:          %s\n", model))
	sb.WriteString(fmt.Sprintf("System prompt:  %s\n", oneLine(ctx.Session.SystemPrompt())))
	sb.WriteString(fmt.Sprintf("Messages:       %d\n", len(ctx.Session.Messages())))
	sb.WriteString(fmt.Sprintf("Session tokens: %d\n", ctx.Session.TokensTotal()))

	byModel := ctx.Session.TokensByModel()
	if len(byModel) > 0 {
		names := make([]string, 0, len(byModel))
		for name := range byModel {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  %-16s %d\n", name, byModel[name]))
		}
	}

	if vals := ctx.Session.Params().Effective(); len(vals) > 0 {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v.String()
		}
		sb.WriteString(fmt.Sprintf("Parameters:     %s\n", strings.Join(parts, ", ")))
	} else {
		sb.WriteString("Parameters:     provider defaults\n")
	}

	if len(args) > 0 && strings.EqualFold(args[0], "all") {
		sb.WriteString("\n")
		sb.WriteString(ledgerStats(ctx.Ledger))
	}
	return sb.String(), nil
}

// ledgerStats renders the all-time block. A missing or failing ledger
// degrades to a warning line so the session stats above still show.
func ledgerStats(ledger *usage.Ledger) string {
	if ledger == nil {
		return "All-time totals unavailable: usage ledger is not open\n"
	}
	totals, err := ledger.Totals()
	if err != nil {
		return fmt.Sprintf("All-time totals unavailable: %v\n", err)
	}
	grand, err := ledger.TotalAll()
	if err != nil {
		return fmt.Sprintf("All-time totals unavailable: %v\n", err)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("All-time tokens: %d\n", grand))
	for _, t := range totals {
		sb.WriteString(fmt.Sprintf("  %-16s %10d tokens over %d turns\n", t.Model, t.Tokens, t.Turns))
	}
	return sb.String()
}

// oneLine keeps listings to a single short line per entry.
func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return util.TruncateRunes(s, 70)
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

func handleSave(ctx *Context, args []string, _ string) (string, error) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	path, err := ctx.Store.Save(ctx.Session, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved to %s\n", path), nil
}

func handleLoad(ctx *Context, args []string, _ string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: /load <name>")
	}
	restored, warning, err := ctx.Store.Load(ctx.Session, args[0])
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if warning != "" {
		sb.WriteString(warning + "\n")
	}
	sb.WriteString(fmt.Sprintf("Restored %d messages.\n", restored))
	return sb.String(), nil
}

func handleList(ctx *Context, _ []string, _ string) (string, error) {
	infos, err := ctx.Store.List()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return fmt.Sprintf("No saved conversations in %s.\n", ctx.Store.Dir()), nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Saved conversations in %s:\n", ctx.Store.Dir()))
	for _, info := range infos {
		sb.WriteString(fmt.Sprintf("  %-40s %8d bytes  %s\n",
			info.Name, info.Size, info.ModTime.Format("2006-01-02 15:04")))
	}
	return sb.String(), nil
}

// =============================================================================
// PARAMETERS
// =============================================================================

func handleSet(ctx *Context, args []string, _ string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: /set <parameter> <value>")
	}
	if err := ctx.Session.Params().Apply(args[0], args[1]); err != nil {
		return "", err
	}
	vals := ctx.Session.Params().Effective()
	if len(vals) == 0 {
		return "All parameters at provider defaults.\n", nil
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return fmt.Sprintf("Parameters: %s\n", strings.Join(parts, ", ")), nil
}

func handleReset(ctx *Context, _ []string, _ string) (string, error) {
	ctx.Session.Params().Reset()
	return "All parameters reset to provider defaults.\n", nil
}

// =============================================================================
// PROMPTS
// =============================================================================

func handlePrompts(ctx *Context, _ []string, _ string) (string, error) {
	var sb strings.Builder
	sb.WriteString("System prompt aliases:\n")
	for _, e := range ctx.Session.Prompts().List() {
		tag := " "
		if prompts.IsProtected(e.Alias) {
			tag = "*"
		}
		sb.WriteString(fmt.Sprintf("  %s %-12s %s\n", tag, e.Alias, oneLine(e.Text)))
	}
	sb.WriteString("\n* built-in, cannot be deleted. Apply with /system <alias>.\n")
	return sb.String(), nil
}

func handleAddPrompt(ctx *Context, args []string, rawArgs string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: /addprompt <alias> <text>")
	}
	// aliases carry no whitespace, so the first field is the alias and
	// the remainder is verbatim prompt text
	alias, text, _ := strings.Cut(strings.TrimSpace(rawArgs), " ")
	replaced, err := ctx.Session.Prompts().Add(alias, strings.TrimSpace(text))
	if err != nil {
		return "", err
	}
	if replaced {
		return fmt.Sprintf("Replaced prompt %q.\n", alias), nil
	}
	return fmt.Sprintf("Added prompt %q.\n", alias), nil
}

func handleDelPrompt(ctx *Context, args []string, _ string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: /delprompt <alias>")
	}
	if err := ctx.Session.Prompts().Remove(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted prompt %q.\n", args[0]), nil
}
