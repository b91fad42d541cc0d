// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation session: the event log, token
// accounting, the active model, and the streaming turn protocol.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/omnichat/internal/catalog"
	"github.com/jeranaias/omnichat/internal/llm"
	"github.com/jeranaias/omnichat/internal/params"
	"github.com/jeranaias/omnichat/internal/prompts"
)

// ErrNoActiveModel is returned by StreamTurn before first model selection.
var ErrNoActiveModel = errors.New("no active model, use /switch first")

// ErrTurnCancelled is returned by StreamTurn when the caller cancels the
// stream. Cancellation is a user action, not a provider failure, so it is
// kept out of the provider error taxonomy.
var ErrTurnCancelled = errors.New("turn cancelled")

// UsageFunc receives per-turn token usage after a successful turn. Errors
// in the recorder must not abort chatting, so it returns nothing.
type UsageFunc func(sessionID, model string, totalTokens int)

// =============================================================================
// SESSION
// =============================================================================

// Session is the aggregate the CLI drives. Not safe for concurrent use;
// one conversation turn is in flight at a time.
type Session struct {
	id      string
	started time.Time

	catalog   *catalog.Catalog
	prompts   *prompts.Library
	completer llm.Completer
	params    *params.Set
	onUsage   UsageFunc

	active       *catalog.Entry
	systemPrompt string

	events   []Event
	messages []Message

	totalTokens   int
	tokensByModel map[string]int
}

// NewSession builds a session over a catalog, prompt library, and
// completion client. The system prompt starts as the "default" alias.
func NewSession(cat *catalog.Catalog, lib *prompts.Library, completer llm.Completer) *Session {
	sysPrompt, _ := lib.Get("default")
	return &Session{
		id:            uuid.New().String(),
		started:       time.Now(),
		catalog:       cat,
		prompts:       lib,
		completer:     completer,
		params:        &params.Set{},
		systemPrompt:  sysPrompt,
		tokensByModel: make(map[string]int),
	}
}

// SetUsageFunc installs the per-turn usage callback.
func (s *Session) SetUsageFunc(fn UsageFunc) {
	s.onUsage = fn
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns the session start time.
func (s *Session) StartedAt() time.Time { return s.started }

// Catalog returns the model catalog the session resolves against.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Prompts returns the session's prompt library.
func (s *Session) Prompts() *prompts.Library { return s.prompts }

// Params returns the mutable sampling parameter set.
func (s *Session) Params() *params.Set { return s.params }

// ActiveModel returns the current model entry, nil before the first
// successful switch.
func (s *Session) ActiveModel() *catalog.Entry { return s.active }

// SystemPrompt returns the current system prompt text.
func (s *Session) SystemPrompt() string { return s.systemPrompt }

// Messages returns a copy of the conversational messages.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Events returns a copy of the full event log.
func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// TokensTotal returns the tokens consumed since the last reset.
func (s *Session) TokensTotal() int { return s.totalTokens }

// TokensByModel returns a copy of the per-model token counters.
func (s *Session) TokensByModel() map[string]int {
	out := make(map[string]int, len(s.tokensByModel))
	for k, v := range s.tokensByModel {
		out[k] = v
	}
	return out
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// SwitchModel resolves identifier against the catalog. On a unique match
// it activates the entry and records a model_switch event; messages and
// counters are untouched. Ambiguous and NotFound outcomes are returned
// for the caller to present and change nothing.
func (s *Session) SwitchModel(identifier string) catalog.Resolution {
	res := s.catalog.Resolve(identifier)
	if res.Outcome != catalog.Matched {
		return res
	}
	if s.active != nil && s.active.Name == res.Entry.Name {
		// no-op switch, keep the log clean
		return res
	}
	s.active = res.Entry
	s.events = append(s.events, Event{
		Kind:  EventModelSwitch,
		Time:  time.Now(),
		Model: res.Entry.Name,
	})
	return res
}

// SetSystemPrompt changes the system prompt and starts a new conversation.
// The argument is tried as a library alias first and otherwise used
// verbatim. The prompt_change event is recorded on the closing log before
// the reset. UsedAlias reports which interpretation won.
func (s *Session) SetSystemPrompt(arg string) (usedAlias bool) {
	text := arg
	if t, ok := s.prompts.Get(strings.TrimSpace(arg)); ok {
		text = t
		usedAlias = true
	}
	s.events = append(s.events, Event{
		Kind:   EventPromptChange,
		Time:   time.Now(),
		Prompt: text,
	})
	s.systemPrompt = text
	s.reset()
	return usedAlias
}

// StartNewChat clears the conversation. Model, prompt, and parameters
// survive.
func (s *Session) StartNewChat() {
	s.reset()
}

func (s *Session) reset() {
	s.events = nil
	s.messages = nil
	s.totalTokens = 0
	s.tokensByModel = make(map[string]int)
}

// Restore replaces the event log with a loaded one and rebuilds the
// message list from it. Counters restart at zero.
func (s *Session) Restore(events []Event) {
	s.reset()
	s.events = append(s.events, events...)
	s.messages = MessagesFromEvents(s.events)
}

// RestorePrompt sets the system prompt verbatim without recording a
// prompt_change event or resetting. Used when replaying a saved
// conversation, where the prompt is part of the restored state rather
// than a user action.
func (s *Session) RestorePrompt(text string) {
	s.systemPrompt = text
}

// =============================================================================
// TURN PROTOCOL
// =============================================================================

// StreamTurn runs one conversation turn. Deltas are forwarded to onDelta
// in arrival order as they stream in.
//
// History and counters mutate only after the stream finishes cleanly. A
// failure at any point, even after deltas were already shown, leaves the
// session exactly as it was so the user can retry or switch models.
func (s *Session) StreamTurn(ctx context.Context, userText string, onDelta func(string)) error {
	if s.active == nil {
		return ErrNoActiveModel
	}

	outgoing := make([]llm.Message, 0, len(s.messages)+2)
	outgoing = append(outgoing, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt})
	for _, m := range s.messages {
		outgoing = append(outgoing, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	outgoing = append(outgoing, llm.Message{Role: llm.RoleUser, Content: userText})

	var reply strings.Builder
	usage, err := s.completer.StreamChat(ctx, s.active.Connection, outgoing, s.sampling(), func(delta string) {
		reply.WriteString(delta)
		onDelta(delta)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrTurnCancelled
		}
		return llm.Classify(err)
	}

	s.appendMessage(Message{Role: RoleUser, Content: userText})
	s.appendMessage(Message{Role: RoleAssistant, Content: reply.String()})

	if usage != nil {
		s.totalTokens += usage.TotalTokens
		s.tokensByModel[s.active.Name] += usage.TotalTokens
		if s.onUsage != nil {
			s.onUsage(s.id, s.active.Name, usage.TotalTokens)
		}
	}
	return nil
}

func (s *Session) appendMessage(m Message) {
	s.messages = append(s.messages, m)
	s.events = append(s.events, Event{
		Kind:    EventMessage,
		Time:    time.Now(),
		Message: &m,
	})
}

func (s *Session) sampling() *llm.Sampling {
	return &llm.Sampling{
		Temperature:      s.params.Temperature,
		MaxTokens:        s.params.MaxTokens,
		TopP:             s.params.TopP,
		PresencePenalty:  s.params.PresencePenalty,
		FrequencyPenalty: s.params.FrequencyPenalty,
	}
}
