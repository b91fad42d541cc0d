// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "time"

// =============================================================================
// ROLES AND MESSAGES
// =============================================================================

// Role identifies a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DisplayName returns the heading used in transcripts and the terminal.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Message is one conversational turn held by the session.
type Message struct {
	Role    Role
	Content string
}

// =============================================================================
// EVENT LOG
// =============================================================================

// EventKind discriminates event log entries.
type EventKind string

const (
	// EventMessage carries a conversational message.
	EventMessage EventKind = "message"
	// EventModelSwitch records a change of active model mid-conversation.
	EventModelSwitch EventKind = "model_switch"
	// EventPromptChange records a system prompt change. It is the last
	// entry of the log it closes: changing the prompt starts a fresh
	// conversation.
	EventPromptChange EventKind = "prompt_change"
)

// Event is one entry of the session's ordered event log. The log is a
// superset of the message list: messages are derived from it by filtering,
// never the other way around.
type Event struct {
	Kind EventKind
	Time time.Time

	// Message is set when Kind is EventMessage.
	Message *Message
	// Model is the new model name when Kind is EventModelSwitch.
	Model string
	// Prompt is the new system prompt when Kind is EventPromptChange.
	Prompt string
}

// MessagesFromEvents derives the role-ordered message list from an event
// log.
func MessagesFromEvents(events []Event) []Message {
	var out []Message
	for _, ev := range events {
		if ev.Kind == EventMessage && ev.Message != nil {
			out = append(out, *ev.Message)
		}
	}
	return out
}
