// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"reflect"
	"testing"
)

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "/switch gpt120b", []string{"/switch", "gpt120b"}},
		{"extra spaces", "/switch   gpt120b  ", []string{"/switch", "gpt120b"}},
		{"double quotes", `/save "my chat"`, []string{"/save", "my chat"}},
		{"single quotes", "/save 'my chat'", []string{"/save", "my chat"}},
		{"escaped quote", `/addprompt p "say \"hi\""`, []string{"/addprompt", "p", `say "hi"`}},
		{"mixed", `/addprompt poet "You are a poet"`, []string{"/addprompt", "poet", "You are a poet"}},
		{"non-ascii argument", "/load résumé", []string{"/load", "résumé"}},
		{"non-ascii alias", "/delprompt café", []string{"/delprompt", "café"}},
		{"non-ascii quoted", `/save "día uno"`, []string{"/save", "día uno"}},
		{"empty", "", nil},
		{"only spaces", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCommandLine(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCommandLine(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p := NewParser(NewRegistry())

	t.Run("plain text is not a command", func(t *testing.T) {
		res := p.Parse("hello there")
		if res.IsCommand {
			t.Error("plain text flagged as command")
		}
	})

	t.Run("known command", func(t *testing.T) {
		res := p.Parse("/switch gpt120b")
		if !res.IsCommand || res.Command == nil {
			t.Fatal("command not recognized")
		}
		if res.Command.Name != "/switch" {
			t.Errorf("command = %s", res.Command.Name)
		}
		if len(res.Args) != 1 || res.Args[0] != "gpt120b" {
			t.Errorf("args = %v", res.Args)
		}
	})

	t.Run("alias resolves", func(t *testing.T) {
		res := p.Parse("/sw 3")
		if res.Command == nil || res.Command.Name != "/switch" {
			t.Error("alias /sw did not resolve")
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		res := p.Parse("/frobnicate now")
		if !res.IsCommand {
			t.Error("slash input not flagged as command")
		}
		if res.Command != nil {
			t.Error("unknown command resolved")
		}
		if res.CommandName != "/frobnicate" {
			t.Errorf("CommandName = %s", res.CommandName)
		}
	})

	t.Run("raw args preserved", func(t *testing.T) {
		res := p.Parse("/system You are a   poet")
		if res.RawArgs != "You are a   poet" {
			t.Errorf("RawArgs = %q", res.RawArgs)
		}
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if r.Get("/help") == nil || r.Get("/h") == nil || r.Get("/?") == nil {
		t.Error("help lookups failed")
	}
	if r.Get("/nope") != nil {
		t.Error("unknown command resolved")
	}

	all := r.All()
	if len(all) == 0 {
		t.Fatal("no registered commands")
	}
	// registration order is stable, /help first
	if all[0].Name != "/help" {
		t.Errorf("first command = %s", all[0].Name)
	}

	names := r.Names()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"/switch", "/sw", "/models", "/m", "/quit", "/stats", "/addprompt"} {
		if !seen[want] {
			t.Errorf("Names() missing %s", want)
		}
	}
}
