// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"api key", errors.New("Invalid API key provided"), ErrorAuthFailure},
		{"authentication", errors.New("authentication error: bad token"), ErrorAuthFailure},
		{"rate limit", errors.New("Rate limit reached for requests"), ErrorRateLimited},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout)"), ErrorTimeout},
		{"connection", errors.New("connection refused"), ErrorTimeout},
		{"not found", errors.New("The model `foo` was not found"), ErrorModelDeprecated},
		{"404", errors.New("unexpected status code: 404"), ErrorModelDeprecated},
		{"unknown", errors.New("something odd happened"), ErrorUnknown},
		{"wrapped", fmt.Errorf("request failed: %w", errors.New("rate limit exceeded")), ErrorRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := Classify(tt.err)
			if pe.Kind != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, pe.Kind, tt.want)
			}
			if !errors.Is(pe, tt.err) {
				t.Error("classified error lost its cause")
			}
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	// "timeout" takes precedence in text like "context deadline exceeded"
	// only when the word appears; plain classification falls through
	err := Classify(errors.New("request timeout after 120s"))
	if !IsTimeout(err) {
		t.Errorf("IsTimeout = false for %v", err)
	}
	if IsAuthFailure(err) || IsRateLimited(err) {
		t.Error("timeout error matched another category")
	}
}

func TestClassify_Idempotent(t *testing.T) {
	orig := &ProviderError{Kind: ErrorRateLimited, Message: "slow down"}
	if got := Classify(orig); got != orig {
		t.Error("re-classifying a ProviderError should return it unchanged")
	}
}

func TestSplitConnection(t *testing.T) {
	tests := []struct {
		in        string
		provider  string
		model     string
		expectErr bool
	}{
		{"groq/openai/gpt-oss-120b", "groq", "openai/gpt-oss-120b", false},
		{"gemini/gemini-2.5-pro", "gemini", "gemini-2.5-pro", false},
		{"ollama/llama3", "ollama", "llama3", false},
		{"nomodel", "", "", true},
		{"trailing/", "", "", true},
		{"/leading", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			provider, model, err := SplitConnection(tt.in)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if provider != tt.provider || model != tt.model {
				t.Errorf("got %q/%q, want %q/%q", provider, model, tt.provider, tt.model)
			}
		})
	}
}

func TestProviderClient_MissingKey(t *testing.T) {
	c := NewClient(ClientConfig{
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	_, err := c.providerClient("groq")
	if !IsAuthFailure(err) {
		t.Errorf("missing key err = %v, want auth failure", err)
	}
}

func TestProviderClient_UnknownProvider(t *testing.T) {
	c := NewClient(DefaultConfig())
	if _, err := c.providerClient("acme"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProviderClient_LocalNeedsNoKey(t *testing.T) {
	c := NewClient(ClientConfig{
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	if _, err := c.providerClient("ollama"); err != nil {
		t.Errorf("ollama should need no key: %v", err)
	}
}

func TestApplySampling(t *testing.T) {
	temp := 0.7
	tokens := 512
	topP := 0.9

	var req openai.ChatCompletionRequest
	applySampling(&req, &Sampling{Temperature: &temp, MaxTokens: &tokens, TopP: &topP})

	if req.Temperature != float32(0.7) || req.MaxTokens != 512 || req.TopP != float32(0.9) {
		t.Errorf("request = %+v", req)
	}
	if req.PresencePenalty != 0 || req.FrequencyPenalty != 0 {
		t.Error("unset parameters leaked into the request")
	}

	// nil sampling leaves the request untouched
	var empty openai.ChatCompletionRequest
	applySampling(&empty, nil)
	if empty.Temperature != 0 {
		t.Error("nil sampling modified the request")
	}
}

func TestEstimateUsage(t *testing.T) {
	msgs := []Message{
		{Role: RoleSystem, Content: "You are brief."}, // 14 chars
		{Role: RoleUser, Content: "hi"},               // 2 chars
	}
	u := estimateUsage(msgs, 40)
	if !u.Estimated {
		t.Error("Estimated not set")
	}
	if u.PromptTokens != 4 || u.CompletionTokens != 10 {
		t.Errorf("estimate = %+v", u)
	}
	if u.TotalTokens != u.PromptTokens+u.CompletionTokens {
		t.Error("total does not add up")
	}
}
