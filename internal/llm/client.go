// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm streams chat completions from remote providers.
//
// Every provider is reached through its OpenAI-compatible endpoint, so a
// single client covers all of them. Models are addressed by connection
// string: "provider/model", where the model part may itself contain
// slashes (e.g. "groq/openai/gpt-oss-120b").
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// =============================================================================
// MESSAGES AND USAGE
// =============================================================================

// Role identifies the author of a message on the wire.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the outgoing conversation.
type Message struct {
	Role    Role
	Content string
}

// Usage is the provider-reported token accounting for one completed turn.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Estimated marks usage derived from character counts because the
	// provider sent no accounting (local ollama endpoints do this).
	Estimated bool
}

// Sampling is the subset of request knobs the session can tune. Nil
// fields are omitted from the request.
type Sampling struct {
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

// Completer is the completion dependency of the chat session. Implemented
// by Client; tests substitute scripted fakes.
type Completer interface {
	// StreamChat sends the messages to the model behind connection and
	// invokes onDelta for each content fragment in arrival order. It
	// returns usage only on clean stream exhaustion.
	StreamChat(ctx context.Context, connection string, messages []Message, sampling *Sampling, onDelta func(string)) (*Usage, error)
}

// =============================================================================
// PROVIDERS
// =============================================================================

type providerInfo struct {
	baseURL string
	keyEnv  string
	// local providers need no API key
	local bool
}

var providers = map[string]providerInfo{
	"openai":  {baseURL: "https://api.openai.com/v1", keyEnv: "OPENAI_API_KEY"},
	"groq":    {baseURL: "https://api.groq.com/openai/v1", keyEnv: "GROQ_API_KEY"},
	"mistral": {baseURL: "https://api.mistral.ai/v1", keyEnv: "MISTRAL_API_KEY"},
	"gemini":  {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", keyEnv: "GEMINI_API_KEY"},
	"ollama":  {baseURL: "http://localhost:11434/v1", local: true},
}

// SplitConnection separates a connection string into provider and model.
// Only the first slash splits; the model part keeps any further slashes.
func SplitConnection(connection string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(connection, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("malformed connection string %q (want provider/model)", connection)
	}
	return provider, model, nil
}

// =============================================================================
// CLIENT
// =============================================================================

// ClientConfig holds the client settings.
type ClientConfig struct {
	// Timeout bounds a whole streaming request.
	Timeout time.Duration

	// RequestsPerMinute spaces outgoing requests across all providers.
	RequestsPerMinute int

	// LookupEnv resolves API keys; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:           120 * time.Second,
		RequestsPerMinute: 30,
		LookupEnv:         os.LookupEnv,
	}
}

// Client talks to all configured providers. Safe for use from a single
// goroutine, which is all the REPL needs.
type Client struct {
	config  ClientConfig
	limiter *rate.Limiter
	// one lazily-built SDK client per provider
	clients map[string]*openai.Client
}

// NewClient creates a client, filling zero config fields with defaults.
func NewClient(config ClientConfig) *Client {
	def := DefaultConfig()
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.LookupEnv == nil {
		config.LookupEnv = def.LookupEnv
	}
	return &Client{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
		clients: make(map[string]*openai.Client),
	}
}

func (c *Client) providerClient(provider string) (*openai.Client, error) {
	if cl, ok := c.clients[provider]; ok {
		return cl, nil
	}
	info, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	key := "ollama" // placeholder key for keyless local endpoints
	if !info.local {
		k, ok := c.config.LookupEnv(info.keyEnv)
		if !ok || k == "" {
			return nil, &ProviderError{
				Kind:    ErrorAuthFailure,
				Message: fmt.Sprintf("no API key for %s, set %s", provider, info.keyEnv),
			}
		}
		key = k
	}

	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = info.baseURL
	cl := openai.NewClientWithConfig(cfg)
	c.clients[provider] = cl
	return cl, nil
}

// StreamChat implements Completer.
func (c *Client) StreamChat(ctx context.Context, connection string, messages []Message, sampling *Sampling, onDelta func(string)) (*Usage, error) {
	provider, model, err := SplitConnection(connection)
	if err != nil {
		return nil, err
	}
	client, err := c.providerClient(provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:         model,
		Messages:      toWire(messages),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	applySampling(&req, sampling)

	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, Classify(err)
	}
	defer stream.Close()

	var usage *Usage
	var generated int
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("stream aborted: %w", ctx.Err())
			}
			return nil, Classify(err)
		}
		if resp.Usage != nil {
			usage = &Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				generated += len(choice.Delta.Content)
				onDelta(choice.Delta.Content)
			}
		}
	}

	if usage == nil {
		usage = estimateUsage(messages, generated)
	}
	return usage, nil
}

func toWire(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func applySampling(req *openai.ChatCompletionRequest, s *Sampling) {
	if s == nil {
		return
	}
	if s.Temperature != nil {
		req.Temperature = float32(*s.Temperature)
	}
	if s.MaxTokens != nil {
		req.MaxTokens = *s.MaxTokens
	}
	if s.TopP != nil {
		req.TopP = float32(*s.TopP)
	}
	if s.PresencePenalty != nil {
		req.PresencePenalty = float32(*s.PresencePenalty)
	}
	if s.FrequencyPenalty != nil {
		req.FrequencyPenalty = float32(*s.FrequencyPenalty)
	}
}

// estimateUsage approximates token counts at ~4 characters per token when
// the provider reports nothing.
func estimateUsage(messages []Message, generatedChars int) *Usage {
	var promptChars int
	for _, m := range messages {
		promptChars += len(m.Content)
	}
	u := &Usage{
		PromptTokens:     promptChars / 4,
		CompletionTokens: generatedChars / 4,
		Estimated:        true,
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}
