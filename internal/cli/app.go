// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires the application together and runs the interactive
// chat loop.
package cli

import (
	"fmt"

	"github.com/jeranaias/omnichat/internal/catalog"
	"github.com/jeranaias/omnichat/internal/chat"
	"github.com/jeranaias/omnichat/internal/commands"
	"github.com/jeranaias/omnichat/internal/config"
	"github.com/jeranaias/omnichat/internal/llm"
	"github.com/jeranaias/omnichat/internal/logger"
	"github.com/jeranaias/omnichat/internal/prompts"
	"github.com/jeranaias/omnichat/internal/transcript"
	"github.com/jeranaias/omnichat/internal/usage"
)

// App bundles the wired collaborators for a run of the client.
type App struct {
	Config  *config.Config
	Session *chat.Session
	Store   *transcript.Store
	Ledger  *usage.Ledger
}

// NewApp loads configuration and builds the session and its
// collaborators. Only a broken catalog or transcript store is fatal; the
// usage ledger degrades to nil with a warning.
func NewApp() (*App, error) {
	cfg, warn := config.Load()
	logger.Configure(cfg.LogLevel)
	if warn != nil {
		logger.Warn("configuration problem", "err", warn)
	}

	cat, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("building model catalog: %w", err)
	}

	promptsPath, err := cfg.PromptsPath()
	if err != nil {
		return nil, err
	}
	lib, err := prompts.Load(promptsPath)
	if err != nil {
		return nil, err
	}

	transcriptDir, err := cfg.TranscriptPath()
	if err != nil {
		return nil, err
	}
	store, err := transcript.NewStore(transcriptDir)
	if err != nil {
		return nil, err
	}

	session := chat.NewSession(cat, lib, llm.NewClient(llm.DefaultConfig()))

	var ledger *usage.Ledger
	if usagePath, err := cfg.UsagePath(); err == nil {
		ledger, err = usage.Open(usagePath)
		if err != nil {
			logger.Warn("usage ledger unavailable", "err", err)
			ledger = nil
		}
	}
	if ledger != nil {
		led := ledger
		session.SetUsageFunc(func(sessionID, model string, tokens int) {
			if err := led.Record(sessionID, model, tokens); err != nil {
				logger.Warn("recording usage failed", "err", err)
			}
		})
	}

	if cfg.DefaultModel != "" {
		if res := session.SwitchModel(cfg.DefaultModel); res.Outcome != catalog.Matched {
			logger.Warn("default model not resolvable", "model", cfg.DefaultModel)
		}
	}

	return &App{Config: cfg, Session: session, Store: store, Ledger: ledger}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.Ledger != nil {
		a.Ledger.Close()
	}
}

// CommandContext builds the handler context for the registry.
func (a *App) CommandContext(registry *commands.Registry) *commands.Context {
	return &commands.Context{
		Session:  a.Session,
		Store:    a.Store,
		Config:   a.Config,
		Ledger:   a.Ledger,
		Registry: registry,
	}
}
