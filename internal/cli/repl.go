// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/omnichat/internal/chat"
	"github.com/jeranaias/omnichat/internal/commands"
	"github.com/jeranaias/omnichat/internal/logger"
)

// =============================================================================
// INTERRUPT COORDINATION
// =============================================================================

// interruptState coordinates the signal goroutine with the REPL loop.
// Liner holds the terminal in raw mode while the loop blocks on input, so
// Ctrl-C at the prompt arrives as ErrPromptAborted, not a signal; anything
// on the signal channel is an external SIGINT/SIGTERM.
type interruptState struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	stopping bool
}

func (s *interruptState) beginTurn(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *interruptState) endTurn() {
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
}

// signal marks the loop for termination and cancels an in-flight turn.
// It reports whether a turn was running; with no turn in flight the
// caller must terminate the process itself, since nothing will unblock
// the input read.
func (s *interruptState) signal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
	if s.cancel != nil {
		s.cancel()
		return true
	}
	return false
}

func (s *interruptState) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// =============================================================================
// REPL
// =============================================================================

// Run starts the interactive chat loop and blocks until the user quits.
func Run() error {
	app, err := NewApp()
	if err != nil {
		return err
	}
	defer app.Close()

	registry := commands.NewRegistry()
	parser := commands.NewParser(registry)
	cmdCtx := app.CommandContext(registry)
	input := NewInput(registry, app.Session.Catalog())
	defer input.Close()

	state := &interruptState{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if state.signal() {
				// the cancelled turn returns control to the loop,
				// which saves and exits
				continue
			}
			// idle at the prompt: save and terminate here
			fmt.Println()
			input.Close()
			autoSave(app)
			app.Close()
			os.Exit(0)
		}
	}()

	printWelcome(app)

	for {
		line, err := input.ReadLine(prompt(app))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if commands.IsCommand(line) {
			result := parser.Parse(line)
			if result.Command == nil {
				fmt.Println(warningStyle.Render(fmt.Sprintf("Unknown command %s, try /help", result.CommandName)))
				continue
			}
			out, err := result.Command.Handler(cmdCtx, result.Args, result.RawArgs)
			if errors.Is(err, commands.ErrQuit) {
				break
			}
			if err != nil {
				fmt.Println(warningStyle.Render(err.Error()))
				continue
			}
			fmt.Print(commandStyle.Render(out))
			continue
		}

		runTurn(app, line, state)
		if state.stopRequested() {
			break
		}
	}

	autoSave(app)
	return nil
}

func runTurn(app *App, line string, state *interruptState) {
	ctx, cancel := context.WithCancel(context.Background())
	state.beginTurn(cancel)
	defer func() {
		state.endTurn()
		cancel()
	}()

	err := app.Session.StreamTurn(ctx, line, func(delta string) {
		fmt.Print(delta)
	})
	fmt.Println()
	if errors.Is(err, chat.ErrTurnCancelled) {
		fmt.Println(infoStyle.Render("Turn cancelled."))
		return
	}
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println()
}

func prompt(app *App) string {
	name := "omnichat"
	if m := app.Session.ActiveModel(); m != nil {
		name = m.Name
	}
	return promptStyle.Render(name + "> ")
}

func printWelcome(app *App) {
	fmt.Println(welcomeStyle.Render("omnichat"))
	if m := app.Session.ActiveModel(); m != nil {
		fmt.Println(infoStyle.Render(fmt.Sprintf("Active model: %s (%s)", m.Name, m.Connection)))
	} else {
		fmt.Println(infoStyle.Render("No active model. Pick one with /switch <model>."))
	}
	fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()
}

// autoSave keeps an interrupted conversation recoverable. Best effort:
// failures are logged, never surfaced as exit errors.
func autoSave(app *App) {
	if len(app.Session.Messages()) == 0 {
		return
	}
	path, err := app.Store.Save(app.Session, "")
	if err != nil {
		logger.Warn("auto-save failed", "err", err)
		return
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("Conversation saved to %s", path)))
}
