// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// ONE-SHOT MODE
// =============================================================================

// RunAsk answers a single question and exits: `omnichat ask "question"`.
// The reply is collected in full and rendered as markdown on a TTY, so
// piped output stays clean for scripts.
func RunAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: omnichat ask <question>")
	}

	app, err := NewApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var reply strings.Builder
	err = app.Session.StreamTurn(context.Background(), question, func(delta string) {
		reply.WriteString(delta)
	})
	if err != nil {
		return err
	}

	fmt.Print(renderMarkdown(reply.String()))
	if !strings.HasSuffix(reply.String(), "\n") {
		fmt.Println()
	}
	return nil
}
