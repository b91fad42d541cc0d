// omnichat - a multi-provider LLM chat client for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/omnichat/internal/cli"
	"github.com/jeranaias/omnichat/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	args := os.Args[1:]

	var err error
	switch {
	case len(args) == 0:
		err = cli.Run()
	case args[0] == "ask":
		err = cli.RunAsk(args[1:])
	case args[0] == "init":
		err = runInit()
	case args[0] == "version", args[0] == "--version", args[0] == "-v":
		fmt.Printf("omnichat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
	case args[0] == "help", args[0] == "--help", args[0] == "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// runInit writes a starter configuration file unless one already exists.
func runInit() error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}

func printUsage() {
	fmt.Print(`omnichat - chat with LLMs across providers from your terminal

Usage:
  omnichat              start the interactive chat
  omnichat ask <text>   ask one question and exit
  omnichat init         write a starter config to ~/.omnichat/config.toml
  omnichat version      print version information

Provider API keys come from the environment: OPENAI_API_KEY,
GROQ_API_KEY, MISTRAL_API_KEY, GEMINI_API_KEY.
`)
}
