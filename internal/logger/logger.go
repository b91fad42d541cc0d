// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger configures the application-wide structured logger.
//
// Logs go to stderr so they never interleave with streamed model output
// on stdout. The level comes from configuration with an OMNICHAT_LOG_LEVEL
// override for quick debugging.
package logger

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the shared instance; packages use the wrappers below.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Level:           log.WarnLevel,
})

// Configure sets the log level, honoring the OMNICHAT_LOG_LEVEL
// environment variable over the configured value.
func Configure(level string) {
	if env := os.Getenv("OMNICHAT_LOG_LEVEL"); env != "" {
		level = env
	}
	Logger.SetLevel(parseLevel(level))
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.WarnLevel
	}
}

// Debug logs at debug level.
func Debug(msg interface{}, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

// Info logs at info level.
func Info(msg interface{}, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

// Warn logs at warn level.
func Warn(msg interface{}, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

// Error logs at error level.
func Error(msg interface{}, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }
