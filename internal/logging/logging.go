/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. Logs go to stderr; stdout
// belongs to the terminal board.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stderr, nil)
}

// SetupWithWriter configures zerolog to write human-readable output to out
// and, when additionalWriter is set, JSON to additionalWriter (e.g., the log buffer).
func SetupWithWriter(environment string, out io.Writer, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}
	if out == nil {
		out = os.Stderr
	}

	consoleWriter := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}

	var writer io.Writer = consoleWriter
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(consoleWriter, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
