/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/display"
	"github.com/friendsincode/departure_board/internal/scheduler"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch the board once and print it",
	Long:  "Run a single refresh cycle and print the formatted board. Exits non-zero when the refresh fails.",
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print the rows as JSON")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	builder, closeCache := newBuilder()
	defer func() { _ = closeCache() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.DarwinTimeout+5*time.Second)
	defer cancel()

	snap, err := builder.Build(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), board.FailureText(err))
		return fmt.Errorf("snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if snapshotJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Rows)
	}
	return printSnapshot(out, snap)
}

func printSnapshot(out io.Writer, snap *board.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot: nothing to print")
	}
	term := display.NewTerminal(io.Discard, cfg.StationName, layout(), theme())
	term.SetClockText(snap.AsOf.Format(scheduler.ClockFormat))
	term.SetRows(snap.Rows, snap.AsOf)
	_, err := io.WriteString(out, term.Render())
	return err
}
