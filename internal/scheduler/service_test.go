/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/ticker"
)

type sinkCall struct {
	kind string
	id   ticker.RowID
	text string
	rows []board.DisplayRow
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (r *recordingSink) record(c sinkCall) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *recordingSink) SetRows(rows []board.DisplayRow, asOf time.Time) {
	r.record(sinkCall{kind: "rows", rows: rows})
}

func (r *recordingSink) SetStops(id ticker.RowID, text string) {
	r.record(sinkCall{kind: "stops", id: id, text: text})
}

func (r *recordingSink) SetClockText(text string) {
	r.record(sinkCall{kind: "clock", text: text})
}

func (r *recordingSink) SetFooterText(text string) {
	r.record(sinkCall{kind: "footer", text: text})
}

func (r *recordingSink) snapshot() []sinkCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkCall(nil), r.calls...)
}

func (r *recordingSink) count(kind string) int {
	n := 0
	for _, c := range r.snapshot() {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingSink) last(kind string) (sinkCall, bool) {
	calls := r.snapshot()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].kind == kind {
			return calls[i], true
		}
	}
	return sinkCall{}, false
}

type scriptedBuilder struct {
	mu     sync.Mutex
	builds int
	script []func() (*board.Snapshot, error)
}

func (b *scriptedBuilder) Build(ctx context.Context) (*board.Snapshot, error) {
	b.mu.Lock()
	i := b.builds
	b.builds++
	b.mu.Unlock()
	if i >= len(b.script) {
		i = len(b.script) - 1
	}
	return b.script[i]()
}

func (b *scriptedBuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}

func snapshotOf(rows ...board.DisplayRow) func() (*board.Snapshot, error) {
	return func() (*board.Snapshot, error) {
		return &board.Snapshot{Rows: rows, AsOf: time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)}, nil
	}
}

func failWith(err error) func() (*board.Snapshot, error) {
	return func() (*board.Snapshot, error) { return nil, err }
}

func tickingRow(id ticker.RowID) board.DisplayRow {
	return board.DisplayRow{
		ID:        id,
		Time:      "14:15",
		Stops:     "Sandbach, ...",
		StopsFull: "Sandbach, Wilmslow, Stockport",
	}
}

func quietRow(id ticker.RowID) board.DisplayRow {
	return board.DisplayRow{ID: id, Time: "14:05", Stops: "Direct", StopsFull: "Direct"}
}

func testConfig() Config {
	return Config{
		RefreshInterval:  time.Hour,
		TickerStartDelay: time.Millisecond,
		TickerSpeed:      time.Millisecond,
		StopsWidth:       10,
		ClockInterval:    5 * time.Millisecond,
	}
}

func startService(t *testing.T, b Builder, cfg Config) (*Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	svc := New(b, sink, cfg, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 14, 0, 7, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("run did not stop")
		}
	})
	return svc, sink
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartupPushesClockAndRows(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){snapshotOf(quietRow("a"), quietRow("b"))}}
	_, sink := startService(t, b, testConfig())

	waitFor(t, "rows", func() bool { return sink.count("rows") == 1 })

	calls := sink.snapshot()
	if calls[0].kind != "clock" || calls[0].text != "14:00:07" {
		t.Fatalf("first call = %+v, want clock", calls[0])
	}
	rows, _ := sink.last("rows")
	if len(rows.rows) != 2 {
		t.Fatalf("rows = %+v", rows.rows)
	}
	waitFor(t, "footer cleared", func() bool {
		f, ok := sink.last("footer")
		return ok && f.text == ""
	})
	waitFor(t, "clock ticks", func() bool { return sink.count("clock") >= 3 })
}

func TestFailureKeepsRowsAndSetsFooter(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){
		snapshotOf(quietRow("a")),
		failWith(errors.New("connection refused")),
	}}
	svc, sink := startService(t, b, testConfig())

	waitFor(t, "first rows", func() bool { return sink.count("rows") == 1 })
	svc.Refresh()
	waitFor(t, "failure footer", func() bool {
		f, _ := sink.last("footer")
		return strings.HasPrefix(f.text, "API call failed: connection refused")
	})
	if n := sink.count("rows"); n != 1 {
		t.Fatalf("rows pushed %d times, want 1", n)
	}
}

func TestEmptyBoardFooter(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){failWith(board.ErrNoDepartures)}}
	_, sink := startService(t, b, testConfig())

	waitFor(t, "footer", func() bool {
		f, _ := sink.last("footer")
		return f.text == "No departures found or API error. Check your key!"
	})
	if sink.count("rows") != 0 {
		t.Fatal("no rows should be pushed on failure")
	}
}

func TestPanicIsReportedAsFailure(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){
		func() (*board.Snapshot, error) { panic("boom") },
		snapshotOf(quietRow("a")),
	}}
	svc, sink := startService(t, b, testConfig())

	waitFor(t, "panic footer", func() bool {
		f, _ := sink.last("footer")
		return strings.Contains(f.text, "refresh panicked: boom")
	})

	svc.Refresh()
	waitFor(t, "recovery", func() bool { return sink.count("rows") == 1 })
}

func TestTickerFramesReachSink(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){snapshotOf(quietRow("a"), tickingRow("b"))}}
	_, sink := startService(t, b, testConfig())

	waitFor(t, "a full ticker cycle", func() bool {
		n := 0
		for _, c := range sink.snapshot() {
			if c.kind == "stops" {
				n++
			}
		}
		return n >= 30
	})

	var frames []string
	for _, c := range sink.snapshot() {
		if c.kind != "stops" {
			continue
		}
		if c.id != "b" {
			t.Fatalf("row %q should not tick", c.id)
		}
		frames = append(frames, c.text)
	}
	if frames[0] != "Sandbach, " || frames[1] != "andbach, W" {
		t.Fatalf("first frames = %q", frames[:2])
	}
	if frames[28] != "t" {
		t.Fatalf("last frame of the cycle = %q", frames[28])
	}
	if frames[29] != "Sandbach, " {
		t.Fatalf("ticker did not wrap: %q", frames[29])
	}
}

func TestRefreshReplacesTickers(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){
		snapshotOf(tickingRow("old")),
		snapshotOf(tickingRow("new")),
	}}
	svc, sink := startService(t, b, testConfig())

	waitFor(t, "old ticker", func() bool {
		s, ok := sink.last("stops")
		return ok && s.id == "old"
	})
	svc.Refresh()
	waitFor(t, "new ticker", func() bool {
		s, ok := sink.last("stops")
		return ok && s.id == "new"
	})

	replaced := false
	for _, c := range sink.snapshot() {
		if c.kind == "rows" && c.rows[0].ID == "new" {
			replaced = true
			continue
		}
		if replaced && c.kind == "stops" && c.id != "new" {
			t.Fatalf("stale ticker %q fired after the board was replaced", c.id)
		}
	}
}

func TestRefreshWhileInFlightIsSkipped(t *testing.T) {
	release := make(chan struct{})
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){
		func() (*board.Snapshot, error) {
			<-release
			return snapshotOf(quietRow("a"))()
		},
		snapshotOf(quietRow("b")),
	}}
	svc, sink := startService(t, b, testConfig())

	waitFor(t, "startup build", func() bool { return b.count() == 1 })
	for i := 0; i < 5; i++ {
		svc.Refresh()
	}
	time.Sleep(20 * time.Millisecond)
	if n := b.count(); n != 1 {
		t.Fatalf("builds = %d while one was in flight", n)
	}

	close(release)
	waitFor(t, "rows", func() bool { return sink.count("rows") == 1 })
	if n := b.count(); n != 1 {
		t.Fatalf("skipped refreshes should not run later, builds = %d", n)
	}
}

func TestFirstTickerFrameFollowsStartDelay(t *testing.T) {
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){snapshotOf(tickingRow("b"))}}
	cfg := testConfig()
	cfg.TickerStartDelay = 30 * time.Millisecond
	cfg.TickerSpeed = time.Minute
	_, sink := startService(t, b, cfg)

	waitFor(t, "rows", func() bool { return sink.count("rows") == 1 })
	rowsAt := time.Now()
	waitFor(t, "first ticker frame", func() bool { return sink.count("stops") == 1 })
	elapsed := time.Since(rowsAt)

	if elapsed > time.Second {
		t.Fatalf("first frame after %v, want it right after the start delay", elapsed)
	}
	if s, _ := sink.last("stops"); s.text != "Sandbach, " {
		t.Fatalf("first frame = %q", s.text)
	}
	time.Sleep(50 * time.Millisecond)
	if n := sink.count("stops"); n != 1 {
		t.Fatalf("stops calls = %d before the ticker speed elapsed", n)
	}
}

func TestSlowRefreshDoesNotStallClockOrTickers(t *testing.T) {
	release := make(chan struct{})
	b := &scriptedBuilder{script: []func() (*board.Snapshot, error){
		snapshotOf(tickingRow("b")),
		func() (*board.Snapshot, error) {
			<-release
			return snapshotOf(tickingRow("c"))()
		},
	}}
	svc, sink := startService(t, b, testConfig())
	t.Cleanup(func() { close(release) })

	waitFor(t, "ticker running", func() bool { return sink.count("stops") > 0 })
	svc.Refresh()
	waitFor(t, "blocked build", func() bool { return b.count() == 2 })

	clocks, stops := sink.count("clock"), sink.count("stops")
	waitFor(t, "clock while fetching", func() bool { return sink.count("clock") >= clocks+3 })
	waitFor(t, "ticker while fetching", func() bool { return sink.count("stops") >= stops+3 })
	if n := sink.count("rows"); n != 1 {
		t.Fatalf("rows pushed %d times while the refresh was blocked", n)
	}
}
