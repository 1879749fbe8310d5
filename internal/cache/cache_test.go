/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/friendsincode/departure_board/internal/board"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	names []string
	err   error
}

func (s *countingSource) Departures(ctx context.Context, station string, limit int) ([]board.Service, error) {
	return []board.Service{{ServiceID: "svc-1"}}, nil
}

func (s *countingSource) CallingPoints(ctx context.Context, serviceID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.names, nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()
	c := New(cfg, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	if !c.IsAvailable() {
		t.Fatal("cache should be available against miniredis")
	}
	return c, mr
}

func TestCallingPointsRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if _, ok := c.GetCallingPoints(ctx, "svc-1"); ok {
		t.Fatal("expected a miss on an empty cache")
	}
	if err := c.SetCallingPoints(ctx, "svc-1", []string{"Stafford", "Rugby"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	names, ok := c.GetCallingPoints(ctx, "svc-1")
	if !ok || len(names) != 2 || names[1] != "Rugby" {
		t.Fatalf("got %v, %v", names, ok)
	}

	mr.FastForward(DefaultCallingPointsTTL + time.Second)
	if _, ok := c.GetCallingPoints(ctx, "svc-1"); ok {
		t.Fatal("entry should expire after the TTL")
	}
}

func TestEmptyListIsCached(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetCallingPoints(ctx, "svc-2", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	names, ok := c.GetCallingPoints(ctx, "svc-2")
	if !ok || names == nil || len(names) != 0 {
		t.Fatalf("got %#v, %v", names, ok)
	}
}

func TestUnavailableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := DefaultConfig()
	cfg.RedisAddr = addr
	c := New(cfg, zerolog.Nop())
	if c.IsAvailable() {
		t.Fatal("cache should start disabled when Redis is down")
	}

	inner := &countingSource{names: []string{"Chester"}}
	src := NewSource(inner, c)
	for i := 0; i < 2; i++ {
		if _, err := src.CallingPoints(context.Background(), "svc-1"); err != nil {
			t.Fatalf("lookup: %v", err)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want every lookup upstream", inner.calls)
	}
}

func TestNilCacheIsBypassed(t *testing.T) {
	inner := &countingSource{names: []string{"Chester"}}
	src := NewSource(inner, nil)

	names, err := src.CallingPoints(context.Background(), "svc-1")
	if err != nil || len(names) != 1 {
		t.Fatalf("got %v, %v", names, err)
	}
}

func TestSourceCachesCallingPoints(t *testing.T) {
	c, _ := newTestCache(t)
	inner := &countingSource{names: []string{"Stafford", "Rugby"}}
	src := NewSource(inner, c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		names, err := src.CallingPoints(ctx, "svc-1")
		if err != nil || len(names) != 2 {
			t.Fatalf("lookup %d: %v, %v", i, names, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}

	if _, err := src.Departures(ctx, "CRE", 10); err != nil {
		t.Fatalf("departures: %v", err)
	}
}

func TestSourceDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(t)
	inner := &countingSource{err: board.ErrNoCallingPoints}
	src := NewSource(inner, c)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := src.CallingPoints(ctx, "svc-1"); !errors.Is(err, board.ErrNoCallingPoints) {
			t.Fatalf("err = %v", err)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
}

func TestRedisErrorDisablesCache(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	inner := &countingSource{names: []string{"Crewe"}}
	src := NewSource(inner, c)
	if _, err := src.CallingPoints(context.Background(), "svc-1"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if c.IsAvailable() {
		t.Fatal("cache should disable itself after a Redis error")
	}
}

func TestSourceLogsFailedWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.DisableOnError = false
	c := New(cfg, zerolog.New(&logs).Level(zerolog.DebugLevel))
	t.Cleanup(func() { _ = c.Close() })

	inner := &countingSource{names: []string{"Stafford"}}
	src := NewSource(inner, c)
	mr.SetError("READONLY replica")

	names, err := src.CallingPoints(context.Background(), "svc-1")
	if err != nil {
		t.Fatalf("lookup should succeed without the cache: %v", err)
	}
	if len(names) != 1 || names[0] != "Stafford" {
		t.Fatalf("names = %v", names)
	}
	if !strings.Contains(logs.String(), "failed to cache calling points") {
		t.Fatalf("write failure not logged: %s", logs.String())
	}
}
