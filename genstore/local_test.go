package genstore

import (
	"context"
	"testing"
	"time"
)

func TestLocalBumpAndCurrent(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	defer s.Close(ctx)

	if g, err := s.Current(ctx, "k"); err != nil || g != 0 {
		t.Fatalf("missing key should read 0, got %d err=%v", g, err)
	}
	for want := uint64(1); want <= 3; want++ {
		g, err := s.Bump(ctx, "k")
		if err != nil || g != want {
			t.Fatalf("Bump: got %d err=%v want %d", g, err, want)
		}
	}
	if g, _ := s.Current(ctx, "k"); g != 3 {
		t.Fatalf("Current after bumps: got %d want 3", g)
	}
	if g, _ := s.Current(ctx, "other"); g != 0 {
		t.Fatalf("unrelated key should stay 0, got %d", g)
	}
}

func TestLocalPrune(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	defer s.Close(ctx)

	if _, err := s.Bump(ctx, "old"); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	// Everything bumped more than 1ns before now is pruned.
	s.Prune(time.Nanosecond)
	if g, _ := s.Current(ctx, "old"); g != 0 {
		t.Fatalf("pruned counter should read 0, got %d", g)
	}

	// Prune with a generous retention keeps fresh counters.
	if _, err := s.Bump(ctx, "fresh"); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	s.Prune(time.Hour)
	if g, _ := s.Current(ctx, "fresh"); g != 1 {
		t.Fatalf("fresh counter should survive prune, got %d", g)
	}
}

func TestLocalCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(time.Millisecond, time.Minute)
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
