package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunInvokesTickUntilCancelled(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time, 1)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			select {
			case ticks <- bucket:
			default:
			}
			return nil
		})
	}()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("tick never fired")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run should return context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunContinuesAfterTickError(t *testing.T) {
	s := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			count++
			if count >= 2 {
				cancel()
			}
			return context.DeadlineExceeded
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	if count < 2 {
		t.Fatalf("tick errors should not stop the loop, got %d ticks", count)
	}
}

func TestNextTickAlignment(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	next := s.nextTick(now)
	if want := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("aligned next tick = %v, want %v", next, want)
	}

	unaligned := New(Options{Interval: time.Hour}, zerolog.Nop())
	if next := unaligned.nextTick(now); !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("unaligned next tick = %v, want now+interval", next)
	}
}
