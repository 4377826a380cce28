package backoff_test

import (
	"testing"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestLinear_GrowsLinearly(t *testing.T) {
	l := backoff.NewLinear(time.Second, time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := l.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := backoff.NewLinear(time.Second, 5*time.Second)

	if got := l.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want %v (capped at Max)", got, 5*time.Second)
	}
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},  // 1 * 2^0
		{2, 2 * time.Second},  // 1 * 2^1
		{3, 4 * time.Second},  // 1 * 2^2
		{4, 8 * time.Second},  // 1 * 2^3
		{5, 16 * time.Second}, // 1 * 2^4
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	if got := e.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestExponential_NoOverflow(t *testing.T) {
	e := backoff.NewExponential(time.Second, 0)
	if got := e.Delay(500); got <= 0 {
		t.Errorf("Delay(500) = %v, want a positive duration", got)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 10*time.Second)

	for attempt := 1; attempt <= 5; attempt++ {
		for range 100 {
			got := e.Delay(attempt)
			if got < 0 || got > 10*time.Second {
				t.Errorf("Delay(%d) = %v, out of [0, 10s]", attempt, got)
			}
		}
	}
}

func TestDefaultStrategy_PowersOfTwoSeconds(t *testing.T) {
	s := backoff.DefaultStrategy()

	for attempt, want := range map[int]time.Duration{
		1: 2 * time.Second,
		2: 4 * time.Second,
		3: 8 * time.Second,
	} {
		if got := s.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    backoff.Kind
		attempt int
		want    time.Duration
	}{
		{backoff.KindConstant, 3, time.Second},
		{backoff.KindLinear, 3, 3 * time.Second},
		{backoff.KindExponential, 3, 4 * time.Second},
		{"", 3, 4 * time.Second},
	}
	for _, tt := range tests {
		s, err := backoff.New(tt.kind, time.Second, time.Minute)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.kind, err)
		}
		if got := s.Delay(tt.attempt); got != tt.want {
			t.Errorf("New(%q).Delay(%d) = %v, want %v", tt.kind, tt.attempt, got, tt.want)
		}
	}

	if s, err := backoff.New(backoff.KindJitter, time.Second, time.Minute); err != nil || s == nil {
		t.Fatalf("New(jitter) = %v, %v", s, err)
	}
	if _, err := backoff.New("fibonacci", time.Second, 0); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := backoff.New(backoff.KindConstant, -time.Second, 0); err == nil {
		t.Error("expected error for negative delay")
	}
}
