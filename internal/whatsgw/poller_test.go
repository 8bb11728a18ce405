package whatsgw

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProber struct {
	states []string
	errs   []error
	calls  int
}

func (p *scriptedProber) ConnectionState(ctx context.Context, name string) (string, error) {
	i := p.calls
	p.calls++
	if i >= len(p.states) {
		i = len(p.states) - 1
	}
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return p.states[i], err
}

func TestPollerConnects(t *testing.T) {
	prober := &scriptedProber{states: []string{StateConnecting, StateConnecting, StateOpen}}
	p := NewPoller(prober, "inst1", time.Millisecond, time.Second)

	if got := p.Run(context.Background()); got != OutcomeConnected {
		t.Fatalf("outcome = %s, want connected", got)
	}
	if prober.calls < 3 {
		t.Errorf("prober called %d times, want >= 3", prober.calls)
	}
}

func TestPollerCancelled(t *testing.T) {
	prober := &scriptedProber{states: []string{StateConnecting}}
	p := NewPoller(prober, "inst1", 5*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := p.Run(ctx); got != OutcomeCancelled {
		t.Fatalf("outcome = %s, want cancelled", got)
	}
}

func TestPollerFailsOnDeadline(t *testing.T) {
	prober := &scriptedProber{states: []string{StateConnecting}}
	p := NewPoller(prober, "inst1", time.Millisecond, 10*time.Millisecond)

	if got := p.Run(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", got)
	}
}

func TestPollerFailsOnRepeatedErrors(t *testing.T) {
	probeErr := errors.New("gateway down")
	prober := &scriptedProber{
		states: []string{"", "", "", "", ""},
		errs:   []error{probeErr, probeErr, probeErr, probeErr, probeErr},
	}
	p := NewPoller(prober, "inst1", time.Millisecond, time.Minute)

	if got := p.Run(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", got)
	}
	if prober.calls != maxConsecutiveErrors {
		t.Errorf("prober called %d times, want %d", prober.calls, maxConsecutiveErrors)
	}
}
