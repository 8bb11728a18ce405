package whatsgw

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PollOutcome is the terminal state of a pairing poll.
type PollOutcome string

const (
	OutcomeConnected PollOutcome = "connected"
	OutcomeFailed    PollOutcome = "failed"
	OutcomeCancelled PollOutcome = "cancelled"
)

// StateProber abstracts the gateway's connectionState call so the poller can
// be tested without the HTTP surface.
type StateProber interface {
	ConnectionState(ctx context.Context, name string) (string, error)
}

const maxConsecutiveErrors = 5

// Poller watches one instance's connection state on a fixed interval until
// it reaches a terminal outcome. It replaces "poll while the pairing dialog
// is open": callers cancel the context when the pairing UI closes.
type Poller struct {
	prober   StateProber
	instance string
	interval time.Duration
	maxWait  time.Duration
}

func NewPoller(prober StateProber, instance string, interval, maxWait time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}
	return &Poller{prober: prober, instance: instance, interval: interval, maxWait: maxWait}
}

// Run blocks until the instance connects, the deadline passes, probing keeps
// erroring, or ctx is cancelled.
func (p *Poller) Run(ctx context.Context) PollOutcome {
	deadline := time.Now().Add(p.maxWait)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	errCount := 0
	for {
		select {
		case <-ctx.Done():
			return OutcomeCancelled
		case <-ticker.C:
			state, err := p.prober.ConnectionState(ctx, p.instance)
			if err != nil {
				errCount++
				zap.L().Warn("pairing poll error",
					zap.String("instance", p.instance),
					zap.Int("consecutive", errCount),
					zap.Error(err))
				if errCount >= maxConsecutiveErrors {
					return OutcomeFailed
				}
			} else {
				errCount = 0
				if state == StateOpen {
					return OutcomeConnected
				}
			}
			if time.Now().After(deadline) {
				return OutcomeFailed
			}
		}
	}
}
