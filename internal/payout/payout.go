package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/aridelgado/blindbox-backend/pkg/config"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/google/uuid"
)

// Disburser moves funds out of the platform to an account. Implementations
// must be synchronous and fallible so callers can roll back state on failure.
type Disburser interface {
	Disburse(ctx context.Context, to uuid.UUID, amountWei int64) error
}

// Simulator is the development disburser. It sleeps for the configured
// latency and succeeds, or always fails when the mode is set to "fail".
type Simulator struct {
	mode    string
	latency time.Duration
}

// NewSimulator builds a simulator from the payout config.
func NewSimulator(cfg config.PayoutConfig) (*Simulator, error) {
	switch cfg.Mode {
	case "simulate", "fail":
	default:
		return nil, fmt.Errorf("unknown payout mode %q", cfg.Mode)
	}
	return &Simulator{mode: cfg.Mode, latency: cfg.Latency}, nil
}

func (s *Simulator) Disburse(ctx context.Context, to uuid.UUID, amountWei int64) error {
	if to == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodePayoutFailed, "payout target missing")
	}
	if amountWei <= 0 {
		return pkgerrors.New(pkgerrors.CodePayoutFailed, "payout amount must be positive")
	}
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodePayoutFailed, ctx.Err(), "payout cancelled")
		case <-timer.C:
		}
	}
	if s.mode == "fail" {
		return pkgerrors.New(pkgerrors.CodePayoutFailed, "simulated transfer failure")
	}
	return nil
}
