package febos

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// RetryState is the state of the session retry policy.
type RetryState int32

// Retry states. RECOVERING only lasts for the re-authentication and the
// single retried attempt.
const (
	RetrySteady RetryState = iota
	RetryRecovering
)

func (s RetryState) String() string {
	if s == RetryRecovering {
		return "recovering"
	}
	return "steady"
}

// SessionRetryPolicy recovers a refresh from an expired session: on an
// authentication failure it re-authenticates once and retries once.
// Any other failure, or any failure of the retry, is returned unchanged.
type SessionRetryPolicy struct {
	// Reauthenticate obtains a fresh session.
	Reauthenticate func(ctx context.Context) error

	logger Logger
	state  atomic.Int32
}

// NewSessionRetryPolicy creates a policy in the STEADY state.
func NewSessionRetryPolicy(reauth func(ctx context.Context) error, logger Logger) *SessionRetryPolicy {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SessionRetryPolicy{Reauthenticate: reauth, logger: logger}
}

// State returns the current state.
func (p *SessionRetryPolicy) State() RetryState {
	return RetryState(p.state.Load())
}

// Do runs attempt, applying the policy. It issues at most one
// re-authentication and at most two attempts.
func (p *SessionRetryPolicy) Do(ctx context.Context, attempt func(ctx context.Context) error) error {
	err := attempt(ctx)
	if err == nil || !errors.Is(err, ErrAuthentication) {
		return err
	}

	p.state.Store(int32(RetryRecovering))
	defer p.state.Store(int32(RetrySteady))

	p.logger.Info("session rejected, re-authenticating", "error", err)
	if rerr := p.Reauthenticate(ctx); rerr != nil {
		return fmt.Errorf("re-authenticating: %w", rerr)
	}

	if err := attempt(ctx); err != nil {
		return fmt.Errorf("retry after re-authentication: %w", err)
	}
	return nil
}
