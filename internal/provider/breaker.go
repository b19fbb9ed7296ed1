package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/hpungsan/nexus/internal/note"
)

// BreakerClassifier wraps a Classifier in a circuit breaker. After a run of
// consecutive failures the breaker opens and calls fail fast until the timeout
// elapses, so a dead model endpoint does not stall every save.
type BreakerClassifier struct {
	next Classifier
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClassifier creates a breaker that trips after failures consecutive
// errors and stays open for timeout.
func NewBreakerClassifier(next Classifier, failures uint32, timeout time.Duration, logger *zap.Logger) *BreakerClassifier {
	if failures == 0 {
		failures = 3
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// A cancelled caller says nothing about the backend's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerClassifier{next: next, cb: cb}
}

// Classify implements Classifier. When the circuit is open it returns
// gobreaker.ErrOpenState without calling the wrapped classifier.
func (b *BreakerClassifier) Classify(ctx context.Context, subject note.Subject, candidates []note.Candidate) ([]note.Proposal, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Classify(ctx, subject, candidates)
	})
	if err != nil {
		return nil, err
	}
	proposals, _ := out.([]note.Proposal)
	return proposals, nil
}

// State reports the breaker state.
func (b *BreakerClassifier) State() gobreaker.State {
	return b.cb.State()
}
