package spapi

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zoobzio/clockz"
)

// OperationSource fetches operation status. *Client implements it.
type OperationSource interface {
	GetOperation(ctx context.Context, operationID string) (*Operation, error)
}

// PendingError means an operation was still running when the poll budget ran
// out. It is retryable by re-running the caller, never a failure.
type PendingError struct {
	OperationID string
	Status      OperationStatus
	Attempts    int
	Elapsed     time.Duration
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("operation %s still %s after %d polls (%s)", e.OperationID, e.Status, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// OperationError is a terminal failure of an operation.
type OperationError struct {
	OperationID string
	Status      OperationStatus
	Problems    []Problem
}

func (e *OperationError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("operation %s %s", e.OperationID, e.Status)
	}
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Code+": "+p.Message)
	}
	return fmt.Sprintf("operation %s %s: %s", e.OperationID, e.Status, strings.Join(msgs, "; "))
}

// Text joins every problem for classification.
func (e *OperationError) Text() string {
	var b strings.Builder
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "%s %s %s\n", p.Code, p.Message, p.Details)
	}
	return b.String()
}

// Poller drives an operation to a terminal state with linear backoff, bounded
// by an attempt count and a wall-clock budget.
type Poller struct {
	source      OperationSource
	step        time.Duration
	limit       time.Duration
	budget      time.Duration
	maxAttempts int
	clock       clockz.Clock
}

func NewPoller(source OperationSource, step, limit, budget time.Duration, maxAttempts int) *Poller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Poller{
		source:      source,
		step:        step,
		limit:       limit,
		budget:      budget,
		maxAttempts: maxAttempts,
		clock:       clockz.RealClock,
	}
}

// WithClock replaces the clock used for waits and the budget.
func (p *Poller) WithClock(clock clockz.Clock) *Poller {
	p.clock = clock
	return p
}

func (p *Poller) backoff(attempt int) time.Duration {
	d := p.step * time.Duration(attempt)
	if p.limit > 0 && d > p.limit {
		return p.limit
	}
	return d
}

// Poll returns the operation once it succeeds. A terminal failure returns the
// operation with an *OperationError; an exhausted budget returns a
// *PendingError. An empty id means the call completed synchronously.
// Transient fetch errors count as a non-terminal poll.
func (p *Poller) Poll(ctx context.Context, operationID string) (*Operation, error) {
	if operationID == "" {
		return &Operation{Status: OperationSuccess}, nil
	}
	start := p.clock.Now()
	status := OperationPending
	for attempt := 1; ; attempt++ {
		op, err := p.source.GetOperation(ctx, operationID)
		switch {
		case err != nil && !IsTransient(err):
			return nil, err
		case err != nil:
			log.Printf("poller: operation %s attempt %d: %v", operationID, attempt, err)
		case op.Status == OperationSuccess:
			return op, nil
		case op.Status.IsTerminal():
			return op, &OperationError{OperationID: operationID, Status: op.Status, Problems: op.Problems}
		default:
			status = op.Status
		}

		elapsed := p.clock.Since(start)
		wait := p.backoff(attempt)
		if attempt >= p.maxAttempts || elapsed+wait > p.budget {
			return nil, &PendingError{OperationID: operationID, Status: status, Attempts: attempt, Elapsed: elapsed}
		}
		select {
		case <-p.clock.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
