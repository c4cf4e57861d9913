package saga

import (
	"context"
	"fmt"
	"log/slog"
)

// Operation is a saga step's forward action. Its result is collected into
// the slice returned by Execute.
type Operation func(ctx context.Context) (any, error)

// Compensation undoes a completed step during rollback. A nil compensation
// marks the step as non-reversible.
type Compensation func(ctx context.Context) error

type step struct {
	id   string
	op   Operation
	comp Compensation
}

// Options configures a Saga.
type Options struct {
	// Logger records step progress and compensation failures.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Saga is an ordered sequence of compensable steps. It is not safe for
// concurrent use; build and execute it from a single goroutine.
type Saga struct {
	steps  []step
	logger *slog.Logger
}

// New creates an empty saga.
func New(opts Options) *Saga {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Saga{logger: opts.Logger}
}

// AddStep appends a step. compensation may be nil for non-reversible steps;
// an empty stepID defaults to "step_<n>".
func (s *Saga) AddStep(operation Operation, compensation Compensation, stepID string) {
	if stepID == "" {
		stepID = fmt.Sprintf("step_%d", len(s.steps))
	}
	s.steps = append(s.steps, step{id: stepID, op: operation, comp: compensation})
}

// Len returns the number of steps added so far.
func (s *Saga) Len() int {
	return len(s.steps)
}

// Execute runs the steps in order. On success it returns every step's result.
// On the first failure it compensates the previously completed steps in
// reverse order and returns the failing step's original error; the failing
// step itself is never compensated. A panicking step is treated as a failed
// step.
func (s *Saga) Execute(ctx context.Context) ([]any, error) {
	results := make([]any, 0, len(s.steps))
	completed := 0

	for _, st := range s.steps {
		s.logger.Debug("executing saga step", "step", st.id)

		result, err := runOperation(ctx, st.op)
		if err != nil {
			s.logger.Error("saga step failed, compensating",
				"step", st.id, "completed", completed, "error", err)
			s.compensate(ctx, completed)
			return nil, err
		}

		results = append(results, result)
		completed++
	}

	s.logger.Info("saga completed", "steps", completed)
	return results, nil
}

// compensate rolls back the first n steps in reverse order. Each compensation
// is independently guarded: failures are logged, never propagated, since the
// goal is best-effort cleanup.
func (s *Saga) compensate(ctx context.Context, n int) {
	for i := n - 1; i >= 0; i-- {
		st := s.steps[i]
		if st.comp == nil {
			continue
		}
		if err := runCompensation(ctx, st.comp); err != nil {
			s.logger.Error("compensation failed", "step", st.id, "error", err)
			continue
		}
		s.logger.Debug("compensation executed", "step", st.id)
	}
}

// runOperation invokes op, converting a panic into an error so a misbehaving
// step still triggers rollback instead of crashing the coordinator.
func runOperation(ctx context.Context, op Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("saga step panicked: %v", r)
		}
	}()
	return op(ctx)
}

func runCompensation(ctx context.Context, comp Compensation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation panicked: %v", r)
		}
	}()
	return comp(ctx)
}
