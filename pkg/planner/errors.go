package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrAxiomsUnsupported is returned when a task with axioms is handed to the
	// regression builder. Regressing through derived variables is unsound.
	ErrAxiomsUnsupported = errors.New("axioms are not supported")

	// ErrConditionalEffects is returned when an operator has an effect with
	// effect conditions. There is no sound inverse for such an effect.
	ErrConditionalEffects = errors.New("conditional effects are not supported")

	// ErrInvalidTask reports a structurally broken task (bad variable ids,
	// values outside their domain, wrong state length).
	ErrInvalidTask = errors.New("invalid task")

	// ErrNoSolution is returned by Search when both frontiers are exhausted.
	ErrNoSolution = errors.New("completely explored state space, no solution")

	// ErrSearchLimitReached indicates a run stopped at the configured
	// expansion limit or per-direction step cap before a plan was found.
	ErrSearchLimitReached = errors.New("search limit reached")

	// ErrInvalidPlan is returned by Plan.Validate when replaying the plan
	// fails or does not reach the goal.
	ErrInvalidPlan = errors.New("invalid plan")
)

// TaskError wraps task construction failures. Kind is one of the sentinel
// errors above so callers can use errors.Is.
type TaskError struct {
	Kind error
	Msg  string
}

func (e *TaskError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *TaskError) Unwrap() error { return e.Kind }

func taskErrorf(kind error, format string, args ...any) error {
	return &TaskError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
