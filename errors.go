package lesst

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDescription = errors.New("the testing description cannot be empty")
	ErrNilCallback      = errors.New("callback must be a function")
	ErrNilPredicate     = errors.New("predicate must be a function")
	ErrMissingTitle     = errors.New("section test must have a title")
)

// FatalError stops a TestFlow run: a callback (or hook) failed for a reason
// other than a captured assertion.
type FatalError struct {
	// Index is the 1-based test number, or 0 for suite-level hooks.
	Index       int
	Description string
	Err         error
}

func (e *FatalError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("%s: %v", e.Description, e.Err)
	}
	return fmt.Sprintf("test %d (%s): %v", e.Index, e.Description, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
