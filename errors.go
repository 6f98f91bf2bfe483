package onequery

import (
	"fmt"
)

// InvalidationError reports a partially-failed invalidate or reset pass.
// Matching itself is total and cannot fail; the store operations behind it
// can, and a failure there may leave part of the matched set untouched.
type InvalidationError struct {
	Scope     string
	Paginated bool
	Matched   int // entries the spec selected before the failure
	QueryErr  error
	StoreErr  error
}

func (e *InvalidationError) Error() string {
	switch {
	case e.QueryErr != nil:
		return fmt.Sprintf("invalidation in scope %q: store query failed: %v", e.Scope, e.QueryErr)
	case e.StoreErr != nil:
		return fmt.Sprintf("invalidation in scope %q: %d matched, store op failed: %v",
			e.Scope, e.Matched, e.StoreErr)
	default:
		return fmt.Sprintf("invalidation in scope %q: unknown error", e.Scope)
	}
}

func (e *InvalidationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.QueryErr != nil {
		errs = append(errs, e.QueryErr)
	}
	if e.StoreErr != nil {
		errs = append(errs, e.StoreErr)
	}
	return errs
}
