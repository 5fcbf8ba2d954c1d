package grading

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/bosync/internal/ir"
)

// ExpressionError reports an expression that is malformed, uses syntax
// outside the restricted grammar, or evaluates to the wrong type.
type ExpressionError struct {
	Expr    string
	Message string
	Err     error
}

func (e *ExpressionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("expression %q: %s: %v", e.Expr, e.Message, e.Err)
	}
	return fmt.Sprintf("expression %q: %s", e.Expr, e.Message)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// InvariantError reports a market for which the number of true outcomes
// is not exactly one.
type InvariantError struct {
	Position int
	Market   ir.ObjectID
	Truths   map[string]bool
}

func (e *InvariantError) Error() string {
	var held []string
	for label, ok := range e.Truths {
		if ok {
			held = append(held, label)
		}
	}
	sort.Strings(held)
	return fmt.Sprintf("market %d (%s): %d outcomes hold [%s], want exactly one",
		e.Position, e.Market, len(held), strings.Join(held, ", "))
}

// IsInvariantError reports whether err is or wraps an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsExpressionError reports whether err is or wraps an ExpressionError.
func IsExpressionError(err error) bool {
	var ee *ExpressionError
	return errors.As(err, &ee)
}
