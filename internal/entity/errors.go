package entity

import (
	"errors"
	"fmt"
)

// MissingFieldError reports a catalog entry lacking a value the ledger
// requires.
type MissingFieldError struct {
	Entity string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: a value for %q is mandatory", e.Entity, e.Field)
}

// IsMissingField reports whether err is or wraps a MissingFieldError.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}
