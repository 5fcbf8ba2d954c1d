package comparator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/bosync/internal/ir"
)

// ShapeError reports an observed payload that matches no known operation
// shape, or carries a field that cannot be decoded. It signals malformed
// data, not a mismatch.
type ShapeError struct {
	Identifier string
	Field      string
	Shapes     [][]string
	Keys       []string
	Err        error
}

func (e *ShapeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("malformed payload for %s: field %s: %v", e.Identifier, e.Field, e.Err)
	default:
		return fmt.Sprintf("payload for %s matches no known shape %v (keys %v)", e.Identifier, e.Shapes, e.Keys)
	}
}

func (e *ShapeError) Unwrap() error { return e.Err }

// IsShapeError reports whether err is or wraps a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

func keysOf(f ir.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
