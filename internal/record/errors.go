package record

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced id does not exist in the collection.
	ErrNotFound = errors.New("record: not found")

	// ErrNoState is returned by Backend.Load when nothing has been persisted yet.
	ErrNoState = errors.New("record: no persisted state")
)

// DecodeError wraps a failure to parse a persisted document.
type DecodeError struct {
	Collection string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record: decode %s document: %v", e.Collection, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func notFound(s Schema, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, s.Name, id)
}
