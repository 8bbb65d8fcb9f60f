package store

import (
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned (wrapped in *Error) when a lead does not exist.
var ErrNotFound = eris.New("lead not found")

// Error is a persistence failure: the backend was unreachable or rejected
// the write. The ingestion pipeline treats it as terminal.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
