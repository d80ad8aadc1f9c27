package models

import (
	"errors"
	"fmt"
)

// FatalError marks a failure that ends the whole run. Callers report it and
// exit; no other scope is processed afterwards.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	if e.Op == "" {
		return fmt.Errorf("fatal: %w", e.Err).Error()
	}
	return fmt.Errorf("fatal: %s: %w", e.Op, e.Err).Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError unless it already is one.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return err
	}
	return &FatalError{Op: op, Err: err}
}
