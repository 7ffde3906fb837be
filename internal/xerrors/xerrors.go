package xerrors

import (
	"errors"
	"fmt"
)

// New is a proxy to errors.New, kept so callers only ever import this
// package for error construction.
func New(text string) error {
	return errors.New(text)
}

// Wrap annotates err so that it prints with a "session pool: " prefix. It does not add a stack trace;
// use WithStackTrace for that.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("session pool: %w", err)
}

