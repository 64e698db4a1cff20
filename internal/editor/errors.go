package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEditor means no compatible surface is mounted.
	ErrNoEditor = errors.New("editor: no compatible editor found")
	// ErrUnsupportedSurface means a published value has neither capability set.
	ErrUnsupportedSurface = errors.New("editor: surface exposes no supported capability")
	// ErrDuplicateID means a surface with the same id is already mounted.
	ErrDuplicateID = errors.New("editor: surface id already mounted")
)

// InsertionError reports that a reference could not be placed in any
// surface. It is terminal for the image it concerns.
type InsertionError struct {
	Name string // original name of the image
	Kind Kind
	Err  error
}

func (e *InsertionError) Error() string {
	if e.Kind == KindNone {
		return fmt.Sprintf("editor: cannot insert %q: %v", e.Name, e.Err)
	}

	return fmt.Sprintf("editor: cannot insert %q into %s surface: %v", e.Name, e.Kind, e.Err)
}

func (e *InsertionError) Unwrap() error {
	return e.Err
}
