package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when a caller-imposed deadline or cancellation
// stops a batch before it completes. No partial report accompanies it.
var ErrCancelled = errors.New("resolution cancelled")

// NotFoundError reports a requested part that appears in no searched source,
// neither as a product nor as a component.
type NotFoundError struct {
	PartNo  string
	Sources []string // Sources that were searched
}

func (e *NotFoundError) Error() string {
	if len(e.Sources) == 0 {
		return fmt.Sprintf("part %q not found: no sources searched", e.PartNo)
	}
	return fmt.Sprintf("part %q not found in %s", e.PartNo, strings.Join(e.Sources, ", "))
}

// MalformedSourceError reports a source row that breaks the minimal
// PartRecord contract, or a source missing its key columns altogether.
type MalformedSourceError struct {
	Source string
	Line   int // 0 when the problem is not tied to a single row
	Reason string
}

func (e *MalformedSourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed source %q at line %d: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed source %q: %s", e.Source, e.Reason)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
