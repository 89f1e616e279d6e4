// Package input reads widget requests in bulk, for `stackbox batch`.
package input

import (
	"context"
	"os"
	"strconv"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// InputAdapter reads widget requests from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g. "stdin", "file").
	Name() string

	// Import reads every request from the source. Requests that parsed
	// are returned together with an error describing the lines that did not.
	Import(ctx context.Context) ([]notify.Request, error)
}

// NewAdapter creates an InputAdapter for source: "-" or "stdin" reads
// standard input, anything else is a file path.
func NewAdapter(source string) (InputAdapter, error) {
	switch source {
	case "", "-", "stdin":
		return NewStdinAdapter(), nil
	default:
		if _, err := os.Stat(source); err != nil {
			return nil, &AdapterError{
				Source:  source,
				Message: "input file unavailable",
				Err:     err,
			}
		}
		return NewFileAdapter(source), nil
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Line    int
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = e.Source + ":" + strconv.Itoa(e.Line) + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
