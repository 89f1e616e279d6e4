package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/stackbox/internal/model"
)

// IDsFormatter outputs record UIDs, one per line.
// Useful for piping to other commands (e.g. stackbox history --uid).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes record UIDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, records []*model.Record) error {
	for _, r := range records {
		if _, err := fmt.Fprintln(w, r.UID); err != nil {
			return err
		}
	}
	return nil
}
