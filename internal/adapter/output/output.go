// Package output renders history records for the command line.
package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/stackbox/internal/model"
)

// Formatter writes history records.
type Formatter interface {
	Format(w io.Writer, records []*model.Record) error
}

// FormatType names an output format.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// Formats lists the accepted format names.
func Formats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}
}

// NewFormatter creates a formatter for format.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatPlain, "":
		return NewPlainFormatter(opts)
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template      string // custom text/template for plain and dmenu
	ShowIndex     bool
	ShowTime      bool
	ShowReason    bool
	ContentMaxLen int    // 0 = unlimited
	Separator     string // dmenu field separator
	Compact       bool   // single-line JSON
}

// DefaultFormatterOptions returns the options used by `stackbox history`.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:     true,
		ShowTime:      true,
		ShowReason:    true,
		ContentMaxLen: 80,
		Separator:     " | ",
	}
}
