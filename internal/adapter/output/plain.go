package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/stackbox/internal/model"
)

// PlainFormatter writes records as human readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
	now      func() time.Time
}

// NewPlainFormatter creates a plain text formatter. An invalid custom
// template is an error.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	f := &PlainFormatter{opts: opts, now: time.Now}
	if opts.Template != "" {
		tmpl, err := parseTemplate("plain", opts.Template)
		if err != nil {
			return nil, err
		}
		f.template = tmpl
	}
	return f, nil
}

// Format implements Formatter.
func (f *PlainFormatter) Format(w io.Writer, records []*model.Record) error {
	for i, r := range records {
		if err := f.formatRecord(w, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatRecord(w io.Writer, index int, r *model.Record) error {
	if f.template != nil {
		if err := f.template.Execute(w, newTemplateData(index, r, f.now())); err != nil {
			return fmt.Errorf("failed to execute template: %w", err)
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder
	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	fmt.Fprintf(&sb, "%-10s ", r.Ref())
	if r.AppName != "" {
		fmt.Fprintf(&sb, "<%s> ", r.AppName)
	}
	sb.WriteString(r.Title)
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", relativeTime(r.CreatedTime(), f.now()))
	}
	if f.opts.ShowReason {
		sb.WriteString(" " + status(r))
	}
	sb.WriteString("\n")

	if r.Content != "" {
		sb.WriteString("    " + sanitizeContent(r.Content, f.opts.ContentMaxLen) + "\n")
	}
	if r.Button != "" {
		fmt.Fprintf(&sb, "    button: %s", r.Button)
		if r.Value != "" {
			fmt.Fprintf(&sb, " value: %s", r.Value)
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// status summarizes the close state of r.
func status(r *model.Record) string {
	if !r.IsClosed() {
		return "[open]"
	}
	return fmt.Sprintf("[%s after %s]", r.Reason, r.Lifetime().Round(time.Second))
}

// FormatField returns one field of a record, used by `history --field`.
func FormatField(r *model.Record, field string) string {
	switch strings.ToLower(field) {
	case "uid", "id":
		return r.UID
	case "ref":
		return r.Ref()
	case "kind":
		return r.Kind
	case "app", "app_name":
		return r.AppName
	case "title":
		return r.Title
	case "content", "body":
		return r.Content
	case "color":
		return r.Color
	case "reason":
		return r.Reason
	case "button":
		return r.Button
	case "value":
		return r.Value
	case "all", "full":
		return fmt.Sprintf("%s\n%s", r.Title, r.Content)
	default:
		return r.Title
	}
}

// relativeTime renders t relative to now ("3 minutes ago").
func relativeTime(t, now time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return "unknown"
	}
	if now.Sub(t) < time.Minute {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
