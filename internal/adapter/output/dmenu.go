package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/stackbox/internal/model"
)

// DmenuFormatter writes one line per record for dmenu, rofi or fuzzel.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
	now      func() time.Time
}

// NewDmenuFormatter creates a dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) (*DmenuFormatter, error) {
	f := &DmenuFormatter{opts: opts, now: time.Now}
	if opts.Template != "" {
		tmpl, err := parseTemplate("dmenu", opts.Template)
		if err != nil {
			return nil, err
		}
		f.template = tmpl
	}
	return f, nil
}

// Format implements Formatter.
func (f *DmenuFormatter) Format(w io.Writer, records []*model.Record) error {
	for i, r := range records {
		line, err := f.formatLine(i+1, r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) formatLine(index int, r *model.Record) (string, error) {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, r, f.now())); err != nil {
			return "", fmt.Errorf("failed to execute template: %w", err)
		}
		return buf.String(), nil
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, strconv.Itoa(index))
	}
	if f.opts.ShowTime {
		parts = append(parts, shortAge(f.now().Sub(r.CreatedTime())))
	}
	parts = append(parts, r.Ref())

	content := r.Title
	if body := sanitizeContent(r.Content, f.opts.ContentMaxLen); body != "" {
		content += ": " + body
	}
	parts = append(parts, content)

	return strings.Join(parts, sep), nil
}

// templateData is the value custom templates execute against.
type templateData struct {
	Index        int
	Record       *model.Record
	RelativeTime string
}

func newTemplateData(index int, r *model.Record, now time.Time) templateData {
	return templateData{
		Index:        index,
		Record:       r,
		RelativeTime: relativeTime(r.CreatedTime(), now),
	}
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", name, err)
	}
	return tmpl, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"reltime": func(ts int64) string {
			return relativeTime(time.Unix(ts, 0), time.Now())
		},
		"time": func(ts int64) string {
			if ts == 0 {
				return ""
			}
			return time.Unix(ts, 0).Format(timeLayout)
		},
		"comma": humanize.Comma,
		"kindIcon": func(kind string) string {
			switch kind {
			case "message":
				return "M"
			case "big":
				return "B"
			default:
				return "s"
			}
		},
	}
}

// shortAge renders d as a compact age ("5m", "2h", "3d").
func shortAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// sanitizeContent flattens content to one line and truncates it.
func sanitizeContent(content string, maxLen int) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")
	return truncate(content, maxLen)
}
