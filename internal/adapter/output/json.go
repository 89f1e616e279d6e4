package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/stackbox/internal/model"
)

// JSONFormatter writes records as a JSON array, or one object per line
// when Compact is set.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, records []*model.Record) error {
	encoder := json.NewEncoder(w)
	if f.opts.Compact {
		for _, r := range records {
			if err := encoder.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	encoder.SetIndent("", "  ")
	if records == nil {
		records = []*model.Record{}
	}
	return encoder.Encode(records)
}

// YAMLFormatter writes records as a YAML sequence.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// yamlRecord mirrors model.Record with readable timestamps.
type yamlRecord struct {
	UID      string `yaml:"uid"`
	Ref      string `yaml:"ref"`
	Source   string `yaml:"source"`
	AppName  string `yaml:"app,omitempty"`
	Title    string `yaml:"title"`
	Content  string `yaml:"content,omitempty"`
	Color    string `yaml:"color,omitempty"`
	Icon     string `yaml:"icon,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	Created  string `yaml:"created"`
	Closed   string `yaml:"closed,omitempty"`
	Lifetime string `yaml:"lifetime,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
	Button   string `yaml:"button,omitempty"`
	Value    string `yaml:"value,omitempty"`
}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, records []*model.Record) error {
	out := make([]yamlRecord, 0, len(records))
	for _, r := range records {
		y := yamlRecord{
			UID:     r.UID,
			Ref:     r.Ref(),
			Source:  r.Source,
			AppName: r.AppName,
			Title:   r.Title,
			Content: r.Content,
			Color:   r.Color,
			Icon:    r.Icon,
			Created: r.CreatedTime().Format(timeLayout),
			Reason:  r.Reason,
			Button:  r.Button,
			Value:   r.Value,
		}
		if r.Timeout > 0 {
			y.Timeout = fmt.Sprintf("%dms", r.Timeout)
		}
		if r.IsClosed() {
			y.Closed = r.ClosedTime().Format(timeLayout)
			y.Lifetime = r.Lifetime().String()
		}
		out = append(out, y)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return encoder.Close()
}

const timeLayout = "2006-01-02 15:04:05"
