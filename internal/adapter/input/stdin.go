package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmylchreest/stackbox/internal/notify"
)

const maxInputSize = 10 * 1024 * 1024

// StdinAdapter reads requests from standard input.
type StdinAdapter struct {
	name   string
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{name: "stdin", reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{name: "stdin", reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return a.name
}

// Import reads requests. Two layouts are accepted: one JSON object per
// line, or a single JSON array of objects.
func (a *StdinAdapter) Import(ctx context.Context) ([]notify.Request, error) {
	data, err := io.ReadAll(io.LimitReader(a.reader, maxInputSize))
	if err != nil {
		return nil, &AdapterError{Source: a.name, Message: "failed to read input", Err: err}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return a.parseArray(trimmed)
	}
	return a.parseLines(ctx, trimmed)
}

func (a *StdinAdapter) parseArray(data []byte) ([]notify.Request, error) {
	var entries []requestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &AdapterError{Source: a.name, Message: "failed to parse JSON input", Err: err}
	}

	var (
		requests []notify.Request
		errs     []error
	)
	for i, entry := range entries {
		req, err := entry.toRequest()
		if err != nil {
			errs = append(errs, &AdapterError{Source: a.name, Line: i + 1, Message: "invalid request", Err: err})
			continue
		}
		requests = append(requests, req)
	}
	return requests, errors.Join(errs...)
}

func (a *StdinAdapter) parseLines(ctx context.Context, data []byte) ([]notify.Request, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxInputSize)

	var (
		requests []notify.Request
		errs     []error
		line     int
	)
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return requests, err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var entry requestEntry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			errs = append(errs, &AdapterError{Source: a.name, Line: line, Message: "invalid JSON", Err: err})
			continue
		}
		req, err := entry.toRequest()
		if err != nil {
			errs = append(errs, &AdapterError{Source: a.name, Line: line, Message: "invalid request", Err: err})
			continue
		}
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, &AdapterError{Source: a.name, Message: "failed to read input", Err: err})
	}
	return requests, errors.Join(errs...)
}

// FileAdapter reads requests from a file in the same layouts as stdin.
type FileAdapter struct {
	path string
}

// NewFileAdapter creates a FileAdapter for path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Name returns the adapter identifier.
func (a *FileAdapter) Name() string {
	return "file"
}

// Import reads every request in the file.
func (a *FileAdapter) Import(ctx context.Context) ([]notify.Request, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, &AdapterError{Source: a.path, Message: "failed to open input", Err: err}
	}
	defer func() { _ = f.Close() }()

	return (&StdinAdapter{name: a.path, reader: f}).Import(ctx)
}

// requestEntry is one request in the batch JSON format.
type requestEntry struct {
	Kind        string          `json:"kind"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Icon        string          `json:"icon,omitempty"`
	SmallIcon   string          `json:"small_icon,omitempty"`
	Number      string          `json:"number,omitempty"`
	Color       string          `json:"color,omitempty"`
	Colors      []string        `json:"colors,omitempty"`
	ColorTimeMS int64           `json:"color_time_ms,omitempty"`
	TimeoutMS   int64           `json:"timeout_ms,omitempty"`
	Buttons     json.RawMessage `json:"buttons,omitempty"`
	Input       *notify.Input   `json:"input,omitempty"`
	Silent      bool            `json:"silent,omitempty"`
}

// toRequest converts an entry. A negative timeout_ms keeps the box open.
// Buttons may be a JSON array or a bracket list string ("[Yes][No]").
func (e requestEntry) toRequest() (notify.Request, error) {
	kind := notify.KindSmallBox
	if e.Kind != "" {
		parsed, err := notify.ParseKind(e.Kind)
		if err != nil {
			return notify.Request{}, err
		}
		kind = parsed
	}

	req := notify.Request{
		Kind:      kind,
		Title:     sanitizeString(e.Title),
		Content:   sanitizeString(e.Content),
		Icon:      e.Icon,
		SmallIcon: e.SmallIcon,
		Number:    e.Number,
		Color:     e.Color,
		ColorTime: time.Duration(e.ColorTimeMS) * time.Millisecond,
		Input:     e.Input,
		Silent:    e.Silent,
	}
	for _, c := range e.Colors {
		req.Colors = append(req.Colors, notify.ColorStop{Color: strings.TrimSpace(c)})
	}
	switch {
	case e.TimeoutMS < 0:
		req.Timeout = notify.NoTimeout
	case e.TimeoutMS > 0:
		req.Timeout = time.Duration(e.TimeoutMS) * time.Millisecond
	}

	buttons, err := parseButtons(e.Buttons)
	if err != nil {
		return notify.Request{}, err
	}
	req.Buttons = buttons
	return req, nil
}

func parseButtons(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("buttons must be a list or a bracket string")
	}
	return notify.ParseBracketList(text), nil
}

// sanitizeString removes control characters and trims whitespace.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
