// Package model defines the history record written for every widget.
package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record sources.
const (
	SourceDBus     = "dbus"
	SourceCLI      = "cli"
	SourceSchedule = "schedule"
	SourceInternal = "internal"
	SourceDemo     = "demo"
)

// Record is one widget lifetime as stored in the history file.
type Record struct {
	UID    string `json:"uid"`
	Source string `json:"source"`

	Kind     string `json:"kind"`
	WidgetID int    `json:"widget_id"`
	AppName  string `json:"app_name,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`
	Color    string `json:"color,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Timeout  int64  `json:"timeout_ms,omitempty"`

	CreatedAt int64 `json:"created_at"`
	ClosedAt  int64 `json:"closed_at,omitempty"`

	// Reason is the close reason name ("clicked", "expired", ...).
	Reason string `json:"reason,omitempty"`
	Button string `json:"button,omitempty"`
	// Value is the message box input value. Password inputs are never stored.
	Value string `json:"value,omitempty"`

	ContentHash string `json:"content_hash,omitempty"`
}

// Validation errors.
var (
	ErrEmptyUID          = errors.New("uid cannot be empty")
	ErrEmptySource       = errors.New("source cannot be empty")
	ErrInvalidKind       = errors.New("kind must be small, big or message")
	ErrInvalidWidgetID   = errors.New("widget_id must be greater than 0")
	ErrInvalidCreatedAt  = errors.New("created_at must be greater than 0")
	ErrClosedBeforeStart = errors.New("closed_at precedes created_at")
)

// Kinds lists the accepted kind names.
var Kinds = []string{"small", "big", "message"}

// NewRecord creates a Record with a fresh ULID.
func NewRecord(source string, created time.Time) (*Record, error) {
	id, err := ulid.New(ulid.Timestamp(created), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Record{
		UID:       id.String(),
		Source:    source,
		CreatedAt: created.Unix(),
	}, nil
}

// Validate checks that the record has all required fields.
func (r *Record) Validate() error {
	if r.UID == "" {
		return ErrEmptyUID
	}
	if r.Source == "" {
		return ErrEmptySource
	}
	if !validKind(r.Kind) {
		return ErrInvalidKind
	}
	if r.WidgetID <= 0 {
		return ErrInvalidWidgetID
	}
	if r.CreatedAt <= 0 {
		return ErrInvalidCreatedAt
	}
	if r.ClosedAt != 0 && r.ClosedAt < r.CreatedAt {
		return ErrClosedBeforeStart
	}
	return nil
}

func validKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Ref returns the "kind#id" form used in logs and on the command line.
func (r *Record) Ref() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.WidgetID)
}

// IsClosed reports whether the widget has been dismissed.
func (r *Record) IsClosed() bool {
	return r.ClosedAt > 0
}

// MarkClosed records how the widget was dismissed.
func (r *Record) MarkClosed(at time.Time, reason, button, value string) {
	r.ClosedAt = at.Unix()
	r.Reason = reason
	r.Button = button
	r.Value = value
}

// Lifetime returns how long the widget was on screen, zero while open.
func (r *Record) Lifetime() time.Duration {
	if !r.IsClosed() {
		return 0
	}
	return time.Duration(r.ClosedAt-r.CreatedAt) * time.Second
}

// ContentTruncated returns the content on one line, cut to maxLen with "...".
func (r *Record) ContentTruncated(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	content := strings.Join(strings.Fields(r.Content), " ")

	if len(content) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return content[:maxLen]
	}
	return content[:maxLen-3] + "..."
}

// DedupeKey identifies records with the same kind, text and creation second.
func (r *Record) DedupeKey() string {
	return fmt.Sprintf("%s:%s:%s:%d", r.Kind, r.Title, r.Content, r.CreatedAt)
}

// ComputeContentHash returns the SHA256 of DedupeKey.
func (r *Record) ComputeContentHash() string {
	hash := sha256.Sum256([]byte(r.DedupeKey()))
	return hex.EncodeToString(hash[:])
}

// EnsureContentHash sets ContentHash if it is empty.
func (r *Record) EnsureContentHash() {
	if r.ContentHash == "" {
		r.ContentHash = r.ComputeContentHash()
	}
}

// CreatedTime returns CreatedAt as a time.Time.
func (r *Record) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

// ClosedTime returns ClosedAt as a time.Time, zero while open.
func (r *Record) ClosedTime() time.Time {
	if r.ClosedAt == 0 {
		return time.Time{}
	}
	return time.Unix(r.ClosedAt, 0)
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	return &clone
}
