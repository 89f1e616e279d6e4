package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a widget variant.
type Kind int

const (
	// KindMessageBox is a modal dialog dismissed through a labeled button.
	KindMessageBox Kind = iota
	// KindBigBox is a persistent corner box paired with a mini icon.
	KindBigBox
	// KindSmallBox is a transient box stacked in the small-box column.
	KindSmallBox
)

// Kinds lists every widget kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindMessageBox, KindBigBox, KindSmallBox}
}

// String returns the short name used in logs, hints and history files.
func (k Kind) String() string {
	switch k {
	case KindMessageBox:
		return "message"
	case KindBigBox:
		return "big"
	case KindSmallBox:
		return "small"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name as produced by Kind.String.
// A few aliases matching the public entry point names are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "message", "messagebox", "modal":
		return KindMessageBox, nil
	case "big", "bigbox":
		return KindBigBox, nil
	case "small", "smallbox":
		return KindSmallBox, nil
	default:
		return 0, fmt.Errorf("unknown widget kind %q", s)
	}
}

// State is a widget lifecycle state. Transitions only move forward.
type State int

const (
	StateActive State = iota
	StateClosing
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// CloseReason records which dismissal path won.
type CloseReason int

const (
	// CloseReasonNone means the widget has not started closing.
	CloseReasonNone CloseReason = iota
	// CloseReasonClicked is a click on the body or close icon.
	CloseReasonClicked
	// CloseReasonButton is a message box action button.
	CloseReasonButton
	// CloseReasonExpired is the timeout firing (possibly deferred by hover).
	CloseReasonExpired
	// CloseReasonRequested is a programmatic Dismiss call.
	CloseReasonRequested
	// CloseReasonDestroyed is a teardown that skips callbacks.
	CloseReasonDestroyed
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonNone:
		return "none"
	case CloseReasonClicked:
		return "clicked"
	case CloseReasonButton:
		return "button"
	case CloseReasonExpired:
		return "expired"
	case CloseReasonRequested:
		return "requested"
	case CloseReasonDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Ref addresses a widget. IDs are only unique within a kind.
type Ref struct {
	Kind Kind
	ID   int
}

func (r Ref) String() string {
	return r.Kind.String() + "#" + strconv.Itoa(r.ID)
}

// ParseRef parses the "kind#id" form produced by Ref.String.
func ParseRef(s string) (Ref, error) {
	kindPart, idPart, ok := strings.Cut(strings.TrimSpace(s), "#")
	if !ok {
		return Ref{}, fmt.Errorf("invalid widget ref %q: want kind#id", s)
	}
	kind, err := ParseKind(kindPart)
	if err != nil {
		return Ref{}, err
	}
	id, err := strconv.Atoi(idPart)
	if err != nil || id <= 0 {
		return Ref{}, fmt.Errorf("invalid widget id in %q", s)
	}
	return Ref{Kind: kind, ID: id}, nil
}

// ColorStop is one entry of a color cycle.
type ColorStop struct {
	Color string        `json:"color" toml:"color"`
	Hold  time.Duration `json:"hold,omitempty" toml:"hold"`
}

// Origin tells listeners where a widget came from. The manager only
// carries it.
type Origin struct {
	Source string `json:"source,omitempty"`
	App    string `json:"app,omitempty"`
}

// Result is passed to a widget callback when it closes.
type Result struct {
	Ref    Ref
	Reason CloseReason
	// Button is the pressed label for message boxes.
	Button string
	// Value is the input value when the message box has an input.
	Value    string
	HasInput bool
}

// Callback is invoked exactly once when a widget is dismissed.
type Callback func(Result)

// Widget is the manager's record of a live widget.
type Widget struct {
	Ref
	UID       string
	Title     string
	Content   string
	Color     string
	Icon      string
	SmallIcon string
	Number    string
	Timeout   time.Duration
	Cycle     []ColorStop
	Period    time.Duration
	Buttons   []string
	Input     *Input
	Origin    Origin
	State     State
	CreatedAt time.Time

	reason   CloseReason
	callback Callback
	hovered  bool
	// expired is set when the timeout fired under the pointer.
	expired bool
	zIndex  int
	visible bool

	timeout Timer
	exit    Timer
	cycler  *colorCycler
}

// View is an immutable copy of a widget handed to renderers and snapshots.
type View struct {
	Ref       Ref
	UID       string
	Title     string
	Content   string
	Color     string
	Icon      string
	SmallIcon string
	Number    string
	Timeout   time.Duration
	Buttons   []string
	Input     *Input
	Origin    Origin
	State     State
	Reason    CloseReason
	CreatedAt time.Time
	Hovered   bool
	ZIndex    int
	// Visible is false for message boxes waiting in the queue.
	Visible bool
	// MiniIcon is set for big boxes, which always own one.
	MiniIcon bool
	// Top is the small-box column offset, zero for other kinds.
	Top int
}

func (w *Widget) view() View {
	v := View{
		Ref:       w.Ref,
		UID:       w.UID,
		Title:     w.Title,
		Content:   w.Content,
		Color:     w.Color,
		Icon:      w.Icon,
		SmallIcon: w.SmallIcon,
		Number:    w.Number,
		Timeout:   w.Timeout,
		Buttons:   append([]string(nil), w.Buttons...),
		Origin:    w.Origin,
		State:     w.State,
		Reason:    w.reason,
		CreatedAt: w.CreatedAt,
		Hovered:   w.hovered,
		ZIndex:    w.zIndex,
		Visible:   w.visible,
		MiniIcon:  w.Kind == KindBigBox,
	}
	if w.Input != nil {
		in := *w.Input
		in.Options = append([]string(nil), w.Input.Options...)
		v.Input = &in
	}
	return v
}
