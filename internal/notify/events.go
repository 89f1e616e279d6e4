package notify

import "time"

// EventType names what changed.
type EventType int

const (
	// EventCreated carries the new widget's View.
	EventCreated EventType = iota
	// EventStateChanged fires on Active->Closing and Closing->Removed.
	EventStateChanged
	// EventRemoved follows the final StateChanged; renderers drop the widget.
	EventRemoved
	// EventLayoutChanged carries the full small-box offset table.
	EventLayoutChanged
	// EventZOrderChanged carries the widget's new z index.
	EventZOrderChanged
	// EventColorChanged carries the applied color and its targets.
	EventColorChanged
	// EventVisibilityChanged shows or hides a queued message box.
	EventVisibilityChanged
	// EventBackdropChanged shows or hides the modal overlay.
	EventBackdropChanged
	// EventAlert is a blocking notice for the user, e.g. a bad configuration.
	EventAlert
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventStateChanged:
		return "state"
	case EventRemoved:
		return "removed"
	case EventLayoutChanged:
		return "layout"
	case EventZOrderChanged:
		return "zorder"
	case EventColorChanged:
		return "color"
	case EventVisibilityChanged:
		return "visibility"
	case EventBackdropChanged:
		return "backdrop"
	case EventAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// ColorTarget is a part of a widget that takes the cycled color.
type ColorTarget string

const (
	TargetBody      ColorTarget = "body"
	TargetMiniIcon  ColorTarget = "mini-icon"
	TargetCloseIcon ColorTarget = "close-icon"
)

// Event is a single notification to renderers and listeners.
// Only the fields relevant to Type are set.
type Event struct {
	Type EventType
	Ref  Ref
	At   time.Time

	// View is set for Created and StateChanged.
	View View
	// State and Reason are set for StateChanged.
	State  State
	Reason CloseReason
	// Layout is set for LayoutChanged.
	Layout []Slot
	// ZIndex is set for ZOrderChanged.
	ZIndex int
	// Color and Targets are set for ColorChanged. Targets lists every part
	// recolored by this single update.
	Color   string
	Targets []ColorTarget
	// Visible is set for VisibilityChanged and BackdropChanged.
	Visible bool
	// Message is set for Alert.
	Message string
}

// Renderer draws widgets. Mount is called synchronously while the widget is
// being created and must not call back into the Manager; an error aborts
// that widget only. Render receives every event outside the manager lock.
type Renderer interface {
	Mount(v View) error
	Render(e Event)
}

// Listener observes events, e.g. for history or tracing.
type Listener func(Event)

// SoundPlayer plays the creation sound of a widget kind.
type SoundPlayer interface {
	PlaySound(kind Kind) error
}

// NopRenderer accepts every widget and draws nothing.
type NopRenderer struct{}

func (NopRenderer) Mount(View) error { return nil }
func (NopRenderer) Render(Event)     {}
