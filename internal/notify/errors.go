package notify

import (
	"errors"
)

var (
	// ErrRenderTargetMissing is returned when the renderer cannot attach a
	// widget. Only that widget's creation is aborted.
	ErrRenderTargetMissing = errors.New("render target missing")

	// ErrUnknownWidget is returned when a Ref does not name a live widget.
	ErrUnknownWidget = errors.New("unknown widget")

	// ErrUnknownButton is returned when a label is not on the message box.
	ErrUnknownButton = errors.New("unknown button")

	// ErrUnknownKind is returned for a Request whose Kind is not handled.
	ErrUnknownKind = errors.New("unknown widget kind")

	// ErrManagerClosed is returned by entry points after Close.
	ErrManagerClosed = errors.New("manager closed")

	// errTimerRace marks a timer or input arriving after the widget left
	// Active. It is logged and never returned to callers.
	errTimerRace = errors.New("timer race ignored")
)

// ConfigurationError reports unrecognized or missing widget options.
// Creation is aborted and an Alert event is emitted.
type ConfigurationError struct {
	Kind Kind
	Err  error
}

func (e *ConfigurationError) Error() string {
	return e.Kind.String() + " box configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
