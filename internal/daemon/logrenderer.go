package daemon

import (
	"log/slog"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// LogRenderer accepts every widget and logs what a display would draw.
// stackboxd uses it when running without a display.
type LogRenderer struct {
	logger *slog.Logger
}

// NewLogRenderer creates a LogRenderer.
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{logger: logger.With("renderer", "log")}
}

// Mount implements notify.Renderer.
func (r *LogRenderer) Mount(notify.View) error {
	return nil
}

// Render implements notify.Renderer.
func (r *LogRenderer) Render(e notify.Event) {
	switch e.Type {
	case notify.EventCreated:
		r.logger.Info("widget", "widget", e.Ref.String(), "title", e.View.Title,
			"content", e.View.Content, "color", e.View.Color, "visible", e.View.Visible)
	case notify.EventStateChanged:
		r.logger.Info("widget state", "widget", e.Ref.String(), "state", e.State.String(), "reason", e.Reason.String())
	case notify.EventAlert:
		r.logger.Warn("alert", "message", e.Message)
	case notify.EventLayoutChanged:
		r.logger.Debug("layout", "slots", len(e.Layout))
	default:
		r.logger.Debug("widget event", "type", e.Type.String(), "widget", e.Ref.String())
	}
}
