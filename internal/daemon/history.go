package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/notify"
	"github.com/jmylchreest/stackbox/internal/store"
)

// Recorder writes every widget lifetime to the history store: a record on
// creation, updated when the widget closes.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	open map[notify.Ref]*openRecord
}

type openRecord struct {
	record   *model.Record
	password bool
}

// NewRecorder creates a Recorder writing to s.
func NewRecorder(s *store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  s,
		logger: logger,
		now:    time.Now,
		open:   make(map[notify.Ref]*openRecord),
	}
}

// Listen is a notify.Listener that records created widgets.
func (r *Recorder) Listen(e notify.Event) {
	if e.Type != notify.EventCreated {
		return
	}
	v := e.View

	source := v.Origin.Source
	if source == "" {
		source = model.SourceDBus
	}
	rec, err := model.NewRecord(source, v.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create history record", "widget", v.Ref.String(), "error", err)
		return
	}
	if v.UID != "" {
		rec.UID = v.UID
	}
	rec.Kind = v.Ref.Kind.String()
	rec.WidgetID = v.Ref.ID
	rec.AppName = v.Origin.App
	rec.Title = v.Title
	rec.Content = v.Content
	rec.Color = v.Color
	rec.Icon = v.Icon
	if v.Timeout > 0 {
		rec.Timeout = v.Timeout.Milliseconds()
	}

	if err := r.store.Add(*rec); err != nil {
		r.logger.Warn("failed to record widget", "widget", v.Ref.String(), "error", err)
		return
	}

	r.mu.Lock()
	r.open[v.Ref] = &openRecord{
		record:   rec,
		password: v.Input != nil && v.Input.Type == notify.InputPassword,
	}
	r.mu.Unlock()
}

// Closed records how a widget ended.
func (r *Recorder) Closed(res notify.Result) {
	r.mu.Lock()
	o, ok := r.open[res.Ref]
	delete(r.open, res.Ref)
	r.mu.Unlock()
	if !ok {
		return
	}

	value := res.Value
	if o.password {
		value = ""
	}
	o.record.MarkClosed(r.now(), res.Reason.String(), res.Button, value)
	if err := r.store.Update(*o.record); err != nil {
		r.logger.Warn("failed to record widget close", "widget", res.Ref.String(), "error", err)
	}
}

// Open returns the number of widgets still awaiting a close record.
func (r *Recorder) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
