package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/stackbox/internal/audio"
	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/dbus"
	"github.com/jmylchreest/stackbox/internal/notify"
	"github.com/jmylchreest/stackbox/internal/store"
)

const appName = "stackboxd"

// Options configures a Daemon.
type Options struct {
	// ConfigPath is watched for hot reload. Empty uses the default path.
	ConfigPath string
	Version    string
	Logger     *slog.Logger
	// Renderer draws widgets. Nil logs them instead.
	Renderer notify.Renderer
	// OnConfig is called after an accepted configuration was applied to
	// the daemon's own components, e.g. to update a display.
	OnConfig func(cfg *config.DaemonConfig)
}

// Daemon wires the widget manager to D-Bus, sound, history, tracing,
// schedules and configuration hot reload.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	mu  sync.Mutex
	cfg *config.DaemonConfig

	manager   *notify.Manager
	server    *dbus.NotificationServer
	bridge    *Bridge
	audio     *audio.Manager
	notices   *Notices
	scheduler *Scheduler

	history  *store.Store
	recorder *Recorder

	provider *sdktrace.TracerProvider
	tracer   *WidgetTracer
}

// New builds a daemon from cfg. Nothing is started until Run.
func New(cfg *config.DaemonConfig, opts Options) (*Daemon, error) {
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Renderer == nil {
		opts.Renderer = NewLogRenderer(logger)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	d := &Daemon{
		opts:   opts,
		logger: logger,
		cfg:    cfg,
		server: dbus.NewNotificationServer(logger),
		audio:  audio.NewManager(cfg, logger),
	}

	listeners := []notify.Option{}
	if cfg.History.Enabled {
		if err := d.openHistory(); err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			listeners = append(listeners, notify.WithListener(d.recorder.Listen))
		}
	}

	provider, err := NewTracerProvider(context.Background(), cfg.Tracing)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else if provider != nil {
		d.provider = provider
		d.tracer = NewWidgetTracer(provider)
		listeners = append(listeners, notify.WithListener(d.tracer.Listen))
	}

	var bridge *Bridge
	managerOpts := append([]notify.Option{
		notify.WithConfig(cfg.ToNotify()),
		notify.WithRenderer(opts.Renderer),
		notify.WithSoundPlayer(d.audio),
		notify.WithLogger(logger),
		notify.WithListener(func(e notify.Event) { bridge.Listen(e) }),
	}, listeners...)
	manager, err := notify.NewManager(managerOpts...)
	if err != nil {
		d.closeHistory()
		return nil, fmt.Errorf("failed to create widget manager: %w", err)
	}
	d.manager = manager

	bridge = NewBridge(manager, d.server, logger)
	d.bridge = bridge
	if d.recorder != nil {
		bridge.OnClosed(d.recorder.Closed)
	}
	if d.tracer != nil {
		bridge.OnClosed(d.tracer.Closed)
	}

	d.server.SetServerInfo(dbus.ServerInfo{
		Name:        appName,
		Vendor:      "stackbox",
		Version:     opts.Version,
		SpecVersion: "1.2",
	})
	d.server.SetNotifyHandler(bridge.HandleNotify)
	d.server.SetCloseHandler(bridge.HandleClose)
	d.server.SetController(bridge)

	d.notices = NewNotices(d.server.NotifyInternal, logger)
	d.notices.Configure(cfg.Behavior.InternalNotices, cfg.Behavior.NoticeColor)

	d.scheduler = NewScheduler(d.showInternal, logger)
	d.scheduler.SetErrorHandler(d.notices.ScheduleError)
	if d.history != nil {
		d.scheduler.SetPrune(d.prune)
	}
	return d, nil
}

func (d *Daemon) openHistory() error {
	path, err := store.HistoryPath()
	if err != nil {
		return fmt.Errorf("failed to get history path: %w", err)
	}
	persistence, err := store.NewJSONLPersistence(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	d.history = store.NewStore(persistence)
	if err := d.history.Hydrate(); err != nil {
		d.logger.Warn("failed to hydrate history", "error", err)
	}
	d.recorder = NewRecorder(d.history, d.logger)
	d.logger.Info("history store initialized", "path", path, "count", d.history.Count())
	return nil
}

func (d *Daemon) closeHistory() {
	if d.history == nil {
		return
	}
	if err := d.history.Close(); err != nil {
		d.logger.Warn("failed to close history", "error", err)
	}
}

// Manager returns the widget manager, e.g. as a display's input.
func (d *Daemon) Manager() *notify.Manager {
	return d.manager
}

// Notices returns the internal notice sender.
func (d *Daemon) Notices() *Notices {
	return d.notices
}

// showInternal raises a widget on behalf of the daemon through the same
// path as D-Bus calls, so it gets an id, history and close signals.
func (d *Daemon) showInternal(req notify.Request) error {
	app := req.Origin.App
	if app == "" {
		app = appName
	}
	_, err := d.server.NotifyInternal(dbus.NewNotification(app, req))
	return err
}

func (d *Daemon) prune() (int, error) {
	d.mu.Lock()
	retention := d.cfg.History
	d.mu.Unlock()
	return d.history.Prune(retention.MaxAge.Duration(), retention.Keep)
}

// Run starts every component and blocks until ctx is done or a component
// fails. Widgets still open are destroyed and their clients told.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("starting stackboxd", "version", d.opts.Version)

	configPath := d.opts.ConfigPath
	if configPath == "" {
		p, err := config.DaemonConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		configPath = p
	}

	if err := d.audio.Start(ctx); err != nil {
		d.logger.Warn("failed to start audio manager", "error", err)
	}

	state, err := store.LoadSharedState()
	if err != nil {
		d.logger.Warn("failed to load shared state", "error", err)
		state = store.DefaultSharedState()
	}
	d.setMuted(state.Muted)

	if err := d.scheduler.Apply(d.cfg); err != nil {
		d.logger.Warn("some schedules were skipped", "error", err)
		d.notices.ConfigError(err)
	}

	if err := d.server.Start(); err != nil {
		d.shutdown()
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	configWatcher := NewConfigWatcher(configPath, d.cfg, d.logger)
	configWatcher.SetReloadCallback(d.applyConfig)
	configWatcher.SetErrorCallback(d.notices.ConfigError)
	g.Go(func() error { return configWatcher.Run(gCtx) })

	if statePath, err := store.StateFilePath(); err != nil {
		d.logger.Warn("failed to get state file path", "error", err)
	} else {
		stateWatcher := NewStateWatcher(statePath, state, d.logger)
		stateWatcher.SetChangeCallback(func(s *store.SharedState) {
			d.setMuted(s.Muted)
			d.notices.MuteChanged(s.Muted, s.MutedBy)
		})
		g.Go(func() error { return stateWatcher.Run(gCtx) })
	}

	g.Go(func() error { return d.scheduler.Run(gCtx) })

	if ok, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		d.logger.Debug("sd_notify failed", "error", err)
	} else if ok {
		d.logger.Debug("systemd notified")
	}
	d.logger.Info("stackboxd ready", "dbus_interface", dbus.DBusInterface)

	err = g.Wait()
	_, _ = sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)
	d.shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	d.logger.Info("stackboxd stopped")
	return nil
}

func (d *Daemon) setMuted(muted bool) {
	d.audio.SetMuted(muted)
	d.bridge.SetMuted(muted)
}

// applyConfig hands an accepted configuration to every component.
func (d *Daemon) applyConfig(cfg *config.DaemonConfig) {
	if err := d.manager.UpdateConfig(cfg.ToNotify()); err != nil {
		d.logger.Warn("widget manager rejected configuration", "error", err)
		d.notices.ConfigError(err)
		return
	}

	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	d.audio.UpdateConfig(cfg)
	d.notices.Configure(cfg.Behavior.InternalNotices, cfg.Behavior.NoticeColor)
	if err := d.scheduler.Apply(cfg); err != nil {
		d.notices.ConfigError(err)
	}
	if old.History.Enabled != cfg.History.Enabled {
		d.logger.Warn("history enable/disable takes effect after a restart")
	}
	if d.opts.OnConfig != nil {
		d.opts.OnConfig(cfg)
	}
	d.notices.ConfigReloaded()
}

func (d *Daemon) shutdown() {
	d.manager.Close()
	if err := d.server.Stop(); err != nil {
		d.logger.Warn("failed to stop D-Bus server", "error", err)
	}
	d.audio.Stop()
	d.closeHistory()
	if d.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.provider.Shutdown(ctx); err != nil {
			d.logger.Warn("failed to flush traces", "error", err)
		}
	}
}
