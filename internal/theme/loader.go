package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// Loader owns the two stylesheets of the daemon: the theme and, above it,
// the color overlay. Methods touching GTK must run on the main thread.
type Loader struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	provider    *gtk.CSSProvider
	colors      *gtk.CSSProvider
	overlay     *Overlay
	themesDir   string
	currentName string
	theme       *Theme
	watcher     *Watcher
}

// NewLoader creates a new theme loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	themesDir, err := ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
		themesDir = ""
	}

	return &Loader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		colors:    gtk.NewCSSProvider(),
		overlay:   NewOverlay(),
		themesDir: themesDir,
	}
}

// ThemesDir returns the path to the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "stackbox", "themes"), nil
}

// resolve finds a theme by name: the user themes directory first, so a
// file can override a bundled theme, then the bundle, then the default.
func (l *Loader) resolve(name string) *Theme {
	if l.themesDir != "" {
		themePath := filepath.Join(l.themesDir, name+".css")
		if _, err := os.Stat(themePath); err == nil {
			theme, err := NewTheme(name, themePath)
			if err == nil {
				l.logger.Info("loaded user theme", "name", name, "path", themePath)
				return theme
			}
			l.logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
		}
	}

	if css, found := GetEmbeddedTheme(name); found {
		l.logger.Info("loaded bundled theme", "name", name)
		return &Theme{
			Name:      name,
			CSS:       ProcessImports(css, "", nil),
			IsDefault: name == DefaultThemeName,
		}
	}

	l.logger.Warn("theme not found, using default", "theme", name)
	return NewDefaultTheme()
}

// LoadTheme loads a theme by name into the theme stylesheet.
func (l *Loader) LoadTheme(name string) error {
	if name == "" {
		name = DefaultThemeName
	}
	theme := l.resolve(name)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.theme = theme
	l.currentName = theme.Name
	l.provider.LoadFromString(theme.CSS)
	if l.watcher != nil {
		l.watcher.UpdateTheme(theme)
	}
	return nil
}

// Apply installs both stylesheets on display, or on the default display
// when nil.
func (l *Loader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	gtk.StyleContextAddProviderForDisplay(display, l.colors, gtk.STYLE_PROVIDER_PRIORITY_USER)
	l.logger.Debug("applied theme to display", "name", l.CurrentTheme())
}

// SetColor applies color to the targets of ref.
func (l *Loader) SetColor(ref notify.Ref, color string, targets []notify.ColorTarget) {
	l.colors.LoadFromString(l.overlay.Set(ref, color, targets))
}

// ForgetWidget drops the color rules of a removed widget.
func (l *Loader) ForgetWidget(ref notify.Ref) {
	l.colors.LoadFromString(l.overlay.Forget(ref))
}

// Reload reloads the current theme, e.g. after a config change.
func (l *Loader) Reload() error {
	return l.LoadTheme(l.CurrentTheme())
}

// StartHotReload watches the current user theme. Changes are applied on
// the GTK main loop.
func (l *Loader) StartHotReload(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.theme == nil || l.theme.Path == "" {
		l.logger.Debug("not starting hot-reload for bundled theme")
		return
	}
	if l.watcher != nil {
		l.watcher.Stop()
	}

	l.watcher = NewWatcher(l.theme, l.logger)
	l.watcher.SetChangeCallback(func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
			l.logger.Info("hot-reloaded theme", "name", l.CurrentTheme())
		})
	})
	if err := l.watcher.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
	}
}

// StopHotReload stops watching the theme.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}

// CurrentTheme returns the name of the loaded theme.
func (l *Loader) CurrentTheme() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentName
}
