// Package main is the entry point for the stackboxd widget daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/stackbox/internal/config"
	"github.com/jmylchreest/stackbox/internal/daemon"
	"github.com/jmylchreest/stackbox/internal/display"
	"github.com/jmylchreest/stackbox/internal/theme"
)

const appID = "io.github.jmylchreest.stackboxd"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	renderer := flag.String("renderer", "gtk", "Widget renderer: gtk (layer-shell windows) or log (headless)")
	configPath := flag.String("config", "", "Path to the daemon config (default: ~/.config/stackbox/stackboxd.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("stackboxd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		p, err := config.DaemonConfigPath()
		if err != nil {
			logger.Error("failed to get config path", "error", err)
			os.Exit(1)
		}
		path = p
	}
	cfg, err := config.LoadDaemonConfigFrom(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	switch *renderer {
	case "gtk":
		os.Exit(runGTK(cfg, path, logger))
	case "log":
		os.Exit(runHeadless(cfg, path, logger))
	default:
		logger.Error("unknown renderer", "renderer", *renderer)
		os.Exit(2)
	}
}

// runHeadless runs the daemon without a display. Widgets are logged and
// still time out, answer D-Bus calls and land in the history.
func runHeadless(cfg *config.DaemonConfig, path string, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, daemon.Options{
		ConfigPath: path,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		return 1
	}
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

// runGTK runs the daemon inside a libadwaita application. GTK owns the
// main thread; the daemon runs beside it and posts to the main loop.
func runGTK(cfg *config.DaemonConfig, path string, logger *slog.Logger) int {
	app := adw.NewApplication(appID, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		running  atomic.Bool
		exitCode atomic.Int32
	)

	app.ConnectActivate(func() {
		if running.Swap(true) {
			logger.Warn("application already running")
			return
		}

		loader := theme.NewLoader(logger)
		if err := loader.LoadTheme(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme, using default", "error", err)
		}
		loader.Apply(nil)
		loader.StartHotReload(ctx)

		renderer := display.NewRenderer(&app.Application, cfg, loader, logger)

		// Main loop only.
		themeName := cfg.Theme.Name

		var d *daemon.Daemon
		d, err := daemon.New(cfg, daemon.Options{
			ConfigPath: path,
			Version:    version,
			Logger:     logger,
			Renderer:   renderer,
			OnConfig: func(newCfg *config.DaemonConfig) {
				renderer.UpdateConfig(newCfg)
				glib.IdleAdd(func() {
					if newCfg.Theme.Name == themeName {
						return
					}
					themeName = newCfg.Theme.Name
					reloadTheme(loader, themeName, d.Notices())
					loader.StartHotReload(ctx)
				})
			},
		})
		if err != nil {
			logger.Error("failed to create daemon", "error", err)
			exitCode.Store(1)
			app.Quit()
			return
		}

		renderer.SetInput(d.Manager())
		if err := renderer.Start(); err != nil {
			logger.Error("failed to start display", "error", err)
			exitCode.Store(1)
			app.Quit()
			return
		}

		// GTK applications quit when their last window closes.
		keepAlive := gtk.NewWindow()
		keepAlive.SetApplication(&app.Application)
		keepAlive.SetDefaultSize(1, 1)
		keepAlive.SetDecorated(false)
		keepAlive.SetVisible(false)

		go func() {
			if err := d.Run(ctx); err != nil {
				logger.Error("daemon failed", "error", err)
				exitCode.Store(1)
			}
			glib.IdleAdd(func() {
				renderer.Stop()
				loader.StopHotReload()
				app.Quit()
			})
		}()
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		cancel()
	})

	if status := app.Run(os.Args[:1]); status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}
	return int(exitCode.Load())
}

// reloadTheme switches to name and tells the user how it went.
func reloadTheme(loader *theme.Loader, name string, notices *daemon.Notices) {
	if err := loader.LoadTheme(name); err != nil {
		notices.ThemeError(err)
		return
	}
	if name != "" && loader.CurrentTheme() != name {
		notices.ThemeError(fmt.Errorf("theme %q not found, using %q", name, loader.CurrentTheme()))
		return
	}
	notices.ThemeReloaded(loader.CurrentTheme())
}
