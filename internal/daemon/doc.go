// Package daemon runs stackboxd. It connects the widget manager to the
// freedesktop notification server, sound, history, tracing, cron
// schedules and configuration hot reload.
package daemon
