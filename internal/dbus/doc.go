// Package dbus is stackbox's front door on the session bus. The server
// implements org.freedesktop.Notifications, mapping each Notify call to a
// widget request, plus a small control interface used by the stackbox
// command. The client is the command's side of both.
package dbus
