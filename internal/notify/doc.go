// Package notify is the notification widget manager.
// It owns widget identity, small-box column layout, color cycling,
// timed and manual dismissal and the modal message box queue. It never
// touches a screen: renderers receive typed events and report input back.
package notify
