// Package theme loads the widget CSS for stackboxd. Themes come from
// ~/.config/stackbox/themes/ or the embedded bundle, are hot-reloaded
// when the file changes, and are layered under a per-widget color overlay
// driven by the color cycle.
package theme
