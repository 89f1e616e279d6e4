// Package display renders widgets as GTK4 layer-shell windows. The
// Renderer receives widget events from the notify core, builds one window
// per widget (plus a mini icon per big box and a backdrop behind message
// boxes) and forwards clicks, hovers, keys and measured heights back.
package display
