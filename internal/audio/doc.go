// Package audio plays the creation sound of each widget kind.
// Sounds are decoded with beep (WAV, OGG, MP3), cached, and invalidated
// when the file changes on disk.
package audio
