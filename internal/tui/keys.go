package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the demo.
type KeyMap struct {
	// Selection
	Next key.Binding
	Prev key.Binding

	// Spawning
	Small  key.Binding
	Big    key.Binding
	Modal  key.Binding
	Prompt key.Binding

	// Widget actions
	Click       key.Binding
	CloseIcon   key.Binding
	Raise       key.Binding
	CloseModals key.Binding
	Copy        key.Binding

	// Message box
	ButtonNext key.Binding
	ButtonPrev key.Binding
	OptionNext key.Binding
	OptionPrev key.Binding
	Confirm    key.Binding
	Cancel     key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Small, k.Big, k.Modal, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Small, k.Big, k.Modal, k.Prompt},
		{k.Next, k.Prev, k.Click, k.CloseIcon, k.Raise, k.Copy},
		{k.ButtonNext, k.ButtonPrev, k.OptionNext, k.Confirm, k.Cancel, k.CloseModals},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down", "j"),
			key.WithHelp("tab/j", "next widget"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up", "k"),
			key.WithHelp("S-tab/k", "previous widget"),
		),
		Small: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "small box"),
		),
		Big: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "big box"),
		),
		Modal: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "message box"),
		),
		Prompt: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "message box with input"),
		),
		Click: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "click"),
		),
		CloseIcon: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close icon"),
		),
		Raise: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "click mini icon"),
		),
		CloseModals: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "close all message boxes"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy content"),
		),
		ButtonNext: key.NewBinding(
			key.WithKeys("tab", "right"),
			key.WithHelp("tab/→", "next button"),
		),
		ButtonPrev: key.NewBinding(
			key.WithKeys("shift+tab", "left"),
			key.WithHelp("S-tab/←", "previous button"),
		),
		OptionNext: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next option"),
		),
		OptionPrev: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous option"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "press button"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "last button"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
