package tui

import (
	"strconv"

	"github.com/jmylchreest/stackbox/internal/notify"
)

type sample struct {
	title   string
	content string
	icon    string
	color   string
}

var smallSamples = []sample{
	{"Build finished", "stackbox built in 4.2s", "fa fa-check", ""},
	{"New mail", "3 unread messages in Inbox", "fa fa-envelope", "#8e44ad"},
	{"Backup complete", "Snapshot home-2026 stored", "fa fa-cloud", "#27ae60"},
	{"Disk almost full", "/home is 92% used", "fa fa-warning", "#c0392b"},
}

var bigSamples = []sample{
	{"Deploy running", "Rolling out to 12 hosts", "fa fa-cloud", ""},
	{"Meeting", "Standup starts in 5 minutes", "fa fa-bell", "#d35400"},
	{"Download", "ubuntu.iso 1.2 GB of 4.8 GB", "fa fa-download", "#2c3e50"},
}

var modalSamples = []struct {
	title   string
	content string
	buttons []string
}{
	{"Save changes?", "The document has unsaved edits.", []string{"Save", "Discard", "Cancel"}},
	{"Update available", "Restart now to install version 2.1?", []string{"Restart", "Later"}},
	{"Connection lost", "The server stopped answering.", []string{"Retry", "Abort"}},
}

// sampleRequest builds the n-th demo request of kind. Every third big box
// cycles between two colors.
func sampleRequest(kind notify.Kind, n int, withInput bool) notify.Request {
	switch kind {
	case notify.KindBigBox:
		s := bigSamples[(n-1)%len(bigSamples)]
		req := notify.Request{
			Kind:    kind,
			Title:   s.title,
			Content: s.content,
			Icon:    s.icon,
			Number:  strconv.Itoa(n),
			Color:   s.color,
		}
		if n%3 == 0 {
			req.Colors = []notify.ColorStop{{Color: "#c0392b"}, {Color: "#004d60"}}
		}
		return req

	case notify.KindMessageBox:
		if withInput {
			return promptRequest(n)
		}
		s := modalSamples[(n-1)%len(modalSamples)]
		return notify.Request{
			Kind:    kind,
			Title:   s.title,
			Content: s.content,
			Buttons: s.buttons,
		}

	default:
		s := smallSamples[(n-1)%len(smallSamples)]
		return notify.Request{
			Kind:    notify.KindSmallBox,
			Title:   s.title,
			Content: s.content,
			Icon:    s.icon,
			Color:   s.color,
		}
	}
}

func promptRequest(n int) notify.Request {
	req := notify.Request{
		Kind:    notify.KindMessageBox,
		Buttons: []string{"OK", "Cancel"},
	}
	if n%2 == 0 {
		req.Title = "Pick a color"
		req.Content = "Used for the next small box."
		req.Input = &notify.Input{
			Type:    notify.InputSelect,
			Options: []string{"teal", "orange", "purple"},
		}
		return req
	}
	req.Title = "Who are you?"
	req.Content = "Your name is shown in the greeting."
	req.Input = &notify.Input{
		Type:        notify.InputText,
		Placeholder: "Name",
	}
	return req
}
