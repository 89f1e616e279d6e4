package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/stackbox/internal/notify"
)

func TestWidgetClass(t *testing.T) {
	tests := []struct {
		ref      notify.Ref
		expected string
	}{
		{notify.Ref{Kind: notify.KindSmallBox, ID: 3}, "sb-small-3"},
		{notify.Ref{Kind: notify.KindBigBox, ID: 12}, "sb-big-12"},
		{notify.Ref{Kind: notify.KindMessageBox, ID: 1}, "sb-message-1"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, WidgetClass(tt.ref))
		})
	}
}

func TestKindClass(t *testing.T) {
	assert.Equal(t, "message-box", KindClass(notify.KindMessageBox))
	assert.Equal(t, "big-box", KindClass(notify.KindBigBox))
	assert.Equal(t, "small-box", KindClass(notify.KindSmallBox))
}

func TestColorRule(t *testing.T) {
	t.Run("body only", func(t *testing.T) {
		css := ColorRule("sb-small-1", "#296191", nil)
		assert.Equal(t, ".stackbox-widget.sb-small-1 {\n  background-color: #296191;\n}\n", css)
	})

	t.Run("big box targets share one rule", func(t *testing.T) {
		css := ColorRule("sb-big-2", "#c79121", []notify.ColorTarget{
			notify.TargetBody, notify.TargetMiniIcon, notify.TargetCloseIcon,
		})
		assert.Contains(t, css, ".stackbox-widget.sb-big-2,\n")
		assert.Contains(t, css, ".mini-icon.sb-big-2,\n")
		assert.Contains(t, css, ".stackbox-widget.sb-big-2 .widget-close {")
		assert.Equal(t, 1, strings.Count(css, "background-color: #c79121"))
	})
}

func TestOverlay(t *testing.T) {
	o := NewOverlay()
	small := notify.Ref{Kind: notify.KindSmallBox, ID: 1}
	big := notify.Ref{Kind: notify.KindBigBox, ID: 1}

	css := o.Set(small, "#111111", nil)
	assert.Contains(t, css, "#111111")
	assert.Equal(t, 1, o.Len())

	css = o.Set(small, "#222222", nil)
	assert.NotContains(t, css, "#111111", "a new color replaces the old rule")
	assert.Contains(t, css, "#222222")

	css = o.Set(big, "#333333", []notify.ColorTarget{notify.TargetBody, notify.TargetMiniIcon})
	assert.Equal(t, 2, o.Len())
	assert.Less(t, strings.Index(css, "sb-big-1"), strings.Index(css, "sb-small-1"), "rules are sorted by class")

	css = o.Forget(small)
	assert.NotContains(t, css, "sb-small-1")
	assert.Equal(t, css, o.CSS())

	o.Forget(small)
	o.Forget(big)
	assert.Equal(t, 0, o.Len())
	assert.Empty(t, o.CSS())
}
