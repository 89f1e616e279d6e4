package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmbeddedTheme_Default(t *testing.T) {
	css, found := GetEmbeddedTheme("default")
	require.True(t, found, "default theme should be found")
	assert.NotEmpty(t, css)
	assert.Contains(t, css, `@import "_base.css"`)
	assert.Contains(t, css, ".small-box")
	assert.Contains(t, css, "@window_bg_color")
}

func TestGetEmbeddedTheme_Minimal(t *testing.T) {
	css, found := GetEmbeddedTheme("minimal")
	require.True(t, found, "minimal theme should be found")
	assert.Contains(t, css, "@window_bg_color")
	assert.Contains(t, css, "-gtk-icon-size: 0")
}

func TestGetEmbeddedTheme_Smart(t *testing.T) {
	css, found := GetEmbeddedTheme("smart")
	require.True(t, found, "smart theme should be found")
	assert.Contains(t, css, ".big-box .widget-number")
	assert.Contains(t, css, "border-radius: 0")
}

func TestGetEmbeddedTheme_NotFound(t *testing.T) {
	css, found := GetEmbeddedTheme("nonexistent")
	assert.False(t, found)
	assert.Empty(t, css)
}

func TestListEmbeddedThemes(t *testing.T) {
	themes := ListEmbeddedThemes()

	assert.Len(t, themes, 3)
	assert.Contains(t, themes, "default", "should contain default theme")
	assert.Contains(t, themes, "minimal", "should contain minimal theme")
	assert.Contains(t, themes, "smart", "should contain smart theme")
}

func TestIsEmbeddedTheme(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"default", true},
		{"minimal", true},
		{"smart", true},
		{"_base", false},
		{"nonexistent", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsEmbeddedTheme(tt.name)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestBundledThemes_HaveRequiredClasses(t *testing.T) {
	requiredClasses := []string{
		".stackbox-widget",
		".small-box",
		".big-box",
		".mini-icon",
		".message-box",
	}

	for _, themeName := range BundledThemes {
		t.Run(themeName, func(t *testing.T) {
			css, found := GetEmbeddedTheme(themeName)
			require.True(t, found)
			css = ProcessImports(css, "", nil)

			for _, class := range requiredClasses {
				assert.True(t, strings.Contains(css, class),
					"theme %s should contain %s", themeName, class)
			}
		})
	}
}

func TestBundledThemes_ValidCSS(t *testing.T) {
	for _, themeName := range BundledThemes {
		t.Run(themeName, func(t *testing.T) {
			css, found := GetEmbeddedTheme(themeName)
			require.True(t, found)

			openBraces := strings.Count(css, "{")
			closeBraces := strings.Count(css, "}")
			assert.Equal(t, openBraces, closeBraces,
				"theme %s should have balanced braces", themeName)

			assert.NotContains(t, css, "{{")
			assert.NotContains(t, css, "}}")
		})
	}
}

func TestGetEmbeddedPartial(t *testing.T) {
	for _, name := range []string{"_base.css", "_base", "base"} {
		css, found := GetEmbeddedPartial(name)
		require.True(t, found, name)
		assert.Contains(t, css, ".stackbox-widget.closing")
	}

	css, found := GetEmbeddedPartial("_nonexistent.css")
	assert.False(t, found)
	assert.Empty(t, css)
}

func TestListEmbeddedThemes_ExcludesPartials(t *testing.T) {
	themes := ListEmbeddedThemes()

	for _, name := range themes {
		assert.False(t, strings.HasPrefix(name, "_"),
			"theme list should not include partials, found: %s", name)
	}
}
