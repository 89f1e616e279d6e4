package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/stackbox/internal/notify"
)

const (
	smallWidth = 34
	bigWidth   = 40
	modalWidth = 48
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("#c0392b")).Padding(0, 1)
	buttonStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder())
)

// glyphs maps the common font awesome names to terminal glyphs.
var glyphs = map[string]string{
	"cloud":    "☁",
	"bell":     "♪",
	"check":    "✓",
	"envelope": "✉",
	"warning":  "⚠",
	"download": "↓",
	"info":     "ℹ",
	"star":     "★",
}

// glyph returns the terminal glyph of an icon, "•" when unknown.
func glyph(icon string) string {
	for _, part := range strings.Fields(icon) {
		if g, ok := glyphs[strings.TrimPrefix(part, "fa-")]; ok {
			return g
		}
	}
	return "•"
}

// termColor returns the terminal color for a widget color. Only hex colors
// map onto the terminal palette.
func termColor(c string) (lipgloss.Color, bool) {
	if !strings.HasPrefix(c, "#") {
		return "", false
	}
	switch len(c) {
	case 4, 7:
		return lipgloss.Color(c), true
	case 9:
		return lipgloss.Color(c[:7]), true
	}
	return "", false
}

// boxStyle is the frame of a widget body.
func boxStyle(color string, width int, selected, closing bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(width)
	if selected {
		s = s.Border(lipgloss.ThickBorder())
	}
	if c, ok := termColor(color); ok {
		s = s.BorderForeground(c).Background(c).Foreground(lipgloss.Color("15"))
	}
	if closing {
		s = s.Faint(true).BorderForeground(lipgloss.Color("8"))
	}
	return s
}

func (m Model) isSelected(ref notify.Ref) bool {
	return m.hasSel && m.selected == ref
}

// renderSmall draws a small box.
func (m Model) renderSmall(w *entry, selected bool) string {
	v := w.view
	title := titleStyle.Render(glyph(v.Icon) + " " + v.Title)
	body := title
	if v.Content != "" {
		body += "\n" + v.Content
	}
	return boxStyle(w.color, smallWidth, selected, w.closing).Render(body)
}

// renderBig draws a big box with its number and close icon.
func (m Model) renderBig(w *entry, selected bool) string {
	v := w.view
	head := titleStyle.Render(glyph(v.Icon) + " " + v.Number)
	gap := bigWidth - 2 - lipgloss.Width(head) - 3
	if gap < 1 {
		gap = 1
	}
	head += strings.Repeat(" ", gap) + "[x]"

	body := head + "\n" + titleStyle.Render(v.Title)
	if v.Content != "" {
		body += "\n" + v.Content
	}
	return boxStyle(w.color, bigWidth, selected, w.closing).Render(body)
}

// renderMini draws the mini icon paired with a big box.
func (m Model) renderMini(w *entry, top bool) string {
	s := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if top {
		s = s.Border(lipgloss.DoubleBorder())
	}
	if c, ok := termColor(w.miniColor); ok {
		s = s.BorderForeground(c).Background(c).Foreground(lipgloss.Color("15"))
	}
	if w.closing {
		s = s.Faint(true)
	}
	return s.Render(glyph(w.view.Icon) + " " + w.view.Number)
}

// smallOrder returns the small boxes top to bottom. Boxes not yet in the
// layout table follow the packed ones.
func (m Model) smallOrder() []notify.Ref {
	var refs []notify.Ref
	seen := make(map[int]bool, len(m.layout))
	slots := slices.Clone(m.layout)
	slices.SortStableFunc(slots, func(a, b notify.Slot) int { return a.Top - b.Top })
	for _, slot := range slots {
		ref := notify.Ref{Kind: notify.KindSmallBox, ID: slot.ID}
		if _, ok := m.widgets[ref]; ok {
			refs = append(refs, ref)
			seen[slot.ID] = true
		}
	}

	var rest []int
	for ref := range m.widgets {
		if ref.Kind == notify.KindSmallBox && !seen[ref.ID] {
			rest = append(rest, ref.ID)
		}
	}
	slices.Sort(rest)
	for _, id := range rest {
		refs = append(refs, notify.Ref{Kind: notify.KindSmallBox, ID: id})
	}
	return refs
}

// bigBoxes returns the big boxes ordered by id.
func (m Model) bigBoxes() []*entry {
	var out []*entry
	for ref, w := range m.widgets {
		if ref.Kind == notify.KindBigBox {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b *entry) int { return a.view.Ref.ID - b.view.Ref.ID })
	return out
}

// viewSmallColumn places each small box at its packed offset.
func (m Model) viewSmallColumn() string {
	top := make(map[int]int, len(m.layout))
	for _, slot := range m.layout {
		top[slot.ID] = slot.Top
	}

	var lines []string
	for _, ref := range m.smallOrder() {
		if t, ok := top[ref.ID]; ok {
			for len(lines) < t {
				lines = append(lines, "")
			}
		}
		box := m.renderSmall(m.widgets[ref], m.isSelected(ref))
		lines = append(lines, strings.Split(box, "\n")...)
	}
	if len(lines) == 0 {
		return dimStyle.Width(smallWidth + 4).Render("no small boxes")
	}
	return lipgloss.NewStyle().Width(smallWidth + 4).Render(strings.Join(lines, "\n"))
}

// viewBigArea draws the topmost big box above the row of mini icons.
func (m Model) viewBigArea() string {
	bigs := m.bigBoxes()
	if len(bigs) == 0 {
		return dimStyle.Render("no big boxes")
	}

	top := bigs[0]
	for _, w := range bigs[1:] {
		if w.view.ZIndex > top.view.ZIndex {
			top = w
		}
	}

	minis := make([]string, 0, len(bigs))
	for _, w := range bigs {
		minis = append(minis, m.renderMini(w, w == top))
	}

	// The selected big box is drawn even when it is not on top.
	shown := top
	for _, w := range bigs {
		if m.isSelected(w.view.Ref) {
			shown = w
		}
	}

	parts := []string{m.renderBig(shown, m.isSelected(shown.view.Ref))}
	if hidden := len(bigs) - 1; hidden > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d more underneath", hidden)))
	}
	parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, minis...))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// viewModal draws the visible message box.
func (m Model) viewModal() string {
	w, ok := m.modalWidget()
	if !ok {
		return ""
	}
	v := w.view

	var b strings.Builder
	b.WriteString(titleStyle.Render(v.Title))
	if v.Content != "" {
		b.WriteString("\n\n" + v.Content)
	}

	if v.Input != nil {
		b.WriteString("\n\n")
		if v.Input.Type == notify.InputSelect {
			for i, opt := range v.Input.Options {
				marker := "  "
				if i == m.modal.option%len(v.Input.Options) {
					marker = keyStyle.Render("> ")
				}
				b.WriteString(marker + opt + "\n")
			}
		} else {
			b.WriteString(m.input.View())
		}
	}

	buttons := make([]string, 0, len(v.Buttons))
	for i, label := range v.Buttons {
		s := buttonStyle
		if i == m.modal.button%len(v.Buttons) {
			s = s.Reverse(true)
		}
		buttons = append(buttons, s.Render(label))
	}
	b.WriteString("\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, buttons...))

	if queued := m.queuedModals(); queued > 0 {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("%d more waiting", queued)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())
}

func (m Model) queuedModals() int {
	n := 0
	for ref, w := range m.widgets {
		if ref.Kind == notify.KindMessageBox && !w.view.Visible && !w.closing {
			n++
		}
	}
	return n
}

// View renders the demo.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return m.viewHelp()
	}

	header := titleStyle.Render("stackbox demo") + "  " + dimStyle.Render(m.summary())

	var alert string
	if len(m.alerts) > 0 {
		alert = alertStyle.Width(m.width).Render("⚠ " + m.alerts[0])
	}

	footer := m.viewFooter()

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if alert != "" {
		bodyHeight -= lipgloss.Height(alert)
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if _, ok := m.modalWidget(); ok && m.backdrop {
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.viewModal(),
			lipgloss.WithWhitespaceChars("░"),
			lipgloss.WithWhitespaceForeground(lipgloss.Color("8")))
	} else {
		desk := lipgloss.JoinHorizontal(lipgloss.Top, m.viewSmallColumn(), "  ", m.viewBigArea())
		body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(desk)
	}

	parts := []string{header}
	if alert != "" {
		parts = append(parts, alert)
	}
	parts = append(parts, body, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) summary() string {
	counts := make(map[notify.Kind]int, 3)
	for ref := range m.widgets {
		counts[ref.Kind]++
	}
	return fmt.Sprintf("%d small · %d big · %d message",
		counts[notify.KindSmallBox], counts[notify.KindBigBox], counts[notify.KindMessageBox])
}

func (m Model) viewFooter() string {
	var lines []string
	if m.hasSel {
		if w, ok := m.widgets[m.selected]; ok {
			detail := fmt.Sprintf("%s · %s · created %s", m.selected, w.view.State, humanize.Time(w.view.CreatedAt))
			lines = append(lines, dimStyle.Render(detail))
		}
	}

	if m.statusMsg != "" {
		s := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			s = s.Foreground(lipgloss.Color("9"))
		}
		lines = append(lines, s.Render(m.statusMsg))
	} else if m.cfg.Demo.ShowHelp {
		lines = append(lines, m.buildKeybindBar(m.width, m.mode()))
	}
	return strings.Join(lines, "\n")
}

func (m Model) mode() string {
	switch {
	case len(m.alerts) > 0:
		return "alert"
	case m.modal != nil:
		return "modal"
	default:
		return "desk"
	}
}

func (m Model) viewHelp() string {
	s := titleStyle.Foreground(lipgloss.Color("12")).Render("Keyboard Shortcuts") + "\n\n"
	h := m.help
	h.ShowAll = true
	s += h.View(m.keys)
	s += "\n\n" + dimStyle.Render("Press ? or esc to return")
	return s
}

// keybind is a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int, mode string) string {
	var binds []keybind

	switch mode {
	case "desk":
		binds = []keybind{
			{"q", "quit", 1},
			{"s", "small", 2},
			{"b", "big", 3},
			{"m", "message", 4},
			{"tab", "select", 5},
			{"enter", "click", 6},
			{"x", "close", 7},
			{"space", "raise", 8},
			{"p", "prompt", 9},
			{"?", "help", 10},
		}
	case "modal":
		binds = []keybind{
			{"enter", "press", 1},
			{"esc", "last button", 2},
			{"tab", "next button", 3},
			{"ctrl+x", "close all", 4},
		}
	case "alert":
		binds = []keybind{
			{"enter", "dismiss alert", 1},
		}
	}
	slices.SortStableFunc(binds, func(a, b keybind) int { return a.priority - b.priority })

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(result) + lipgloss.Width(item)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return dimStyle.Render(result)
}
