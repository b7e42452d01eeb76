package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/sunnify/internal/tasks"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	label  lipgloss.Style
	detail lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		label:  NewBold(t),
		detail: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
	}
}

// Notice renders a toast line for n in the style matching its level.
func (p *Palette) Notice(n tasks.Notice) string {
	if n.IsZero() {
		return ""
	}
	switch n.Level {
	case tasks.NoticeSuccess:
		return p.ok.Render("✓ " + n.Message)
	case tasks.NoticeWarning:
		return p.warn.Render("! " + n.Message)
	case tasks.NoticeError:
		return p.err.Render("✗ " + n.Message)
	default:
		return p.help.Render(n.Message)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
