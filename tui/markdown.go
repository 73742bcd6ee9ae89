package tui

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Glamour style names.
const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// MarkdownStyle picks a glamour style for the terminal behind w.
func MarkdownStyle(w io.Writer) string {
	out := termenv.NewOutput(w)
	if out.Profile == termenv.Ascii {
		return StyleNoTTY
	}
	if out.HasDarkBackground() {
		return StyleDark
	}
	return StyleLight
}

// RenderMarkdown renders md for a terminal width columns wide.
func RenderMarkdown(md, style string, width int) (string, error) {
	r, err := newRenderer(style, width)
	if err != nil {
		return "", err
	}
	return render(r, md)
}

func newRenderer(style string, width int) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = 80
	}
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
}

func render(r *glamour.TermRenderer, md string) (string, error) {
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
