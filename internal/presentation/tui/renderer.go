package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 100

// Renderer turns Markdown into terminal output.
type Renderer func(markdown string) (string, error)

// Plain returns the Markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer picks a renderer for f: styled Markdown on a terminal, Plain otherwise
// so piped output stays greppable.
func NewRenderer(f *os.File) Renderer {
	if !IsTerminal(f) {
		return Plain
	}
	width := defaultWidth
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}
	return NewStyledRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
}

// NewStyledRenderer renders with glamour. It falls back to Plain if the style cannot load.
func NewStyledRenderer(opts ...glamour.TermRendererOption) Renderer {
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return Plain
	}
	return r.Render
}
