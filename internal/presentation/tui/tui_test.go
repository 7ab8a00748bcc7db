package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/glamour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, `\ V  V /`)
	assert.NotContains(t, out, "\x1b[", "a buffer is not a color terminal")
}

func TestNewRenderer_NotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	render := NewRenderer(f)
	got, err := render("# Title\n\n| a | b |\n")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\n| a | b |\n", got)
}

func TestNewStyledRenderer(t *testing.T) {
	render := NewStyledRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(80))
	got, err := render("# Run\n\n- **Status:** completed\n")
	require.NoError(t, err)
	assert.Contains(t, got, "Run")
	assert.Contains(t, got, "completed")
}
