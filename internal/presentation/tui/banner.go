package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{" __      _____  __ ___   _____ ", "#2dd4bf"},
	{" \\ \\ /\\ / / _ \\/ _` \\ \\ / / _ \\", "#22d3ee"},
	{"  \\ V  V /  __/ (_| |\\ V /  __/", "#38bdf8"},
	{"   \\_/\\_/ \\___|\\__,_| \\_/ \\___|", "#60a5fa"},
}

// PrintBanner writes the weave banner and version to w.
// Colors degrade to plain text when w is not a color terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w, out.String("   v"+version).Faint())
	fmt.Fprintln(w)
}
