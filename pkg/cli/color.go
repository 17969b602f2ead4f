package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/dtypes/internal/config"
)

const (
	colorRed  = 31
	colorCyan = 36
)

// colorEnabled resolves the configured color mode for w.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return isColorTerminal(w)
}

func isColorTerminal(w io.Writer) bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func (a *app) paint(color int, s string) string {
	if !a.color {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[39m", color, s)
}

var typeNamePattern = regexp.MustCompile(`("` + config.TypeNameKey + `": )("[^"]*")`)

// highlight colors the type names of an encoded descriptor.
func (a *app) highlight(encoded string) string {
	if !a.color {
		return encoded
	}
	return typeNamePattern.ReplaceAllStringFunc(encoded, func(m string) string {
		parts := typeNamePattern.FindStringSubmatch(m)
		return parts[1] + a.paint(colorCyan, parts[2])
	})
}
