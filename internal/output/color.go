package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bimmerbailey/logsplit/internal/config"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGray   = "\033[90m"
	ansiBold   = "\033[1m"
)

// levelColors maps a severity to its escape prefix. Levels without an entry
// print plain.
var levelColors = map[config.LogLevel]string{
	config.LevelDebug: ansiGray,
	config.LevelWarn:  ansiYellow,
	config.LevelError: ansiRed,
	config.LevelFatal: ansiBold + ansiRed,
}

// ColorMode selects when text output is colored.
type ColorMode int

const (
	ColorAuto ColorMode = iota // color only when writing to a terminal
	ColorAlways
	ColorNever
)

// ParseColorMode reads the --color flag value.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (must be auto, always or never)", s)
}

func shouldColorize(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorAuto:
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
	return false
}

func colorize(level config.LogLevel, text string) string {
	prefix, ok := levelColors[level]
	if !ok {
		return text
	}
	return prefix + text + ansiReset
}

// anomalyLevel highlights partitions holding anomalies and dims empty ones.
func anomalyLevel(anomalies int) config.LogLevel {
	if anomalies > 0 {
		return config.LevelError
	}
	return config.LevelDebug
}

func (wr *Writer) paint(level config.LogLevel, text string) string {
	if !wr.color {
		return text
	}
	return colorize(level, text)
}
