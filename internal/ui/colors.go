// Package ui holds terminal styling for command output.
package ui

import (
	"os"
	"strconv"
)

// ANSI color and style codes for CLI output. They are empty when colors are disabled.
var (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		SetEnabled(false)
	}
}

// SetEnabled switches ANSI styling on or off
func SetEnabled(on bool) {
	if on {
		ColorReset, ColorBold, ColorDim = "\033[0m", "\033[1m", "\033[2m"
		ColorCyan, ColorGreen, ColorYellow = "\033[36m", "\033[32m", "\033[33m"
		ColorWhite, ColorRed = "\033[97m", "\033[31m"
		return
	}
	ColorReset, ColorBold, ColorDim = "", "", ""
	ColorCyan, ColorGreen, ColorYellow = "", "", ""
	ColorWhite, ColorRed = "", ""
}

func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

func Info(s string) string {
	return ColorDim + ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}

// Count formats n with space-separated thousands groups
func Count(n int) string {
	s := strconv.Itoa(n)
	neg := ""
	if n < 0 {
		neg, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return neg + s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i:i+3]...)
	}
	return neg + string(out)
}
