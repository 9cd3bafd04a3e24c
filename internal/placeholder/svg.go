// Package placeholder renders the SVG image served at the fallback
// portrait URL.
package placeholder

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	DefaultSize = 300
	MinSize     = 16
	MaxSize     = 1024

	maxLabelRunes = 48
)

// Params describes one placeholder image.
type Params struct {
	Width  int
	Height int
	Label  string
}

// ParseParams reads width, height and query values, falling back to
// DefaultSize for missing or malformed dimensions and clamping the rest.
func ParseParams(width, height, query string) Params {
	return Params{
		Width:  parseSize(width),
		Height: parseSize(height),
		Label:  strings.TrimSpace(query),
	}
}

func parseSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultSize
	}
	return clamp(n)
}

func clamp(n int) int {
	if n < MinSize {
		return MinSize
	}
	if n > MaxSize {
		return MaxSize
	}
	return n
}

// Render returns the SVG document for p.
func Render(p Params) []byte {
	w, h := clamp(p.Width), clamp(p.Height)

	fontSize := min(w, h) / 14
	if fontSize < 6 {
		fontSize = 6
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#1f2937"/>`, w, h)
	fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%d" fill="#374151"/>`, w/2, h*2/5, min(w, h)/5)
	if label := truncate(p.Label); label != "" {
		fmt.Fprintf(&b,
			`<text x="50%%" y="80%%" fill="#d1d5db" font-family="sans-serif" font-size="%d" text-anchor="middle">%s</text>`,
			fontSize, html.EscapeString(label))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLabelRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxLabelRunes-1]) + "…"
}
