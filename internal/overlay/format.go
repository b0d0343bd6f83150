package overlay

import (
	"strings"
	"unicode/utf8"

	"github.com/dyluth/vigil/internal/media"
)

// Marquee thresholds in runes. Longer strings scroll.
const (
	TitleMarquee  = 20
	ArtistMarquee = 24
	AlbumMarquee  = 26
)

// Badge returns the playback badge for a snapshot.
func Badge(s *media.Snapshot) string {
	if s == nil {
		return "OFFLINE"
	}
	if s.Playing() {
		return "PLAYING"
	}
	return "PAUSED"
}

// Sanitize strips terminal control characters from text received from other
// processes: C0 controls, DEL and C1 controls. Tabs become four spaces and
// line breaks a single space so a field stays on its own line. Invalid UTF-8
// is replaced with U+FFFD.
func Sanitize(text string) string {
	if utf8.ValidString(text) && strings.IndexFunc(text, isControl) < 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\t':
			b.WriteString("    ")
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case isControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f)
}

// Marquee returns a width-rune window of sanitized text scrolled by step.
// Text that fits is returned unchanged. The scroll wraps with a three-space
// gap.
func Marquee(text string, width, step int) string {
	text = Sanitize(text)
	if width <= 0 || utf8.RuneCountInString(text) <= width {
		return text
	}

	loop := []rune(text + "   ")
	offset := step % len(loop)
	if offset < 0 {
		offset += len(loop)
	}

	out := make([]rune, width)
	for i := range out {
		out[i] = loop[(offset+i)%len(loop)]
	}
	return string(out)
}

// Bar renders a fraction in [0,1] as a width-cell bar.
func Bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Truncate sanitizes text and shortens it to width runes, marking the cut
// with an ellipsis.
func Truncate(text string, width int) string {
	text = Sanitize(text)
	if utf8.RuneCountInString(text) <= width {
		return text
	}
	if width <= 1 {
		return string([]rune(text)[:width])
	}
	return string([]rune(text)[:width-1]) + "…"
}
