// Package format renders styled console text. Every function is pure: the
// color profile is an argument, nothing global is mutated.
package format

import (
	"github.com/muesli/termenv"
)

// Style names a presentation applied to a piece of text.
type Style int

const (
	Plain Style = iota
	Bold
	Cyan
	Red
	Yellow
	Green
	Blue
	Grey
	// Badge is black text on a yellow background, used for failure headers.
	Badge
)

// Glyphs decorating the console report.
const (
	GlyphSection  = "☕"
	GlyphLabel    = "🏷️"
	GlyphDone     = "😎"
	GlyphFailed   = "😒"
	GlyphAllPass  = "✨"
	GlyphSomeFail = "💩"
	GlyphComplete = "🍅"
)

// Format applies style to text under profile p. termenv.Ascii yields text
// unchanged.
func Format(p termenv.Profile, text string, style Style) string {
	s := p.String(text)
	switch style {
	case Bold:
		s = s.Bold()
	case Cyan:
		s = s.Foreground(p.Convert(termenv.ANSICyan))
	case Red:
		s = s.Foreground(p.Convert(termenv.ANSIRed))
	case Yellow:
		s = s.Foreground(p.Convert(termenv.ANSIYellow))
	case Green:
		s = s.Foreground(p.Convert(termenv.ANSIGreen))
	case Blue:
		s = s.Foreground(p.Convert(termenv.ANSIBlue))
	case Grey:
		s = s.Foreground(p.Convert(termenv.ANSIBrightBlack))
	case Badge:
		s = s.Foreground(p.Convert(termenv.ANSIBlack)).Background(p.Convert(termenv.ANSIYellow))
	default:
		return text
	}
	return s.String()
}
