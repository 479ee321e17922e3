package subtitles

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxNameBytes = 200

var unsafeNameChars = strings.NewReplacer(
	"/", " ", "\\", " ", ":", " ", "*", " ", "?", " ",
	"\"", " ", "<", " ", ">", " ", "|", " ",
)

// SanitizeTitle turns a media title into a filename stem: NFC normalized,
// path separators and reserved characters replaced, control whitespace
// turned into spaces, other control characters removed, whitespace collapsed, and capped in length on a rune boundary.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(title)
	title = unsafeNameChars.Replace(title)
	title = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			if unicode.IsSpace(r) {
				return ' '
			}
			return -1
		}
		return r
	}, title)
	title = strings.Join(strings.Fields(title), " ")
	title = strings.Trim(title, ". ")
	if len(title) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut])
	}
	return title
}

// OutputPath returns <dir>/<sanitized title>.srt, falling back to
// <index+1>-<shortID>.srt when the title sanitizes to nothing.
func OutputPath(dir, title string, index int, shortID string) string {
	stem := SanitizeTitle(title)
	if stem == "" {
		stem = fmt.Sprintf("%d-%s", index+1, shortID)
	}
	return filepath.Join(dir, stem+".srt")
}
