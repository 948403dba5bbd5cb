package story

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	dangerousChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	repeatedSpace  = regexp.MustCompile(`\s+`)
	repeatedDots   = regexp.MustCompile(`\.+`)
)

const maxFilenameLen = 245

// SanitizeFilename normalizes a declared upload name to NFC and strips
// characters that would break filesystem paths. Decomposed Unicode (common
// for Korean filenames coming from macOS) otherwise ends up stored under a
// byte sequence that no longer matches the display name.
func SanitizeFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return defaultFilename("")
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(filepath.Base(name), ext)

	stem = norm.NFC.String(stem)
	ext = norm.NFC.String(ext)

	stem = dangerousChars.ReplaceAllString(stem, "_")
	stem = repeatedSpace.ReplaceAllString(stem, " ")
	stem = repeatedDots.ReplaceAllString(stem, ".")
	stem = strings.Trim(stem, " .")

	if stem == "" {
		return defaultFilename(ext)
	}

	limit := maxFilenameLen - len(ext)
	if len(stem) > limit {
		cut := []rune(stem)
		for len(string(cut)) > limit {
			cut = cut[:len(cut)-1]
		}
		stem = string(cut)
	}
	return stem + ext
}

// TempFilename builds a collision-free name for the run's scratch copy.
func TempFilename(original string) string {
	clean := SanitizeFilename(original)
	return fmt.Sprintf("upload_%s_%s", time.Now().Format("20060102_150405.000000000"), clean)
}

func defaultFilename(ext string) string {
	if ext == "" {
		ext = ".audio"
	}
	return fmt.Sprintf("audio_%s%s", time.Now().Format("20060102_150405"), ext)
}
