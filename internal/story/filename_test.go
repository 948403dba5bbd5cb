package story

import (
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestSanitizeFilenameComposesUnicode(t *testing.T) {
	// macOS uploads arrive NFD-decomposed; stored names must be NFC.
	decomposed := norm.NFD.String("한국어녹음.wav")
	got := SanitizeFilename(decomposed)
	want := norm.NFC.String("한국어녹음.wav")
	if got != want {
		t.Fatalf("SanitizeFilename(%q) = %q, want %q", decomposed, got, want)
	}
}

func TestSanitizeFilenameStripsDangerousChars(t *testing.T) {
	got := SanitizeFilename(`my<note>:v2/final?.wav`)
	if strings.ContainsAny(got, `<>:"/\|?*`) {
		t.Fatalf("dangerous characters survived: %q", got)
	}
	if !strings.HasSuffix(got, ".wav") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestSanitizeFilenameEmptyGetsDefault(t *testing.T) {
	got := SanitizeFilename("   ")
	if !strings.HasPrefix(got, "audio_") {
		t.Fatalf("expected generated default name, got %q", got)
	}
}

func TestSanitizeFilenameTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("a", 400) + ".mp3"
	got := SanitizeFilename(long)
	if len(got) > 255 {
		t.Fatalf("name too long after sanitize: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, ".mp3") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestTempFilenameKeepsOriginalStem(t *testing.T) {
	got := TempFilename("voice memo.m4a")
	if !strings.HasPrefix(got, "upload_") || !strings.HasSuffix(got, "voice memo.m4a") {
		t.Fatalf("unexpected temp name: %q", got)
	}
}
