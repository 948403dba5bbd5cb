package audio

import (
	"context"
	"errors"
	"fmt"

	"voice-story-go/internal/story"
)

// Backend decodes one MediaInput into normalized mono PCM. Implementations
// write any scratch files under workDir, which the owning run removes at
// teardown.
type Backend interface {
	Name() story.DecodeBackend
	Supports(in *story.MediaInput) bool
	Decode(ctx context.Context, in *story.MediaInput, workDir string) (*story.NormalizedAudio, error)
}

// ErrToolUnavailable marks a decode failure caused by the external tool
// being absent or failing to launch, as opposed to the input being bad.
var ErrToolUnavailable = errors.New("decode tool unavailable")

// ErrUnsupportedFormat is returned by the pure-Go backend for containers it
// has no decoder for (notably m4a/mp4).
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DecodeError is the terminal decode failure, attributed to the backend
// that failed last.
type DecodeError struct {
	Backend story.DecodeBackend
	Cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode (%s backend): %v", e.Backend, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }
