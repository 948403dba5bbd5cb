package audio

import (
	"context"
	"errors"
	"fmt"

	"voice-story-go/internal/logger"
	"voice-story-go/internal/story"
)

// Decoder validates input and runs the ordered backend chain: primary
// first, then the in-process fallback when the primary is unavailable or
// the fallback has a chance on the data.
type Decoder struct {
	primary  Backend
	fallback Backend
	maxBytes int64
	log      *logger.Logger
}

func NewDecoder(primary, fallback Backend, maxBytes int64) *Decoder {
	return &Decoder{
		primary:  primary,
		fallback: fallback,
		maxBytes: maxBytes,
		log:      logger.New(),
	}
}

// Decode converts an upload into normalized audio. It returns
// *story.ValidationError for rejected input and *DecodeError once both
// backends are exhausted. It never mutates the input.
func (d *Decoder) Decode(ctx context.Context, in *story.MediaInput, workDir string) (*story.NormalizedAudio, error) {
	if in == nil || len(in.Data) == 0 {
		return nil, &story.ValidationError{Reason: "empty audio payload"}
	}
	if d.maxBytes > 0 && in.Size > d.maxBytes {
		return nil, &story.ValidationError{
			Reason: fmt.Sprintf("file %s is %d bytes, limit is %d", in.Filename, in.Size, d.maxBytes),
		}
	}

	log := d.log.WithField("component", "audio.decoder").WithField("filename", in.Filename)

	audio, perr := d.primary.Decode(ctx, in, workDir)
	if perr == nil {
		return audio, nil
	}

	toolFailure := errors.Is(perr, ErrToolUnavailable)
	if !toolFailure && !d.fallback.Supports(in) {
		// Data error the fallback is known to fail on too; no point trying.
		return nil, &DecodeError{Backend: d.primary.Name(), Cause: perr}
	}

	log.WithError(perr).Warn("primary decode backend failed, trying fallback")
	audio, ferr := d.fallback.Decode(ctx, in, workDir)
	if ferr == nil {
		log.WithField("decode_backend", string(audio.Backend)).Info("fallback decode succeeded")
		return audio, nil
	}
	return nil, &DecodeError{Backend: d.fallback.Name(), Cause: ferr}
}
