package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voice-story-go/internal/logger"
	"voice-story-go/internal/story"
)

// Capability is the speech-to-text interface. The shipped implementation
// talks to a whisper server over HTTP; tests inject fakes.
type Capability interface {
	Transcribe(ctx context.Context, audio *story.NormalizedAudio, languageHint string) (*story.Transcript, error)
}

// TranscriptionError is terminal for the run once the single retry is
// exhausted.
type TranscriptionError struct {
	Cause error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription: %v", e.Cause)
}

func (e *TranscriptionError) Unwrap() error { return e.Cause }

// Transcriber wraps the capability with the short-audio short-circuit and
// the retry-once policy for transient backend failures.
type Transcriber struct {
	cap        Capability
	minSeconds float64
	retryWait  time.Duration
	log        *logger.Logger
}

func NewTranscriber(cap Capability, minSeconds float64) *Transcriber {
	return &Transcriber{
		cap:        cap,
		minSeconds: minSeconds,
		retryWait:  time.Second,
		log:        logger.New(),
	}
}

// Transcribe returns the transcript and whether the backend was actually
// invoked. Audio below the minimal threshold short-circuits to an empty
// transcript with invoked == false, so the caller can mark the stage
// skipped instead of burning a model call.
func (t *Transcriber) Transcribe(ctx context.Context, audio *story.NormalizedAudio, languageHint string) (*story.Transcript, bool, error) {
	if audio == nil || audio.Duration < t.minSeconds {
		return &story.Transcript{Text: "", Language: languageHint}, false, nil
	}

	log := t.log.WithField("component", "transcribe").
		WithField("duration_seconds", audio.Duration)

	var out *story.Transcript
	var lastErr error
	op := func() error {
		tr, err := t.cap.Transcribe(ctx, audio, languageHint)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("transcription attempt failed")
			return err
		}
		out = tr
		return nil
	}

	// Exactly one retry with identical input, then terminal.
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(t.retryWait), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, true, &TranscriptionError{Cause: lastErr}
	}
	return out, true, nil
}
