package stages

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"voice-story-go/internal/llm"
	"voice-story-go/internal/story"
)

// Stage is one text transformation over the pipeline state. Apply reads its
// upstream slice and writes its own; it reports the outcome status instead
// of failing the run, because every stage here has a deterministic fallback.
type Stage interface {
	Name() story.Stage
	Apply(ctx context.Context, state *story.PipelineState) (story.StageStatus, error)
}

// TransformError carries the reason a stage fell back to its deterministic
// result. It ends up in the event log, not in a failed status.
type TransformError struct {
	Stage story.Stage
	Cause error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// completeWithRepair runs the shared tolerant-decode policy: one model
// call, parse against the stage schema, and on failure one more call — a
// plain retry when the call itself failed, or a reformat request repeating
// the schema when the answer would not parse. A non-nil return means both
// attempts produced unusable output and the caller must fall back.
func completeWithRepair(
	ctx context.Context,
	cap llm.Capability,
	log *logrus.Entry,
	prompt string,
	reformat func(previous string) string,
	parse func(answer string) error,
) error {
	answer, err := cap.Complete(ctx, prompt)
	if err == nil {
		if perr := parse(answer); perr == nil {
			return nil
		} else {
			log.WithField("parse_error", perr.Error()).Warn("response did not match schema, requesting reformat")
			prompt = reformat(answer)
		}
	} else {
		log.WithField("error", err.Error()).Warn("model call failed, retrying once")
	}

	answer, err = cap.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("model call failed twice: %w", err)
	}
	if perr := parse(answer); perr != nil {
		return fmt.Errorf("response unparsable after reformat: %w", perr)
	}
	return nil
}

func reformatPrompt(schema, previous string) string {
	return fmt.Sprintf(`Your previous answer could not be parsed.
Reformat it so it matches EXACTLY the following format, with no commentary and no markdown fences:

%s

Previous answer:
%s`, schema, previous)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
