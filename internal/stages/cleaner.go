package stages

import (
	"context"
	"fmt"
	"strings"

	"voice-story-go/internal/llm"
	"voice-story-go/internal/logger"
	"voice-story-go/internal/story"
)

// fillerWords is the heuristic list used to report which disfluencies the
// model removed.
var fillerWords = []string{
	"um", "uh", "erm", "hmm", "like", "you know", "i mean",
	"sort of", "kind of", "basically", "actually", "anyway",
}

const cleanSchema = `Plain cleaned text only. No headings, no lists, no commentary.`

// Cleaner removes disfluencies from the raw transcript. Fallback: the
// transcript unchanged.
type Cleaner struct {
	cap llm.Capability
	log *logger.Logger
}

func NewCleaner(cap llm.Capability) *Cleaner {
	return &Cleaner{cap: cap, log: logger.New()}
}

func (c *Cleaner) Name() story.Stage { return story.StageClean }

func (c *Cleaner) Apply(ctx context.Context, state *story.PipelineState) (story.StageStatus, error) {
	input := state.Transcript.Text
	log := c.log.WithSession(state.SessionID).WithField("stage", string(story.StageClean))

	var cleaned string
	parse := func(answer string) error {
		out := strings.TrimSpace(answer)
		if out == "" {
			return fmt.Errorf("empty response")
		}
		cleaned = out
		return nil
	}

	err := completeWithRepair(ctx, c.cap, log, cleanPrompt(input),
		func(prev string) string { return reformatPrompt(cleanSchema, prev) },
		parse,
	)
	if err != nil {
		state.Cleaned = &story.CleanedText{Text: input}
		return story.StatusDegraded, &TransformError{Stage: story.StageClean, Cause: err}
	}

	state.Cleaned = &story.CleanedText{
		Text:           cleaned,
		RemovedFillers: removedFillers(input, cleaned),
	}
	return story.StatusSucceeded, nil
}

func cleanPrompt(text string) string {
	return fmt.Sprintf(`Clean up the following speech-recognition transcript.

Remove:
- filler words ("um", "uh", "like", "you know", "I mean")
- pointless repetition of words or phrases
- hesitations and false starts ("no wait", "how do I say this")
- connectives that add nothing in context

Rules:
1. Preserve the original meaning and intent.
2. Rewrite into natural, grammatical sentences.
3. Never drop substantive content.
4. Keep the speaker's language.

Return only the cleaned text.

Transcript:
%s`, text)
}

// removedFillers reports fillers present in the input that no longer
// appear in the cleaned output.
func removedFillers(input, output string) []string {
	in := strings.ToLower(input)
	out := strings.ToLower(output)
	var removed []string
	for _, f := range fillerWords {
		if strings.Contains(in, f) && !strings.Contains(out, f) {
			removed = append(removed, f)
		}
	}
	return removed
}
