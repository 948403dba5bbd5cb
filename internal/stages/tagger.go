package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"voice-story-go/internal/llm"
	"voice-story-go/internal/logger"
	"voice-story-go/internal/story"
)

const maxTags = 8

const tagSchema = `[
  {"tag": "keyword", "score": 0.9}
]`

// Tagger extracts hashtag keywords with relevance scores from the cleaned
// text. Fallback: an empty tag set.
type Tagger struct {
	cap llm.Capability
	log *logger.Logger
}

func NewTagger(cap llm.Capability) *Tagger {
	return &Tagger{cap: cap, log: logger.New()}
}

func (t *Tagger) Name() story.Stage { return story.StageTag }

func (t *Tagger) Apply(ctx context.Context, state *story.PipelineState) (story.StageStatus, error) {
	input := state.Cleaned.Text
	log := t.log.WithSession(state.SessionID).WithField("stage", string(story.StageTag))

	var tags story.TagSet
	parse := func(answer string) error {
		raw := llm.ExtractJSONArray(answer)
		if raw == "" {
			return fmt.Errorf("no JSON array in response")
		}
		var parsed []story.Tag
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return fmt.Errorf("schema mismatch: %w", err)
		}
		tags = normalizeTags(parsed)
		return nil
	}

	err := completeWithRepair(ctx, t.cap, log, tagPrompt(input),
		func(prev string) string { return reformatPrompt(tagSchema, prev) },
		parse,
	)
	if err != nil {
		state.Tags = story.TagSet{}
		return story.StatusDegraded, &TransformError{Stage: story.StageTag, Cause: err}
	}

	state.Tags = tags
	return story.StatusSucceeded, nil
}

func tagPrompt(text string) string {
	return fmt.Sprintf(`Extract the core keywords of the following story as hashtags.

Pick from:
- main people, places, events
- emotions or mood
- central concepts or themes

Rules:
- 3 to 8 tags, most relevant first
- no "#" prefix, no spaces inside a tag
- score each tag's relevance between 0 and 1
- skip overly generic words
- return ONLY a JSON array matching this schema:

%s

Story:
%s`, tagSchema, text)
}

// normalizeTags enforces the TagSet invariants: ordered, unique by name,
// scores clamped to [0,1], at most maxTags entries.
func normalizeTags(in []story.Tag) story.TagSet {
	out := story.TagSet{}
	seen := make(map[string]bool, len(in))
	for _, tag := range in {
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag.Name), "#"))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		score := tag.Score
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		out = append(out, story.Tag{Name: name, Score: score})
		if len(out) == maxTags {
			break
		}
	}
	return out
}
