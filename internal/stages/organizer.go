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

const organizeSchema = `{
  "title": "overall title",
  "summary": "one-line summary",
  "sections": [
    {
      "heading": "section heading",
      "body": "section text",
      "key_points": ["key point 1", "key point 2"]
    }
  ]
}`

// Organizer structures the cleaned text into a titled, sectioned story.
// Fallback: a single verbatim section under a title derived from the first
// line.
type Organizer struct {
	cap llm.Capability
	log *logger.Logger
}

func NewOrganizer(cap llm.Capability) *Organizer {
	return &Organizer{cap: cap, log: logger.New()}
}

func (o *Organizer) Name() story.Stage { return story.StageOrganize }

func (o *Organizer) Apply(ctx context.Context, state *story.PipelineState) (story.StageStatus, error) {
	input := state.Cleaned.Text
	log := o.log.WithSession(state.SessionID).WithField("stage", string(story.StageOrganize))

	var organized story.StructuredStory
	parse := func(answer string) error {
		raw := llm.ExtractJSON(answer)
		if raw == "" {
			return fmt.Errorf("no JSON object in response")
		}
		var s story.StructuredStory
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return fmt.Errorf("schema mismatch: %w", err)
		}
		if s.Title == "" && len(s.Sections) == 0 {
			return fmt.Errorf("schema mismatch: neither title nor sections present")
		}
		for i := range s.Sections {
			if s.Sections[i].KeyPoints == nil {
				s.Sections[i].KeyPoints = []string{}
			}
		}
		organized = s
		return nil
	}

	err := completeWithRepair(ctx, o.cap, log, organizePrompt(input),
		func(prev string) string { return reformatPrompt(organizeSchema, prev) },
		parse,
	)
	if err != nil {
		state.Story = FallbackStory(input)
		return story.StatusDegraded, &TransformError{Stage: story.StageOrganize, Cause: err}
	}

	state.Story = &organized
	return story.StatusSucceeded, nil
}

func organizePrompt(text string) string {
	return fmt.Sprintf(`Organize the following text into a logical structure.

Rules:
1. Split into sections by topic or chronology.
2. Give each section a fitting heading.
3. Pull out the key points of each section.
4. Return ONLY a JSON object matching this schema:

%s

Text:
%s`, organizeSchema, text)
}

// FallbackStory is the deterministic, total fallback used when the model
// output stays unparsable. Stable: feeding its output back through
// serialization yields the identical story.
func FallbackStory(text string) *story.StructuredStory {
	title := "Untitled note"
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			title = truncateRunes(t, 60)
			break
		}
	}

	summary := text
	if len([]rune(text)) > 100 {
		summary = truncateRunes(text, 100) + "..."
	}

	return &story.StructuredStory{
		Title:   title,
		Summary: summary,
		Sections: []story.Section{
			{Heading: "Main story", Body: text, KeyPoints: []string{}},
		},
	}
}
