package story

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StageEvent is one entry in the per-run outcome log.
type StageEvent struct {
	Stage      Stage       `json:"stage"`
	Status     StageStatus `json:"status"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// PipelineState threads through all stages of one run. It is exclusively
// owned by that run; the mutex only covers the organize/tag fan-out, which
// is the single point where two goroutines record into it.
type PipelineState struct {
	SessionID string
	Input     *MediaInput

	Audio      *NormalizedAudio
	Transcript *Transcript
	Cleaned    *CleanedText
	Story      *StructuredStory
	Tags       TagSet

	Run       RunStatus
	Statuses  map[Stage]StageStatus
	Events    []StageEvent
	CreatedAt time.Time

	mu sync.Mutex
}

// NewPipelineState creates run state with only the input populated and
// every stage pending.
func NewPipelineState(in *MediaInput) *PipelineState {
	statuses := make(map[Stage]StageStatus, len(Stages()))
	for _, st := range Stages() {
		statuses[st] = StatusPending
	}
	return &PipelineState{
		SessionID: uuid.New().String(),
		Input:     in,
		Run:       RunNotStarted,
		Statuses:  statuses,
		CreatedAt: time.Now(),
	}
}

// SetStatus updates the stage map without logging an outcome. Used for the
// pending→running transition.
func (s *PipelineState) SetStatus(stage Stage, status StageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statuses[stage] = status
}

// Record marks a terminal stage outcome and appends it to the event log.
func (s *PipelineState) Record(stage Stage, status StageStatus, dur time.Duration, err error) StageEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statuses[stage] = status
	ev := StageEvent{
		Stage:      stage,
		Status:     status,
		DurationMS: dur.Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.Events = append(s.Events, ev)
	return ev
}

// Status returns the current status of one stage.
func (s *PipelineState) Status(stage Stage) StageStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Statuses[stage]
}

// PipelineResult is the serialized terminal state delivered to callers.
type PipelineResult struct {
	SessionID     string        `json:"session_id"`
	Filename      string        `json:"filename"`
	RunStatus     RunStatus     `json:"run_status"`
	DecodeBackend DecodeBackend `json:"decode_backend,omitempty"`
	Language      string        `json:"language,omitempty"`

	Title         string       `json:"title"`
	Summary       string       `json:"summary"`
	Sections      []Section    `json:"sections"`
	Tags          TagSet       `json:"tags"`
	RawTranscript string       `json:"raw_transcript"`
	CleanedText   string       `json:"cleaned_text"`
	StageLog      []StageEvent `json:"stage_log"`
}

// Result flattens the state into the output record. Partial artifacts from
// degraded or failed runs are preserved rather than discarded.
func (s *PipelineState) Result() *PipelineResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &PipelineResult{
		SessionID: s.SessionID,
		RunStatus: s.Run,
		Sections:  []Section{},
		Tags:      TagSet{},
		StageLog:  append([]StageEvent(nil), s.Events...),
	}
	if s.Input != nil {
		res.Filename = s.Input.Filename
	}
	if s.Audio != nil {
		res.DecodeBackend = s.Audio.Backend
	}
	if s.Transcript != nil {
		res.RawTranscript = s.Transcript.Text
		res.Language = s.Transcript.Language
	}
	if s.Cleaned != nil {
		res.CleanedText = s.Cleaned.Text
	}
	if s.Story != nil {
		res.Title = s.Story.Title
		res.Summary = s.Story.Summary
		if s.Story.Sections != nil {
			res.Sections = s.Story.Sections
		}
	}
	if s.Tags != nil {
		res.Tags = s.Tags
	}
	return res
}
