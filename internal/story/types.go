package story

// Stage names the pipeline steps in execution order.
type Stage string

const (
	StageDecode     Stage = "decode"
	StageTranscribe Stage = "transcribe"
	StageClean      Stage = "clean"
	StageOrganize   Stage = "organize"
	StageTag        Stage = "tag"
)

// Stages lists every stage in graph order. Organize and tag share a level.
func Stages() []Stage {
	return []Stage{StageDecode, StageTranscribe, StageClean, StageOrganize, StageTag}
}

// StageStatus is the uniform per-stage outcome type.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusSucceeded StageStatus = "succeeded"
	// StatusDegraded means a deterministic fallback replaced unusable
	// primary output; the run keeps going.
	StatusDegraded StageStatus = "succeeded_degraded"
	StatusFailed   StageStatus = "failed"
	StatusSkipped  StageStatus = "skipped"
)

// Terminal reports whether the status allows downstream stages to proceed.
func (s StageStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusDegraded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// OK reports whether downstream stages may consume this stage's output.
func (s StageStatus) OK() bool {
	return s == StatusSucceeded || s == StatusDegraded
}

// RunStatus tracks the whole pipeline run.
type RunStatus string

const (
	RunNotStarted RunStatus = "not_started"
	RunRunning    RunStatus = "running"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// DecodeBackend records which decoder produced the normalized audio.
type DecodeBackend string

const (
	BackendPrimary  DecodeBackend = "primary"
	BackendFallback DecodeBackend = "fallback"
)

// MediaInput is the raw upload as received from the caller.
type MediaInput struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Size     int64  `json:"size"`
}

// NewMediaInput normalizes the declared filename before the payload touches
// any filesystem path.
func NewMediaInput(data []byte, filename, mime string) *MediaInput {
	return &MediaInput{
		Data:     data,
		Filename: SanitizeFilename(filename),
		MIME:     mime,
		Size:     int64(len(data)),
	}
}

// NormalizedAudio is mono PCM produced by the decoder. Immutable after
// decode; TempPath (if any) is removed at run teardown.
type NormalizedAudio struct {
	Samples    []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Duration   float64       `json:"duration_seconds"`
	Backend    DecodeBackend `json:"decode_backend"`
	TempPath   string        `json:"-"`
}

// Segment carries optional per-segment timing from the STT backend.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments,omitempty"`
}

type CleanedText struct {
	Text           string   `json:"text"`
	RemovedFillers []string `json:"removed_fillers,omitempty"`
}

type Section struct {
	Heading   string   `json:"heading"`
	Body      string   `json:"body"`
	KeyPoints []string `json:"key_points"`
}

type StructuredStory struct {
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

// Tag pairs a hashtag-style keyword with a relevance score in [0,1].
type Tag struct {
	Name  string  `json:"tag"`
	Score float64 `json:"score"`
}

// TagSet is ordered and unique by tag name.
type TagSet []Tag
