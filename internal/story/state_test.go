package story

import (
	"errors"
	"testing"
	"time"
)

func TestNewPipelineStateStartsPending(t *testing.T) {
	state := NewPipelineState(NewMediaInput([]byte("x"), "a.wav", "audio/wav"))
	if state.SessionID == "" {
		t.Fatal("missing session id")
	}
	if state.Run != RunNotStarted {
		t.Fatalf("run status = %q, want %q", state.Run, RunNotStarted)
	}
	for _, stage := range Stages() {
		if got := state.Status(stage); got != StatusPending {
			t.Fatalf("stage %s status = %q, want pending", stage, got)
		}
	}
}

func TestRecordAppendsOrderedEvents(t *testing.T) {
	state := NewPipelineState(NewMediaInput([]byte("x"), "a.wav", "audio/wav"))
	state.Record(StageDecode, StatusSucceeded, 120*time.Millisecond, nil)
	state.Record(StageTranscribe, StatusFailed, 40*time.Millisecond, errors.New("backend down"))

	if len(state.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(state.Events))
	}
	if state.Events[0].Stage != StageDecode || state.Events[0].DurationMS != 120 {
		t.Fatalf("unexpected first event: %+v", state.Events[0])
	}
	if state.Events[1].Error != "backend down" {
		t.Fatalf("error detail missing: %+v", state.Events[1])
	}
	if state.Status(StageTranscribe) != StatusFailed {
		t.Fatalf("status map not updated")
	}
}

func TestResultPreservesPartialArtifacts(t *testing.T) {
	state := NewPipelineState(NewMediaInput([]byte("x"), "a.wav", "audio/wav"))
	state.Run = RunFailed
	state.Audio = &NormalizedAudio{Backend: BackendFallback, Duration: 2}
	state.Transcript = &Transcript{Text: "hello there", Language: "en"}
	state.Record(StageDecode, StatusSucceeded, 0, nil)
	state.Record(StageTranscribe, StatusSucceeded, 0, nil)
	state.Record(StageClean, StatusFailed, 0, errors.New("boom"))

	res := state.Result()
	if res.RunStatus != RunFailed {
		t.Fatalf("run status = %q", res.RunStatus)
	}
	if res.DecodeBackend != BackendFallback {
		t.Fatalf("decode backend = %q", res.DecodeBackend)
	}
	if res.RawTranscript != "hello there" || res.Language != "en" {
		t.Fatalf("transcript not preserved: %+v", res)
	}
	if len(res.StageLog) != 3 {
		t.Fatalf("stage log = %d entries, want 3", len(res.StageLog))
	}
	if res.Sections == nil || res.Tags == nil {
		t.Fatal("sections/tags must serialize as empty, not null")
	}
}
