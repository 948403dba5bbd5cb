package store

import (
	"errors"
	"testing"

	"voice-story-go/internal/story"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(id string) *story.PipelineResult {
	return &story.PipelineResult{
		SessionID:     id,
		Filename:      "memo.wav",
		RunStatus:     story.RunCompleted,
		DecodeBackend: story.BackendPrimary,
		Language:      "en",
		Title:         "Market day",
		Tags:          story.TagSet{{Name: "market", Score: 0.8}},
		Sections:      []story.Section{},
		StageLog:      []story.StageEvent{},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := sampleResult("session-1")
	if err := s.Put(want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get("session-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SessionID != want.SessionID || got.Title != want.Title {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "market" {
		t.Fatalf("tags = %+v", got.Tags)
	}
}

func TestGetUnknownSession(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListReturnsAllResults(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(sampleResult(id)); err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
}

func TestPutOverwritesExistingResult(t *testing.T) {
	s := openTestStore(t)
	first := sampleResult("session-1")
	if err := s.Put(first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	updated := sampleResult("session-1")
	updated.Title = "Revised title"
	if err := s.Put(updated); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get("session-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Revised title" {
		t.Fatalf("title = %q, overwrite lost", got.Title)
	}
}
