package report

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"voice-story-go/internal/story"
)

func TestWriteProducesResultsAndTagSheets(t *testing.T) {
	results := []*story.PipelineResult{
		{
			SessionID:     "s1",
			Filename:      "one.wav",
			RunStatus:     story.RunCompleted,
			DecodeBackend: story.BackendPrimary,
			Language:      "en",
			Title:         "Market day",
			Summary:       "A trip.",
			Tags:          story.TagSet{{Name: "market", Score: 0.8}, {Name: "apples", Score: 0.6}},
		},
		{
			SessionID:     "s2",
			Filename:      "two.mp3",
			RunStatus:     story.RunFailed,
			DecodeBackend: story.BackendFallback,
			StageLog: []story.StageEvent{
				{Stage: story.StageTranscribe, Status: story.StatusFailed, Error: "whisper unreachable"},
			},
		},
		{
			SessionID: "s3",
			Filename:  "three.ogg",
			RunStatus: story.RunCompleted,
			Tags:      story.TagSet{{Name: "Market", Score: 0.4}},
		},
	}

	path := filepath.Join(t.TempDir(), "batch.xlsx")
	if err := Write(path, results); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open written report: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	if err != nil {
		t.Fatalf("read results sheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("result rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "session_id" || rows[0][8] != "error" {
		t.Fatalf("headers = %v", rows[0])
	}
	if rows[1][5] != "Market day" {
		t.Fatalf("title cell = %q", rows[1][5])
	}
	if rows[1][7] != "market, apples" {
		t.Fatalf("tags cell = %q", rows[1][7])
	}
	if got := rows[2][8]; got != "transcribe: whisper unreachable" {
		t.Fatalf("error cell = %q", got)
	}

	tagRows, err := f.GetRows(tagsSheet)
	if err != nil {
		t.Fatalf("read tags sheet: %v", err)
	}
	// market appears twice (case-insensitive), apples once.
	if len(tagRows) != 3 {
		t.Fatalf("tag rows = %d, want header + 2", len(tagRows))
	}
	if tagRows[1][0] != "market" || tagRows[1][1] != "2" {
		t.Fatalf("top tag row = %v", tagRows[1])
	}
}

func TestWriteEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := Write(path, nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open written report: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	if err != nil {
		t.Fatalf("read results sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
}
