package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"voice-story-go/internal/story"
)

const (
	resultsSheet = "Results"
	tagsSheet    = "Tags"
)

var resultHeaders = []string{
	"session_id", "filename", "run_status", "decode_backend",
	"language", "title", "summary", "tags", "error",
}

// Write exports a batch of pipeline results to an xlsx workbook: one row
// per recording plus a tag-frequency summary sheet.
func Write(path string, results []*story.PipelineResult) error {
	f := excelize.NewFile()
	defer f.Close()

	// excelize creates "Sheet1" by default; rename it.
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(resultsSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, res := range results {
		values := []any{
			res.SessionID,
			res.Filename,
			string(res.RunStatus),
			string(res.DecodeBackend),
			res.Language,
			res.Title,
			res.Summary,
			joinTags(res.Tags),
			firstError(res.StageLog),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(resultsSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row+1, err)
			}
		}
	}

	if err := writeTagSummary(f, results); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

type tagStat struct {
	name  string
	count int
	sum   float64
}

// writeTagSummary rolls tag usage up across the whole batch.
func writeTagSummary(f *excelize.File, results []*story.PipelineResult) error {
	if _, err := f.NewSheet(tagsSheet); err != nil {
		return fmt.Errorf("create tags sheet: %w", err)
	}

	stats := map[string]*tagStat{}
	for _, res := range results {
		for _, tag := range res.Tags {
			key := strings.ToLower(tag.Name)
			st, ok := stats[key]
			if !ok {
				st = &tagStat{name: tag.Name}
				stats[key] = st
			}
			st.count++
			st.sum += tag.Score
		}
	}

	ordered := make([]*tagStat, 0, len(stats))
	for _, st := range stats {
		ordered = append(ordered, st)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].name < ordered[j].name
	})

	for col, h := range []string{"tag", "count", "avg_score"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(tagsSheet, cell, h); err != nil {
			return fmt.Errorf("write tag header: %w", err)
		}
	}
	for row, st := range ordered {
		values := []any{st.name, st.count, st.sum / float64(st.count)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(tagsSheet, cell, v); err != nil {
				return fmt.Errorf("write tag row: %w", err)
			}
		}
	}
	return nil
}

func joinTags(tags story.TagSet) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func firstError(log []story.StageEvent) string {
	for _, ev := range log {
		if ev.Error != "" {
			return fmt.Sprintf("%s: %s", ev.Stage, ev.Error)
		}
	}
	return ""
}
