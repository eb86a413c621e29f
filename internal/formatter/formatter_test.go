package formatter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cleanwave/internal/models"
	"cleanwave/internal/tasks"
)

func sampleExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          "pl1",
			Name:        "Road Trip",
			Description: "Songs for driving",
			Public:      true,
			TrackCount:  2,
		},
		Tracks: []models.Track{
			{ID: "t1", Title: "Highway Song", Artist: "The Drivers", Album: "Miles", Duration: 215, Explicit: true},
			{ID: "t2", Title: "Rest Stop", Artist: "The Drivers", Album: "Miles", Duration: 180},
		},
	}
}

func sampleResult() *tasks.CleanRunResult {
	result := &tasks.CleanRunResult{
		Source:      models.Playlist{ID: "pl1", Name: "Road Trip"},
		Destination: &models.Playlist{ID: "pl2", Name: "Road Trip (Clean)"},
		Resolutions: []models.Resolution{
			{
				Source:  models.Track{ID: "t1", Title: "Highway Song", Artist: "The Drivers", Explicit: true},
				Result:  models.Track{ID: "c1", Title: "Highway Song (Clean)", Artist: "The Drivers"},
				Outcome: models.OutcomeReplaced,
			},
			{
				Source:  models.Track{ID: "t2", Title: "Rest Stop", Artist: "The Drivers"},
				Result:  models.Track{ID: "t2", Title: "Rest Stop", Artist: "The Drivers"},
				Outcome: models.OutcomeKeptClean,
			},
			{
				Source:  models.Track{ID: "t3", Title: "Detour", Artist: "The Drivers", Explicit: true},
				Result:  models.Track{ID: "t3", Title: "Detour", Artist: "The Drivers", Explicit: true},
				Outcome: models.OutcomeUnmatched,
			},
		},
	}
	result.Counts()
	return result
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(sampleExport())
	if err != nil {
		t.Fatalf("ExportToCSV() error = %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("ExportToCSV() rows = %d, want 3", len(records))
	}
	if records[0][5] != "Explicit" {
		t.Errorf("ExportToCSV() last header = %q, want Explicit", records[0][5])
	}
	if records[1][5] != "true" || records[2][5] != "false" {
		t.Errorf("ExportToCSV() explicit columns = %q, %q", records[1][5], records[2][5])
	}
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText(sampleExport())
	if err != nil {
		t.Fatalf("ExportToText() error = %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Playlist: Road Trip") {
		t.Error("ExportToText() missing playlist name")
	}
	if !strings.Contains(text, "1. The Drivers - Highway Song [E]") {
		t.Errorf("ExportToText() missing explicit marker:\n%s", text)
	}
	if !strings.Contains(text, "2. The Drivers - Rest Stop\n") {
		t.Errorf("ExportToText() unexpected track line:\n%s", text)
	}
}

func TestReportToCSV(t *testing.T) {
	data, err := ReportToCSV(sampleResult())
	if err != nil {
		t.Fatalf("ReportToCSV() error = %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("ReportToCSV() rows = %d, want 4", len(records))
	}
	if records[1][5] != string(models.OutcomeReplaced) {
		t.Errorf("ReportToCSV() first outcome = %q", records[1][5])
	}
	if records[3][4] != "t3" {
		t.Errorf("ReportToCSV() unmatched result ID = %q, want t3", records[3][4])
	}
}

func TestReportToMarkdown(t *testing.T) {
	data, err := ReportToMarkdown(sampleResult())
	if err != nil {
		t.Fatalf("ReportToMarkdown() error = %v", err)
	}

	md := string(data)
	for _, want := range []string{
		"# Clean Run: Road Trip",
		"**Destination**: Road Trip (Clean)",
		"**Replaced**: 1",
		"**No clean version**: 1",
		"| 1 | The Drivers - Highway Song | Highway Song (Clean) | replaced |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("ReportToMarkdown() missing %q:\n%s", want, md)
		}
	}
}

func TestReportToText(t *testing.T) {
	data, err := ReportToText(sampleResult())
	if err != nil {
		t.Fatalf("ReportToText() error = %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Tracks: 3 (clean 1, replaced 1, unmatched 1)") {
		t.Errorf("ReportToText() missing summary line:\n%s", text)
	}
	if !strings.Contains(text, "3. ! The Drivers - Detour (kept explicit)") {
		t.Errorf("ReportToText() missing unmatched line:\n%s", text)
	}
}

func TestReportToJSON(t *testing.T) {
	data, err := ReportToJSON(sampleResult())
	if err != nil {
		t.Fatalf("ReportToJSON() error = %v", err)
	}

	var decoded tasks.CleanRunResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("ReportToJSON() produced invalid JSON: %v", err)
	}
	if decoded.Replaced != 1 || len(decoded.Resolutions) != 3 {
		t.Errorf("ReportToJSON() decoded counts = %d/%d", decoded.Replaced, len(decoded.Resolutions))
	}
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantExt string
		wantErr bool
	}{
		{name: "text default", format: "", wantExt: ".txt"},
		{name: "csv", format: "csv", wantExt: ".csv"},
		{name: "markdown", format: "markdown", wantExt: ".md"},
		{name: "json", format: "json", wantExt: ".json"},
		{name: "unknown format", format: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			target := ""
			if !tt.wantErr {
				target = filepath.Join(dir, "report"+tt.wantExt)
			}

			path, err := WriteReport(sampleResult(), tt.format, target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("WriteReport() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read report file: %v", err)
			}
			if len(data) == 0 {
				t.Error("WriteReport() wrote empty file")
			}
		})
	}
}

func TestWriteCSVExport(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "export")

	result, err := WriteCSVExport(sampleExport(), base)
	if err != nil {
		t.Fatalf("WriteCSVExport() error = %v", err)
	}

	if _, err := os.Stat(result.TracksFile); err != nil {
		t.Errorf("tracks file missing: %v", err)
	}
	if _, err := os.Stat(result.MetadataFile); err != nil {
		t.Errorf("metadata file missing: %v", err)
	}

	metadata, err := os.ReadFile(result.MetadataFile)
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	var playlist models.Playlist
	if err := json.Unmarshal(metadata, &playlist); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if playlist.Name != "Road Trip" {
		t.Errorf("metadata name = %q, want Road Trip", playlist.Name)
	}
}

func TestWriteTextExport(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "tracks.txt")

	path, err := WriteTextExport(sampleExport(), target)
	if err != nil {
		t.Fatalf("WriteTextExport() error = %v", err)
	}
	if path != target {
		t.Errorf("WriteTextExport() path = %q, want %q", path, target)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("text file missing: %v", err)
	}
}
