// package formatter provides functions to export playlist data and clean-run
// reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"cleanwave/internal/models"
	"cleanwave/internal/shared"
	"cleanwave/internal/tasks"
)

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, Duration, Explicit
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "Explicit"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			strconv.FormatBool(track.Explicit),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, track := range export.Tracks {
		marker := ""
		if track.Explicit {
			marker = " [E]"
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Title, marker))
	}

	return buf.Bytes(), nil
}

// ReportToCSV converts a CleanRunResult to CSV format with one row per
// source track alongside its resolved replacement
func ReportToCSV(result *tasks.CleanRunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Source Title", "Source Artist", "Result Title", "Result ID", "Outcome"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, res := range result.Resolutions {
		record := []string{
			strconv.Itoa(i + 1),
			res.Source.Title,
			res.Source.Artist,
			res.Result.Title,
			res.Result.ID,
			string(res.Outcome),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a CleanRunResult to a Markdown report
func ReportToMarkdown(result *tasks.CleanRunResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Clean Run: %s\n\n", result.Source.Name))

	if result.Destination != nil {
		buf.WriteString(fmt.Sprintf("**Destination**: %s (ID: %s)\n", result.Destination.Name, result.Destination.ID))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(result.Resolutions)))
	buf.WriteString(fmt.Sprintf("**Already clean**: %d\n", result.KeptClean))
	buf.WriteString(fmt.Sprintf("**Replaced**: %d (%d%%)\n", result.Replaced, result.ReplacedPercent()))
	buf.WriteString(fmt.Sprintf("**No clean version**: %d\n\n", result.Unmatched))

	buf.WriteString("## Resolutions\n\n")
	buf.WriteString("| # | Source | Result | Outcome |\n")
	buf.WriteString("|---|--------|--------|--------|\n")
	for i, res := range result.Resolutions {
		buf.WriteString(fmt.Sprintf("| %d | %s - %s | %s | %s |\n",
			i+1, res.Source.Artist, res.Source.Title, res.Result.Title, outcomeLabel(res.Outcome)))
	}

	return buf.Bytes(), nil
}

// ReportToText converts a CleanRunResult to a plain text summary
func ReportToText(result *tasks.CleanRunResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Source: %s\n", result.Source.Name))
	if result.Destination != nil {
		buf.WriteString(fmt.Sprintf("Destination: %s\n", result.Destination.Name))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d (clean %d, replaced %d, unmatched %d)\n\n",
		len(result.Resolutions), result.KeptClean, result.Replaced, result.Unmatched))

	for i, res := range result.Resolutions {
		switch res.Outcome {
		case models.OutcomeKeptClean:
			buf.WriteString(fmt.Sprintf("%d. = %s - %s\n", i+1, res.Source.Artist, res.Source.Title))
		case models.OutcomeReplaced:
			buf.WriteString(fmt.Sprintf("%d. > %s - %s -> %s\n", i+1, res.Source.Artist, res.Source.Title, res.Result.Title))
		default:
			buf.WriteString(fmt.Sprintf("%d. ! %s - %s (kept explicit)\n", i+1, res.Source.Artist, res.Source.Title))
		}
	}

	return buf.Bytes(), nil
}

func outcomeLabel(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeKeptClean:
		return "already clean"
	case models.OutcomeReplaced:
		return "replaced"
	default:
		return "no clean version"
	}
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// ReportToJSON generates an indented JSON representation of a clean run
func ReportToJSON(result *tasks.CleanRunResult) ([]byte, error) {
	return shared.MarshalJSON(result, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteReport writes a clean-run report in the requested format.
//
// Supported formats are "csv", "markdown", "json", and "text" (the default).
// The filename defaults to {source.ID}_clean_report.{ext}.
func WriteReport(result *tasks.CleanRunResult, format, filepath string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(result)
		ext = "csv"
	case "markdown", "md":
		data, err = ReportToMarkdown(result)
		ext = "md"
	case "json":
		data, err = ReportToJSON(result)
		ext = "json"
	case "", "text", "txt":
		data, err = ReportToText(result)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidInput, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if filepath == "" {
		filepath = fmt.Sprintf("%s_clean_report.%s", result.Source.ID, ext)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
