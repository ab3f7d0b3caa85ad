// package formatter renders job records and journal entries for the CLI
// (plain text, JSON, Markdown)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/subwatch/internal/models"
	"github.com/desertthunder/subwatch/internal/repositories"
)

// statusOrder fixes the grouping order for grouped renderings.
var statusOrder = []models.JobStatus{
	models.StatusRunning,
	models.StatusPending,
	models.StatusFailed,
	models.StatusCompleted,
	models.StatusUnknown,
}

// JobsToText renders a flat job list as aligned plain text.
func JobsToText(records []models.JobRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Jobs: %d\n\n", len(records)))
	for _, record := range records {
		buf.WriteString(renderJob(record))
	}

	return buf.Bytes()
}

// SnapshotToText renders a status-grouped snapshot, one section per status in
// a fixed order, skipping empty groups.
func SnapshotToText(snapshot map[models.JobStatus][]models.JobRecord) []byte {
	var buf bytes.Buffer

	for _, status := range statusOrder {
		records := snapshot[status]
		if len(records) == 0 {
			continue
		}
		buf.WriteString(fmt.Sprintf("%s (%d)\n", status, len(records)))
		for _, record := range records {
			buf.WriteString("  " + renderJob(record))
		}
		buf.WriteString("\n")
	}

	if buf.Len() == 0 {
		buf.WriteString("No jobs.\n")
	}
	return buf.Bytes()
}

// JobsToJSON renders a flat job list as indented JSON.
func JobsToJSON(records []models.JobRecord) ([]byte, error) {
	type row struct {
		JobID           int64   `json:"job_id"`
		Status          string  `json:"status"`
		Percent         float64 `json:"percent"`
		ProgressValue   float64 `json:"progress_value"`
		ProgressMax     float64 `json:"progress_max"`
		ProgressMessage string  `json:"progress_message,omitempty"`
		LastRun         string  `json:"last_run,omitempty"`
	}

	rows := make([]row, 0, len(records))
	for _, record := range records {
		r := row{
			JobID:           record.JobID,
			Status:          string(record.Status),
			Percent:         record.Percent(),
			ProgressValue:   record.ProgressValue,
			ProgressMax:     record.ProgressMax,
			ProgressMessage: record.ProgressMessage,
		}
		if !record.LastRun.IsZero() {
			r.LastRun = record.LastRun.Format(time.RFC3339)
		}
		rows = append(rows, r)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode jobs: %w", err)
	}
	return data, nil
}

// HistoryToText renders journal entries as plain text, newest first as given.
func HistoryToText(entries []repositories.HistoryEntry) []byte {
	var buf bytes.Buffer

	if len(entries) == 0 {
		buf.WriteString("No history.\n")
		return buf.Bytes()
	}

	for _, entry := range entries {
		line := fmt.Sprintf("%s  job %-6d %-10s %s\n",
			entry.FinishedAt.Format("2006-01-02 15:04:05"),
			entry.JobID,
			entry.Status,
			entry.Message,
		)
		buf.WriteString(line)
	}
	return buf.Bytes()
}

// HistoryToJSON renders journal entries as indented JSON.
func HistoryToJSON(entries []repositories.HistoryEntry) ([]byte, error) {
	type row struct {
		JobID      int64  `json:"job_id"`
		Status     string `json:"status"`
		Message    string `json:"message,omitempty"`
		FinishedAt string `json:"finished_at"`
	}

	rows := make([]row, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, row{
			JobID:      entry.JobID,
			Status:     string(entry.Status),
			Message:    entry.Message,
			FinishedAt: entry.FinishedAt.Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

// HistoryToMarkdown renders journal entries as a Markdown table.
func HistoryToMarkdown(entries []repositories.HistoryEntry) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Job History\n\n")
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n\n", len(entries)))
	buf.WriteString("| Finished | Job | Status | Message |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, entry := range entries {
		buf.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
			entry.FinishedAt.Format("2006-01-02 15:04"),
			entry.JobID,
			entry.Status,
			entry.Message,
		))
	}
	return buf.Bytes()
}

// renderJob renders one record as a single line.
func renderJob(record models.JobRecord) string {
	progress := fmt.Sprintf("%3.0f%%", record.Percent())
	message := record.ProgressMessage
	if message == "" {
		message = "-"
	}

	age := ""
	if !record.LastRun.IsZero() {
		age = "  " + FormatAge(time.Since(record.LastRun))
	}
	return fmt.Sprintf("job %-6d %-10s %s  %s%s\n", record.JobID, record.Status, progress, message, age)
}

// FormatAge renders a duration as a compact age like "42s" or "3m" or "2h".
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
