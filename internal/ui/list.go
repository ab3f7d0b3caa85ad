package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/subwatch/internal/formatter"
	"github.com/desertthunder/subwatch/internal/models"
)

var _ list.Item = jobItem{}

// jobItem wraps [models.JobRecord] to implement [list.Item].
type jobItem struct {
	record models.JobRecord
}

func (i jobItem) FilterValue() string { return i.record.ProgressMessage }

func (i jobItem) Title() string {
	return fmt.Sprintf("job %d · %s · %.0f%%", i.record.JobID, i.record.Status, i.record.Percent())
}

func (i jobItem) Description() string {
	desc := i.record.ProgressMessage
	if desc == "" {
		desc = "(no message)"
	}
	if !i.record.LastRun.IsZero() {
		desc = fmt.Sprintf("%s • %s ago", desc, formatter.FormatAge(time.Since(i.record.LastRun)))
	}
	return desc
}
