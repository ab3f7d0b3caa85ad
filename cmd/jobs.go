package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/subwatch/internal/formatter"
	"github.com/desertthunder/subwatch/internal/repositories"
	"github.com/desertthunder/subwatch/internal/shared"
)

// JobsList lists the jobs currently known to the backend queue.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	records, err := r.api.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if cmd.Bool("json") {
		data, err := formatter.JobsToJSON(records)
		if err != nil {
			return err
		}
		r.output.Write(data)
		r.output.Write([]byte("\n"))
		return nil
	}

	r.output.Write(formatter.JobsToText(records))
	return nil
}

// JobsHistory shows finished jobs from the local journal.
func (r *Runner) JobsHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database (run 'subwatch setup' first): %w", err)
	}
	defer db.Close()

	repo := repositories.NewJobHistoryRepository(db)

	limit := int(cmd.Int("limit"))

	var entries []repositories.HistoryEntry
	if jobID := int64(cmd.Int("job")); jobID != 0 {
		entries, err = repo.ListForJob(jobID, limit)
	} else {
		entries, err = repo.List(limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	switch {
	case cmd.Bool("json"):
		data, err := formatter.HistoryToJSON(entries)
		if err != nil {
			return err
		}
		r.output.Write(data)
		r.output.Write([]byte("\n"))
	case cmd.Bool("markdown"):
		r.output.Write(formatter.HistoryToMarkdown(entries))
	default:
		r.output.Write(formatter.HistoryToText(entries))
	}
	return nil
}

// JobsDelete removes a pending job from the backend queue.
func (r *Runner) JobsDelete(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("id")
	if raw == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: job id %q is not a number", shared.ErrInvalidArgument, raw)
	}

	if err := r.api.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", id, err)
	}

	r.writePlain("✓ job %d removed from the queue\n", id)
	return nil
}
