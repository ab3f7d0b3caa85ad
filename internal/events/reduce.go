package events

import (
	"context"

	"github.com/desertthunder/subwatch/internal/models"
)

// FatalBanner is the user-visible message raised when the push channel
// errors out.
const FatalBanner = "cannot reach backend"

// Reduce routes one push event through the effect table, mutating the job
// record cache, the read cache, or the process-wide flags.
//
// Nothing in here raises to the caller: transport faults become flags,
// per-job fetch faults become log entries, and malformed payloads no-op.
// Effects for one event apply in table order; `jobs` items are processed
// independently, with no ordering guarantee between an item resolved
// inline and one resolved by async re-fetch.
func (c *Context) Reduce(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindConnect:
		c.Flags.MarkOnline()

	case KindConnectError:
		c.Flags.RaiseFatal(FatalBanner)
		c.Notices.Clear()

	case KindDisconnect:
		c.Flags.MarkOffline()

	case KindMessage:
		if ev.Action == ActionUpdate {
			for _, text := range decodeStrings(ev.Payload) {
				c.Notices.Push(text)
			}
		}

	case KindSeries:
		for _, id := range decodeIDs(ev.Payload) {
			c.Reads.Invalidate(models.TargetFor(models.KindSeries, id))
		}

	case KindMovie:
		for _, id := range decodeIDs(ev.Payload) {
			c.Reads.Invalidate(models.TargetFor(models.KindMovie, id))
		}

	case KindEpisode:
		// Episodes are not independently cached; resolve each id to its
		// parent series and invalidate that instead. Unknown parents no-op.
		for _, id := range decodeIDs(ev.Payload) {
			if parent, ok := c.Reads.EpisodeParent(id); ok {
				c.Reads.Invalidate(models.TargetFor(models.KindSeries, parent))
			}
		}

	case KindEpisodeWanted, KindResetEpisodeWanted:
		c.Reads.Invalidate(models.TargetOf(models.KindEpisodeWanted))

	case KindMovieWanted, KindResetMovieWanted:
		c.Reads.Invalidate(models.TargetOf(models.KindMovieWanted))

	case KindSettings:
		c.Reads.Invalidate(models.TargetOf(models.KindSystemSettings))

	case KindLanguages:
		c.Reads.Invalidate(models.TargetOf(models.KindLanguages))

	case KindBadges:
		c.Reads.Invalidate(models.TargetOf(models.KindBadges))

	case KindMovieHistory:
		c.Reads.Invalidate(models.TargetOf(models.KindMovieHistory))

	case KindEpisodeHistory:
		c.Reads.Invalidate(models.TargetOf(models.KindEpisodeHistory))

	case KindMovieBlacklist:
		c.Reads.Invalidate(models.TargetOf(models.KindMovieBlacklist))

	case KindEpisodeBlacklist:
		c.Reads.Invalidate(models.TargetOf(models.KindEpisodeBlacklist))

	case KindTask:
		// Coarse signal: something about the job list changed.
		c.Reads.Invalidate(models.TargetOf(models.KindJobList))

	case KindJobs:
		c.reduceJobs(ctx, ev)

	case KindUnknown:
		c.logger.Debug("ignoring unknown event")
	}
}

// reduceJobs applies the per-item decision rule: inline payloads merge
// directly, bare ids trigger an async single-job re-fetch. Items are
// independent; one failed fetch never blocks the rest.
func (c *Context) reduceJobs(ctx context.Context, ev Event) {
	if ev.Action == ActionDelete {
		// Deletion acknowledgement from the backend queue.
		for _, id := range decodeIDs(ev.Payload) {
			c.Jobs.Remove(id)
		}
		return
	}

	for _, item := range decodeJobs(ev.Payload) {
		if item.ProgressValue != nil {
			status := models.ParseJobStatus(item.Status)
			now := c.now()
			rec, terminal := c.Jobs.ApplyInline(item.JobID, models.JobUpdate{
				Status:          &status,
				ProgressValue:   item.ProgressValue,
				ProgressMax:     &item.ProgressMax,
				ProgressMessage: &item.ProgressMessage,
				LastRun:         &now,
			})
			if terminal {
				c.recordTerminal(rec)
			}
			continue
		}
		c.refetchJob(ctx, item.JobID)
	}
}

// refetchJob fetches a single job record in the background and merges the
// result. Failures are logged and skipped; an empty result means the job
// vanished server-side and is silently dropped.
func (c *Context) refetchJob(ctx context.Context, id int64) {
	if c.api == nil {
		c.logger.Warn("no job fetcher configured, skipping re-fetch", "job_id", id)
		return
	}

	c.fetches.Add(1)
	go func() {
		defer c.fetches.Done()

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				c.logger.Debug("job re-fetch cancelled", "job_id", id, "error", err)
				return
			}
		}

		update, err := c.api.FetchJob(ctx, id)
		if err != nil {
			c.logger.Warn("job re-fetch failed", "job_id", id, "error", err)
			return
		}
		if update == nil {
			c.logger.Debug("job no longer exists server-side", "job_id", id)
			return
		}

		rec, terminal := c.Jobs.ApplyFetched(id, *update)
		if terminal {
			c.recordTerminal(rec)
		}
	}()
}
