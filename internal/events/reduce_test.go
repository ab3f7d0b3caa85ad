package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/desertthunder/subwatch/internal/jobcache"
	"github.com/desertthunder/subwatch/internal/models"
	"github.com/desertthunder/subwatch/internal/readcache"
)

// mockFetcher is a test double for the single-job fetch collaborator.
type mockFetcher struct {
	mu      sync.Mutex
	calls   []int64
	updates map[int64]*models.JobUpdate
	err     error
}

func (m *mockFetcher) FetchJob(ctx context.Context, id int64) (*models.JobUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, id)
	if m.err != nil {
		return nil, m.err
	}
	return m.updates[id], nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockJournal struct {
	mu   sync.Mutex
	recs []models.JobRecord
	err  error
}

func (m *mockJournal) Append(rec models.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func newTestContext(fetcher JobFetcher, journal Journal) *Context {
	return NewContext(ContextOpts{
		Jobs:    jobcache.New(100, nil),
		Reads:   readcache.New(),
		API:     fetcher,
		Journal: journal,
	})
}

func jobsEvent(action Action, payload string) Event {
	return Event{Kind: KindJobs, Action: action, Payload: json.RawMessage(payload)}
}

func TestReduce_Jobs(t *testing.T) {
	t.Run("inline payload merges without fetching", func(t *testing.T) {
		fetcher := &mockFetcher{}
		c := newTestContext(fetcher, nil)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 42, "progress_value": 5, "progress_max": 10, "status": "running"}]`))
		c.Flush()

		rec, ok := c.Jobs.Get(42)
		if !ok {
			t.Fatal("expected a record for job 42")
		}
		if rec.Status != models.StatusRunning || rec.ProgressValue != 5 || rec.ProgressMax != 10 {
			t.Errorf("unexpected record: %+v", rec)
		}
		if c.Jobs.Len() != 1 {
			t.Errorf("expected exactly one record, got %d", c.Jobs.Len())
		}
		if fetcher.callCount() != 0 {
			t.Errorf("inline payload must not trigger a fetch, got %d calls", fetcher.callCount())
		}
	})

	t.Run("bare id triggers exactly one fetch", func(t *testing.T) {
		status := models.StatusCompleted
		fetcher := &mockFetcher{updates: map[int64]*models.JobUpdate{
			7: {Status: &status},
		}}
		c := newTestContext(fetcher, nil)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 7, "progress_value": null, "status": "running"}]`))
		c.Flush()

		if fetcher.callCount() != 1 {
			t.Fatalf("expected exactly one fetch, got %d", fetcher.callCount())
		}
		rec, ok := c.Jobs.Get(7)
		if !ok {
			t.Fatal("expected a record for job 7 after fetch")
		}
		if rec.Status != models.StatusCompleted {
			t.Errorf("expected fetched status to apply, got %s", rec.Status)
		}
	})

	t.Run("fetch returning no rows is silently skipped", func(t *testing.T) {
		fetcher := &mockFetcher{updates: map[int64]*models.JobUpdate{}}
		c := newTestContext(fetcher, nil)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 7, "progress_value": null}]`))
		c.Flush()

		if fetcher.callCount() != 1 {
			t.Fatalf("expected one fetch, got %d", fetcher.callCount())
		}
		if c.Jobs.Len() != 0 {
			t.Errorf("cache must stay unchanged when the job vanished, got %d records", c.Jobs.Len())
		}
	})

	t.Run("failed fetch does not block other items", func(t *testing.T) {
		fetcher := &mockFetcher{err: errors.New("backend down")}
		c := newTestContext(fetcher, nil)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 1, "progress_value": null},
			  {"job_id": 2, "progress_value": 3, "progress_max": 6, "status": "running"}]`))
		c.Flush()

		if _, ok := c.Jobs.Get(2); !ok {
			t.Error("inline item should apply despite the failed fetch of another item")
		}
		if _, ok := c.Jobs.Get(1); ok {
			t.Error("failed fetch must leave no record behind")
		}
	})

	t.Run("delete removes the record", func(t *testing.T) {
		c := newTestContext(&mockFetcher{}, nil)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 3, "progress_value": 1, "progress_max": 2, "status": "pending"}]`))
		c.Reduce(context.Background(), jobsEvent(ActionDelete, `3`))

		if _, ok := c.Jobs.Get(3); ok {
			t.Error("deleted job should be gone from the cache")
		}
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		c := newTestContext(&mockFetcher{}, nil)
		payload := `[{"job_id": 9, "progress_value": 4, "progress_max": 8, "status": "running"}]`

		c.Reduce(context.Background(), jobsEvent(ActionUpdate, payload))
		first := c.Jobs.Snapshot()
		c.Reduce(context.Background(), jobsEvent(ActionUpdate, payload))
		second := c.Jobs.Snapshot()

		// LastRun moves with the clock; compare the rest field by field.
		if len(first) != len(second) {
			t.Fatalf("snapshot shape changed on replay: %v vs %v", first, second)
		}
		for status, group := range first {
			other := second[status]
			if len(group) != len(other) {
				t.Fatalf("group %s changed size on replay", status)
			}
			for i := range group {
				a, b := group[i], other[i]
				a.LastRun = b.LastRun
				if !reflect.DeepEqual(a, b) {
					t.Errorf("record drifted on replay: %+v vs %+v", group[i], other[i])
				}
			}
		}
	})

	t.Run("terminal transition reaches the journal", func(t *testing.T) {
		journal := &mockJournal{}
		c := newTestContext(&mockFetcher{}, journal)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 5, "progress_value": 2, "progress_max": 2, "status": "completed"}]`))
		c.Flush()

		journal.mu.Lock()
		defer journal.mu.Unlock()
		if len(journal.recs) != 1 || journal.recs[0].JobID != 5 {
			t.Errorf("expected one journal entry for job 5, got %v", journal.recs)
		}
	})

	t.Run("journal errors are absorbed", func(t *testing.T) {
		journal := &mockJournal{err: errors.New("disk full")}
		c := newTestContext(&mockFetcher{}, journal)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate,
			`[{"job_id": 5, "progress_value": 1, "progress_max": 1, "status": "failed"}]`))
		c.Flush()

		if _, ok := c.Jobs.Get(5); !ok {
			t.Error("cache update must survive a journal failure")
		}
	})

	t.Run("malformed payload is a no-op", func(t *testing.T) {
		fetcher := &mockFetcher{}
		c := newTestContext(fetcher, nil)

		c.Reduce(context.Background(), jobsEvent(ActionUpdate, `{"nonsense": true`))
		c.Flush()

		if c.Jobs.Len() != 0 || fetcher.callCount() != 0 {
			t.Error("malformed payload must not mutate anything")
		}
	})
}

func TestReduce_Invalidation(t *testing.T) {
	raw := func(s string) json.RawMessage { return json.RawMessage(s) }

	t.Run("series and movie ids", func(t *testing.T) {
		c := newTestContext(nil, nil)
		c.Reads.Set(models.TargetFor(models.KindSeries, 12), "cached")
		c.Reads.Set(models.TargetFor(models.KindMovie, 4), "cached")

		c.Reduce(context.Background(), Event{Kind: KindSeries, Payload: raw(`[12]`)})
		c.Reduce(context.Background(), Event{Kind: KindMovie, Action: ActionDelete, Payload: raw(`[4]`)})

		if _, ok := c.Reads.Get(models.TargetFor(models.KindSeries, 12)); ok {
			t.Error("series 12 should be stale")
		}
		if _, ok := c.Reads.Get(models.TargetFor(models.KindMovie, 4)); ok {
			t.Error("movie 4 should be stale on delete too")
		}
	})

	t.Run("episode resolves to parent series", func(t *testing.T) {
		c := newTestContext(nil, nil)
		c.Reads.SetEpisodeParent(101, 55)
		c.Reads.Set(models.TargetFor(models.KindSeries, 55), "cached")
		c.Reads.Set(models.TargetFor(models.KindEpisode, 101), "never used")

		c.Reduce(context.Background(), Event{Kind: KindEpisode, Payload: raw(`[101]`)})

		if _, ok := c.Reads.Get(models.TargetFor(models.KindSeries, 55)); ok {
			t.Error("parent series 55 should be stale")
		}
		if _, ok := c.Reads.Get(models.TargetFor(models.KindEpisode, 101)); !ok {
			t.Error("no direct episode target may be invalidated")
		}
	})

	t.Run("episode with unknown parent no-ops", func(t *testing.T) {
		c := newTestContext(nil, nil)
		c.Reduce(context.Background(), Event{Kind: KindEpisode, Payload: raw(`[999]`)})
	})

	t.Run("kind-level targets", func(t *testing.T) {
		cases := []struct {
			kind   Kind
			target models.EntityKind
		}{
			{KindSettings, models.KindSystemSettings},
			{KindLanguages, models.KindLanguages},
			{KindBadges, models.KindBadges},
			{KindMovieHistory, models.KindMovieHistory},
			{KindEpisodeHistory, models.KindEpisodeHistory},
			{KindMovieBlacklist, models.KindMovieBlacklist},
			{KindEpisodeBlacklist, models.KindEpisodeBlacklist},
			{KindEpisodeWanted, models.KindEpisodeWanted},
			{KindMovieWanted, models.KindMovieWanted},
			{KindResetEpisodeWanted, models.KindEpisodeWanted},
			{KindResetMovieWanted, models.KindMovieWanted},
			{KindTask, models.KindJobList},
		}

		for _, tt := range cases {
			t.Run(tt.kind.String(), func(t *testing.T) {
				c := newTestContext(nil, nil)
				c.Reads.Set(models.TargetOf(tt.target), "cached")

				c.Reduce(context.Background(), Event{Kind: tt.kind})

				if _, ok := c.Reads.Get(models.TargetOf(tt.target)); ok {
					t.Errorf("target %s should be stale after %s", tt.target, tt.kind)
				}
			})
		}
	})
}

func TestReduce_Connectivity(t *testing.T) {
	t.Run("connect marks online and clears the banner", func(t *testing.T) {
		c := newTestContext(nil, nil)
		c.Flags.RaiseFatal(FatalBanner)

		c.Reduce(context.Background(), Event{Kind: KindConnect})

		if !c.Flags.Online() {
			t.Error("process should be online after connect")
		}
		if _, raised := c.Flags.Fatal(); raised {
			t.Error("banner should clear on successful connect")
		}
	})

	t.Run("connect_error raises the banner and clears notices", func(t *testing.T) {
		c := newTestContext(nil, nil)
		c.Notices.Push("transient")

		c.Reduce(context.Background(), Event{Kind: KindConnectError})

		msg, raised := c.Flags.Fatal()
		if !raised || msg != FatalBanner {
			t.Errorf("expected fatal banner %q, got %q raised=%v", FatalBanner, msg, raised)
		}
		if len(c.Notices.List()) != 0 {
			t.Error("queued notices are stale after a channel error")
		}
	})

	t.Run("disconnect marks offline", func(t *testing.T) {
		c := newTestContext(nil, nil)
		c.Reduce(context.Background(), Event{Kind: KindConnect})
		c.Reduce(context.Background(), Event{Kind: KindDisconnect})

		if c.Flags.Online() {
			t.Error("process should be offline after disconnect")
		}
	})

	t.Run("message pushes notifications", func(t *testing.T) {
		c := newTestContext(nil, nil)

		c.Reduce(context.Background(), Event{Kind: KindMessage,
			Payload: json.RawMessage(`["subtitles downloaded", "scan finished"]`)})

		notices := c.Notices.List()
		if len(notices) != 2 {
			t.Fatalf("expected two notifications, got %d", len(notices))
		}
		if notices[0].Text != "subtitles downloaded" {
			t.Errorf("unexpected first notice: %q", notices[0].Text)
		}
	})
}

func TestParseKind(t *testing.T) {
	for name, want := range kindNames {
		kind, ok := ParseKind(name)
		if !ok || kind != want {
			t.Errorf("ParseKind(%q) = %v ok=%v", name, kind, ok)
		}
		if kind.String() != name {
			t.Errorf("String() round trip failed for %q, got %q", name, kind.String())
		}
	}

	if _, ok := ParseKind("no-such-event"); ok {
		t.Error("unknown names must not parse")
	}
}

func TestNoticesBound(t *testing.T) {
	n := &Notices{}
	for i := 0; i < maxNotices+10; i++ {
		n.Push(fmt.Sprintf("notice %d", i))
	}
	if len(n.List()) != maxNotices {
		t.Errorf("expected notices capped at %d, got %d", maxNotices, len(n.List()))
	}
}
