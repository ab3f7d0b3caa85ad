package jobcache

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/subwatch/internal/models"
)

func statusPtr(s models.JobStatus) *models.JobStatus { return &s }
func floatPtr(f float64) *float64                    { return &f }
func strPtr(s string) *string                        { return &s }
func timePtr(t time.Time) *time.Time                 { return &t }

func TestCache_Apply(t *testing.T) {
	t.Run("creates record on first sighting", func(t *testing.T) {
		c := New(10, nil)

		rec, _ := c.ApplyInline(42, models.JobUpdate{
			Status:        statusPtr(models.StatusRunning),
			ProgressValue: floatPtr(5),
			ProgressMax:   floatPtr(10),
		})

		if rec.JobID != 42 {
			t.Errorf("expected job id 42, got %d", rec.JobID)
		}
		if rec.Status != models.StatusRunning {
			t.Errorf("expected status running, got %s", rec.Status)
		}
		if rec.ProgressValue != 5 || rec.ProgressMax != 10 {
			t.Errorf("expected progress 5/10, got %v/%v", rec.ProgressValue, rec.ProgressMax)
		}
		if c.Len() != 1 {
			t.Errorf("expected one record, got %d", c.Len())
		}
	})

	t.Run("merges field-level last write wins", func(t *testing.T) {
		c := New(10, nil)

		c.ApplyInline(7, models.JobUpdate{
			Status:          statusPtr(models.StatusRunning),
			ProgressValue:   floatPtr(1),
			ProgressMax:     floatPtr(4),
			ProgressMessage: strPtr("searching providers"),
		})
		c.ApplyFetched(7, models.JobUpdate{
			ProgressValue: floatPtr(3),
		})

		rec, ok := c.Get(7)
		if !ok {
			t.Fatal("expected record for job 7")
		}
		if rec.ProgressValue != 3 {
			t.Errorf("expected progress value 3, got %v", rec.ProgressValue)
		}
		if rec.ProgressMessage != "searching providers" {
			t.Errorf("absent fields must keep prior values, got %q", rec.ProgressMessage)
		}
		if rec.Status != models.StatusRunning {
			t.Errorf("absent status must keep prior value, got %s", rec.Status)
		}
		if c.Len() != 1 {
			t.Errorf("expected no duplicate records, got %d", c.Len())
		}
	})

	t.Run("reports terminal transitions", func(t *testing.T) {
		c := New(10, nil)

		_, transitioned := c.ApplyInline(1, models.JobUpdate{Status: statusPtr(models.StatusRunning)})
		if transitioned {
			t.Error("running is not a terminal transition")
		}

		_, transitioned = c.ApplyInline(1, models.JobUpdate{Status: statusPtr(models.StatusCompleted)})
		if !transitioned {
			t.Error("completed should report a terminal transition")
		}

		_, transitioned = c.ApplyInline(1, models.JobUpdate{ProgressValue: floatPtr(1)})
		if transitioned {
			t.Error("repeat update in terminal status should not re-report")
		}
	})

	t.Run("idempotent replay", func(t *testing.T) {
		c := New(10, nil)
		update := models.JobUpdate{
			Status:        statusPtr(models.StatusRunning),
			ProgressValue: floatPtr(2),
			ProgressMax:   floatPtr(8),
		}

		c.ApplyInline(9, update)
		first := c.Snapshot()
		c.ApplyInline(9, update)
		second := c.Snapshot()

		if !reflect.DeepEqual(first, second) {
			t.Errorf("replaying an identical payload must not change the snapshot:\n%v\n%v", first, second)
		}
		if c.Len() != 1 {
			t.Errorf("expected one record after replay, got %d", c.Len())
		}
	})
}

func TestCache_Eviction(t *testing.T) {
	t.Run("bounds record count", func(t *testing.T) {
		c := New(100, nil)

		for i := 0; i < 150; i++ {
			c.ApplyInline(int64(i), models.JobUpdate{Status: statusPtr(models.StatusPending)})
		}

		if c.Len() != 100 {
			t.Errorf("expected count capped at 100, got %d", c.Len())
		}

		// Exactly the 50 oldest-inserted records are gone.
		for i := 0; i < 50; i++ {
			if _, ok := c.Get(int64(i)); ok {
				t.Errorf("expected job %d to be evicted", i)
			}
		}
		for i := 50; i < 150; i++ {
			if _, ok := c.Get(int64(i)); !ok {
				t.Errorf("expected job %d to survive", i)
			}
		}
	})

	t.Run("eviction is insertion order not recency", func(t *testing.T) {
		c := New(2, nil)

		c.ApplyInline(1, models.JobUpdate{Status: statusPtr(models.StatusRunning)})
		c.ApplyInline(2, models.JobUpdate{Status: statusPtr(models.StatusRunning)})
		// Touching job 1 does not move it out of eviction position.
		c.ApplyInline(1, models.JobUpdate{ProgressValue: floatPtr(1)})
		c.ApplyInline(3, models.JobUpdate{Status: statusPtr(models.StatusRunning)})

		if _, ok := c.Get(1); ok {
			t.Error("job 1 was inserted first and should be evicted")
		}
		if _, ok := c.Get(2); !ok {
			t.Error("job 2 should survive")
		}
		if _, ok := c.Get(3); !ok {
			t.Error("job 3 should survive")
		}
	})

	t.Run("default capacity", func(t *testing.T) {
		c := New(0, nil)
		for i := 0; i < DefaultCapacity+1; i++ {
			c.ApplyInline(int64(i), models.JobUpdate{Status: statusPtr(models.StatusPending)})
		}
		if c.Len() != DefaultCapacity {
			t.Errorf("expected default capacity %d, got %d", DefaultCapacity, c.Len())
		}
	})
}

func TestCache_Remove(t *testing.T) {
	c := New(10, nil)

	c.ApplyInline(5, models.JobUpdate{Status: statusPtr(models.StatusPending)})
	c.Remove(5)

	if _, ok := c.Get(5); ok {
		t.Error("removed record should be gone")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}

	// Removing an unknown id is a no-op.
	c.Remove(99)
}

func TestCache_Snapshot(t *testing.T) {
	c := New(10, nil)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []models.JobStatus{
		models.StatusRunning, models.StatusRunning, models.StatusCompleted,
	} {
		c.ApplyInline(int64(i+1), models.JobUpdate{
			Status:  statusPtr(status),
			LastRun: timePtr(base.Add(time.Duration(i) * time.Minute)),
		})
	}

	snap := c.Snapshot()

	running := snap[models.StatusRunning]
	if len(running) != 2 {
		t.Fatalf("expected two running records, got %d", len(running))
	}
	if !running[0].LastRun.After(running[1].LastRun) {
		t.Error("records within a group should be sorted latest first")
	}
	if len(snap[models.StatusCompleted]) != 1 {
		t.Errorf("expected one completed record, got %d", len(snap[models.StatusCompleted]))
	}

	// Snapshot is a copy: mutating it does not affect the cache.
	running[0].ProgressMessage = "mutated"
	rec, _ := c.Get(running[0].JobID)
	if rec.ProgressMessage == "mutated" {
		t.Error("snapshot should be isolated from cache state")
	}
}

func TestRecord_Percent(t *testing.T) {
	tc := []struct {
		name string
		rec  models.JobRecord
		want float64
	}{
		{"half done", models.JobRecord{ProgressValue: 5, ProgressMax: 10, Status: models.StatusRunning}, 50},
		{"no max while running", models.JobRecord{ProgressMax: 0, Status: models.StatusRunning}, 0},
		{"completed with no granular progress", models.JobRecord{ProgressMax: 0, Status: models.StatusCompleted}, 100},
		{"overshoot clamps", models.JobRecord{ProgressValue: 12, ProgressMax: 10, Status: models.StatusRunning}, 100},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Percent(); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkCacheApply(b *testing.B) {
	c := New(100, nil)
	for i := 0; i < b.N; i++ {
		c.ApplyInline(int64(i%200), models.JobUpdate{
			Status:        statusPtr(models.StatusRunning),
			ProgressValue: floatPtr(float64(i)),
		})
	}
	_ = fmt.Sprintf("%d", c.Len())
}
