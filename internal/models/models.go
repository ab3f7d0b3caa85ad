package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a background job as reported by the backend.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusUnknown   JobStatus = "unknown"
)

// ParseJobStatus maps a wire status string to a [JobStatus].
// Unrecognized values become [StatusUnknown] rather than an error.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return JobStatus(s)
	default:
		return StatusUnknown
	}
}

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobRecord is the client-side view of one backend background job.
// The JobID is the identity: records are merged in place, never duplicated.
type JobRecord struct {
	JobID           int64     `json:"job_id"`
	Status          JobStatus `json:"status"`
	ProgressValue   float64   `json:"progress_value"`
	ProgressMax     float64   `json:"progress_max"`
	ProgressMessage string    `json:"progress_message,omitempty"`
	LastRun         time.Time `json:"last_run"`
}

// Percent returns display progress in [0, 100].
// ProgressMax == 0 with a completed status means "fully done, no granular
// progress was reported" and renders as 100%.
func (r JobRecord) Percent() float64 {
	if r.ProgressMax == 0 {
		if r.Status == StatusCompleted {
			return 100
		}
		return 0
	}
	pct := r.ProgressValue / r.ProgressMax * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// AsUpdate converts a full record into an update touching every field,
// stamped with the given observation time.
func (r JobRecord) AsUpdate(observed time.Time) JobUpdate {
	status := r.Status
	value := r.ProgressValue
	max := r.ProgressMax
	message := r.ProgressMessage
	return JobUpdate{
		Status:          &status,
		ProgressValue:   &value,
		ProgressMax:     &max,
		ProgressMessage: &message,
		LastRun:         &observed,
	}
}

// JobUpdate is a partial job state carried by a push payload or a re-fetch
// response. Nil fields were absent from the source and must not overwrite
// the prior record value.
type JobUpdate struct {
	Status          *JobStatus
	ProgressValue   *float64
	ProgressMax     *float64
	ProgressMessage *string
	LastRun         *time.Time
}

// Merge applies the non-nil fields of the update to the record, field-level
// last-write-wins.
func (u JobUpdate) Merge(r *JobRecord) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.ProgressValue != nil {
		r.ProgressValue = *u.ProgressValue
	}
	if u.ProgressMax != nil {
		r.ProgressMax = *u.ProgressMax
	}
	if u.ProgressMessage != nil {
		r.ProgressMessage = *u.ProgressMessage
	}
	if u.LastRun != nil {
		r.LastRun = *u.LastRun
	}
}

// EntityKind identifies a logical backend resource held in the read cache.
type EntityKind string

const (
	KindSeries           EntityKind = "series"
	KindMovie            EntityKind = "movie"
	KindEpisode          EntityKind = "episode"
	KindSystemSettings   EntityKind = "system-settings"
	KindLanguages        EntityKind = "language-list"
	KindBadges           EntityKind = "badge-counts"
	KindJobList          EntityKind = "job-list"
	KindEpisodeHistory   EntityKind = "episode-history"
	KindMovieHistory     EntityKind = "movie-history"
	KindEpisodeBlacklist EntityKind = "episode-blacklist"
	KindMovieBlacklist   EntityKind = "movie-blacklist"
	KindEpisodeWanted    EntityKind = "episode-wanted"
	KindMovieWanted      EntityKind = "movie-wanted"
)

// Target is a read-cache invalidation key: an entity kind plus an optional
// entity id. It carries no payload, only the "refresh before next use" signal.
type Target struct {
	Kind  EntityKind
	ID    int64
	HasID bool
}

// TargetOf builds an id-less target covering the whole entity kind.
func TargetOf(kind EntityKind) Target {
	return Target{Kind: kind}
}

// TargetFor builds a target scoped to a single entity id.
func TargetFor(kind EntityKind, id int64) Target {
	return Target{Kind: kind, ID: id, HasID: true}
}

// Key returns a stable string form usable as a map key.
func (t Target) Key() string {
	if t.HasID {
		return fmt.Sprintf("%s/%d", t.Kind, t.ID)
	}
	return string(t.Kind)
}

// Badges are the backend's header counters: wanted episodes and movies,
// failing providers, and pending status announcements.
type Badges struct {
	Episodes  int64 `json:"episodes"`
	Movies    int64 `json:"movies"`
	Providers int64 `json:"providers"`
	Status    int64 `json:"status"`
}

// Notification is a transient, user-visible message pushed by the backend.
type Notification struct {
	ID        string
	Text      string
	CreatedAt time.Time
}
