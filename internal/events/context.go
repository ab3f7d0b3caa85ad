package events

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subwatch/internal/jobcache"
	"github.com/desertthunder/subwatch/internal/models"
	"github.com/desertthunder/subwatch/internal/readcache"
	"github.com/desertthunder/subwatch/internal/shared"
	"golang.org/x/time/rate"
)

// JobFetcher is the collaborator REST operation used when a `jobs` event
// carries a bare id instead of inline state. A (nil, nil) return means the
// job no longer exists server-side and is silently skipped.
type JobFetcher interface {
	FetchJob(ctx context.Context, id int64) (*models.JobUpdate, error)
}

// Journal records terminal job transitions. Implementations are
// best-effort; errors are logged, never surfaced.
type Journal interface {
	Append(rec models.JobRecord) error
}

// Flags holds the process-wide connectivity state readable by UI
// components: the online flag and the fatal "cannot reach backend" banner.
type Flags struct {
	mu     sync.RWMutex
	online bool
	fatal  string
}

func (f *Flags) MarkOnline() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = true
	f.fatal = ""
}

func (f *Flags) MarkOffline() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = false
}

func (f *Flags) RaiseFatal(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = false
	f.fatal = msg
}

func (f *Flags) Online() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.online
}

// Fatal returns the banner message and whether one is raised.
func (f *Flags) Fatal() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fatal, f.fatal != ""
}

// maxNotices bounds the transient notification list.
const maxNotices = 20

// Notices is the bounded list of transient backend notifications.
type Notices struct {
	mu    sync.Mutex
	items []models.Notification
}

// Push appends a notification, dropping the oldest past the bound.
func (n *Notices) Push(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, models.Notification{
		ID:        shared.GenerateID(),
		Text:      text,
		CreatedAt: time.Now(),
	})
	if len(n.items) > maxNotices {
		n.items = n.items[len(n.items)-maxNotices:]
	}
}

// Clear drops all queued notifications. Called when the channel errors,
// since pending notices are stale once the backend is unreachable.
func (n *Notices) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = nil
}

// List returns a copy of the current notifications, oldest first.
func (n *Notices) List() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Context is the single-instance state every reducer mutates: the job
// record cache, the read cache, connectivity flags, and the collaborator
// handles. It is constructed once at startup and injected rather than
// reached into as a global, so tests can build isolated instances.
type Context struct {
	Jobs    *jobcache.Cache
	Reads   *readcache.Cache
	Flags   *Flags
	Notices *Notices

	api     JobFetcher
	journal Journal
	limiter *rate.Limiter
	logger  *log.Logger

	now     func() time.Time
	fetches sync.WaitGroup
}

// ContextOpts configures a reducer [Context]. API is required for the
// `jobs` re-fetch path; Journal and Limiter are optional.
type ContextOpts struct {
	Jobs    *jobcache.Cache
	Reads   *readcache.Cache
	API     JobFetcher
	Journal Journal
	Limiter *rate.Limiter
	Logger  *log.Logger
}

// NewContext assembles the process-wide reducer state.
func NewContext(opts ContextOpts) *Context {
	if opts.Jobs == nil {
		opts.Jobs = jobcache.New(jobcache.DefaultCapacity, opts.Logger)
	}
	if opts.Reads == nil {
		opts.Reads = readcache.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Context{
		Jobs:    opts.Jobs,
		Reads:   opts.Reads,
		Flags:   &Flags{},
		Notices: &Notices{},
		api:     opts.API,
		journal: opts.Journal,
		limiter: opts.Limiter,
		logger:  opts.Logger,
		now:     time.Now,
	}
}

// Flush waits for all in-flight job re-fetches to settle. Used by the
// shutdown path and by tests; event processing never blocks on it.
func (c *Context) Flush() {
	c.fetches.Wait()
}

// recordTerminal journals a job that just entered a terminal status.
// Best-effort: failures are logged and ignored.
func (c *Context) recordTerminal(rec models.JobRecord) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(rec); err != nil {
		c.logger.Warn("failed to journal job transition", "job_id", rec.JobID, "error", err)
	}
}
