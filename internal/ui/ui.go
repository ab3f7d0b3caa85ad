package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/subwatch/internal/events"
	"github.com/desertthunder/subwatch/internal/models"
	"github.com/desertthunder/subwatch/internal/socket"
	"github.com/desertthunder/subwatch/internal/tasks"
)

// refreshInterval is how often the dashboard re-reads the caches. The push
// channel keeps the caches fresh in the background; the ticker only controls
// how often the screen reflects them.
const refreshInterval = 500 * time.Millisecond

// statusOrder fixes the display order of status groups.
var statusOrder = []models.JobStatus{
	models.StatusRunning,
	models.StatusPending,
	models.StatusFailed,
	models.StatusCompleted,
	models.StatusUnknown,
}

// JobAPI is the backend surface the dashboard drives directly.
type JobAPI interface {
	DeleteJob(ctx context.Context, id int64) error
	Badges(ctx context.Context) (*models.Badges, error)
}

// tickMsg drives the periodic cache re-read.
type tickMsg time.Time

// badgesMsg carries a refreshed badge count fetch.
type badgesMsg struct {
	badges *models.Badges
	err    error
}

// Model represents the dashboard state.
type Model struct {
	ctx        context.Context
	reducer    *events.Context
	listener   *socket.Listener
	dispatcher *tasks.Dispatcher
	api        JobAPI

	width          int
	height         int
	jobList        list.Model
	help           help.Model
	keys           keyMap
	showHelp       bool
	badges         *models.Badges
	fetchingBadges bool
	err            error
}

// NewModel creates a new dashboard model with the provided dependencies.
func NewModel(ctx context.Context, reducer *events.Context, listener *socket.Listener, dispatcher *tasks.Dispatcher, api JobAPI) *Model {
	jobList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	jobList.Title = "Jobs"
	jobList.SetShowHelp(false)
	jobList.SetShowStatusBar(false)

	return &Model{
		ctx:        ctx,
		reducer:    reducer,
		listener:   listener,
		dispatcher: dispatcher,
		api:        api,
		jobList:    jobList,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the refresh ticker.
func (m *Model) Init() tea.Cmd {
	m.refresh()
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.jobList.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "d":
			return m, m.deleteSelected()
		case "c":
			m.reducer.Notices.Clear()
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}

	case tickMsg:
		m.refresh()
		cmds := []tea.Cmd{tick()}
		if cmd := m.refreshBadges(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case badgesMsg:
		m.fetchingBadges = false
		if msg.err == nil && msg.badges != nil {
			m.badges = msg.badges
			m.reducer.Reads.Set(models.TargetOf(models.KindBadges), msg.badges)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.jobList, cmd = m.jobList.Update(msg)
	return m, cmd
}

// refresh re-reads the job cache into the list, preserving the cursor.
func (m *Model) refresh() {
	snapshot := m.reducer.Jobs.Snapshot()

	var items []list.Item
	for _, status := range statusOrder {
		for _, record := range snapshot[status] {
			items = append(items, jobItem{record: record})
		}
	}

	index := m.jobList.Index()
	m.jobList.SetItems(items)
	if index < len(items) {
		m.jobList.Select(index)
	}
}

// refreshBadges re-fetches the header counters when their read-cache entry
// is stale. Invalidation arrives through the `badges` push event; while the
// cached entry is fresh this is a no-op.
func (m *Model) refreshBadges() tea.Cmd {
	if m.fetchingBadges {
		return nil
	}
	if _, fresh := m.reducer.Reads.Get(models.TargetOf(models.KindBadges)); fresh {
		return nil
	}

	m.fetchingBadges = true
	return func() tea.Msg {
		badges, err := m.api.Badges(m.ctx)
		return badgesMsg{badges: badges, err: err}
	}
}

// deleteSelected asks the backend to drop the selected pending job. The
// deletion runs through the dispatcher so shutdown waits for it; the cache
// entry itself is removed by the delete acknowledgment on the push channel.
func (m *Model) deleteSelected() tea.Cmd {
	selected := m.jobList.SelectedItem()
	item, ok := selected.(jobItem)
	if !ok {
		return nil
	}
	if item.record.Status.Terminal() {
		m.reducer.Notices.Push(fmt.Sprintf("job %d already finished", item.record.JobID))
		return nil
	}

	id := item.record.JobID
	m.dispatcher.Enqueue("jobs", fmt.Sprintf("delete job %d", id), func(ctx context.Context) error {
		return m.api.DeleteJob(ctx, id)
	})
	m.reducer.Notices.Push(fmt.Sprintf("requested deletion of job %d", id))
	return nil
}

// View renders the dashboard.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.jobList.View())
	b.WriteString("\n")
	b.WriteString(m.renderNotices())
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("subwatch")

	var state string
	switch m.listener.State() {
	case socket.Connected:
		state = styles.ok.Render("● connected")
	case socket.Errored:
		state = styles.err.Render("● errored")
	default:
		state = styles.warn.Render("● disconnected")
	}

	header := fmt.Sprintf("%s  %s", title, state)
	if m.badges != nil {
		header += styles.help.Render(fmt.Sprintf("   wanted: %d episodes, %d movies", m.badges.Episodes, m.badges.Movies))
	}
	if banner, raised := m.reducer.Flags.Fatal(); raised {
		header += "\n" + styles.banner.Render(banner)
	}
	return header
}

func (m *Model) renderNotices() string {
	notices := m.reducer.Notices.List()
	if len(notices) == 0 {
		return ""
	}

	// Show the most recent few, newest last.
	start := 0
	if len(notices) > 3 {
		start = len(notices) - 3
	}

	var b strings.Builder
	for _, notice := range notices[start:] {
		b.WriteString(styles.help.Render("• "+notice.Text) + "\n")
	}
	return b.String()
}
