// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/subwatch/internal/models"
)

// MockJobAPI is a test double for the backend job API surface.
type MockJobAPI struct {
	mu         sync.Mutex
	Updates    map[int64]*models.JobUpdate
	BadgeCount models.Badges
	Err        error

	fetched []int64
	deleted []int64
}

func (m *MockJobAPI) FetchJob(ctx context.Context, id int64) (*models.JobUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, id)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Updates[id], nil
}

func (m *MockJobAPI) DeleteJob(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return m.Err
}

func (m *MockJobAPI) Badges(ctx context.Context) (*models.Badges, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	badges := m.BadgeCount
	return &badges, nil
}

// Fetched returns the job ids fetched so far, in call order.
func (m *MockJobAPI) Fetched() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.fetched...)
}

// Deleted returns the job ids deleted so far, in call order.
func (m *MockJobAPI) Deleted() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.deleted...)
}

// MockJournal records appended job history entries.
type MockJournal struct {
	mu      sync.Mutex
	Err     error
	Entries []models.JobRecord
}

func (m *MockJournal) Append(record models.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, record)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

// DiscardBody wraps a reader so mocked HTTP responses satisfy io.ReadCloser.
func DiscardBody(r io.Reader) io.ReadCloser {
	return io.NopCloser(r)
}
