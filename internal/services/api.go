package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/subwatch/internal/models"
	"github.com/desertthunder/subwatch/internal/shared"
)

// APIService provides methods for calling the backend REST API.
type APIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the backend.
func NewAPIService(baseURL, apiKey string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:6767"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := a.request(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// jobRow is the wire shape of one row in the backend's jobs envelope.
// Pointer fields distinguish absent from zero so merges don't clobber
// prior record values.
type jobRow struct {
	JobID           int64    `json:"job_id"`
	JobName         string   `json:"job_name"`
	Status          string   `json:"status"`
	ProgressValue   *float64 `json:"progress_value"`
	ProgressMax     *float64 `json:"progress_max"`
	ProgressMessage *string  `json:"progress_message"`
}

// jobsEnvelope wraps the backend's data array.
type jobsEnvelope struct {
	Data []jobRow `json:"data"`
}

// toUpdate converts a fetched row into a partial record update.
func (r jobRow) toUpdate(now time.Time) models.JobUpdate {
	status := models.ParseJobStatus(r.Status)
	update := models.JobUpdate{
		Status:          &status,
		ProgressValue:   r.ProgressValue,
		ProgressMax:     r.ProgressMax,
		ProgressMessage: r.ProgressMessage,
		LastRun:         &now,
	}
	if update.ProgressMessage == nil && r.JobName != "" {
		update.ProgressMessage = &r.JobName
	}
	return update
}

// toRecord converts a fetched row into a full record for listing.
func (r jobRow) toRecord() models.JobRecord {
	rec := models.JobRecord{
		JobID:           r.JobID,
		Status:          models.ParseJobStatus(r.Status),
		ProgressMessage: r.JobName,
	}
	if r.ProgressValue != nil {
		rec.ProgressValue = *r.ProgressValue
	}
	if r.ProgressMax != nil {
		rec.ProgressMax = *r.ProgressMax
	}
	if r.ProgressMessage != nil && *r.ProgressMessage != "" {
		rec.ProgressMessage = *r.ProgressMessage
	}
	return rec
}

// FetchJob retrieves a single job by id. Returns (nil, nil) when the job no
// longer exists server-side; callers skip it silently per the eventual
// consistency contract.
func (a *APIService) FetchJob(ctx context.Context, id int64) (*models.JobUpdate, error) {
	env, err := a.fetchJobs(ctx, fmt.Sprintf("/api/system/jobs?id=%d", id))
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, nil
	}

	update := env.Data[0].toUpdate(time.Now())
	return &update, nil
}

// ListJobs retrieves all jobs currently known to the backend queue.
func (a *APIService) ListJobs(ctx context.Context) ([]models.JobRecord, error) {
	env, err := a.fetchJobs(ctx, "/api/system/jobs")
	if err != nil {
		return nil, err
	}

	records := make([]models.JobRecord, 0, len(env.Data))
	for _, row := range env.Data {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// DeleteJob removes a pending job from the backend queue.
func (a *APIService) DeleteJob(ctx context.Context, id int64) error {
	req, err := a.request(ctx, http.MethodDelete, fmt.Sprintf("/api/system/jobs?id=%d", id))
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: id %d", shared.ErrJobNotFound, id)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}

// Badges retrieves the backend's header counters.
func (a *APIService) Badges(ctx context.Context) (*models.Badges, error) {
	resp, err := a.Get(ctx, "/api/badges")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var badges models.Badges
	if err := json.Unmarshal(resp.Body, &badges); err != nil {
		return nil, fmt.Errorf("failed to decode badges response: %w", err)
	}
	return &badges, nil
}

// Health checks whether the backend answers at all.
func (a *APIService) Health(ctx context.Context) error {
	resp, err := a.Get(ctx, "/api/system/status")
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

func (a *APIService) fetchJobs(ctx context.Context, path string) (*jobsEnvelope, error) {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var env jobsEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode jobs response: %w", err)
	}
	return &env, nil
}

func (a *APIService) request(ctx context.Context, method, path string) (*http.Request, error) {
	fullURL := a.baseURL + path
	if _, err := url.Parse(fullURL); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-KEY", a.apiKey)
	}
	return req, nil
}
