package events

import (
	"encoding/json"
	"strconv"
)

// JobPayload is one item of a `jobs` event. A nil ProgressValue means the
// server chose not to embed full state; the client must re-fetch the job.
type JobPayload struct {
	JobID           int64    `json:"job_id"`
	Status          string   `json:"status"`
	ProgressValue   *float64 `json:"progress_value"`
	ProgressMax     float64  `json:"progress_max"`
	ProgressMessage string   `json:"progress_message"`
}

// decodeIDs extracts entity ids from a payload that may be a single number,
// a numeric string, or an array of either. Malformed items are dropped
// silently; a reducer never fails on a bad payload.
func decodeIDs(raw json.RawMessage) []int64 {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}

	ids := make([]int64, 0, len(list))
	for _, item := range list {
		if id, ok := decodeID(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func decodeID(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// decodeStrings extracts notification texts from a payload that may be a
// single string or an array of strings.
func decodeStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

// decodeJobs extracts job items from a payload that may be a single object
// or an ordered array of objects.
func decodeJobs(raw json.RawMessage) []JobPayload {
	if len(raw) == 0 {
		return nil
	}

	var list []JobPayload
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one JobPayload
	if err := json.Unmarshal(raw, &one); err == nil {
		return []JobPayload{one}
	}
	return nil
}
