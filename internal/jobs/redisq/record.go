package redisq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/abdelatifsd/Adjacent/internal/jobs"
)

const (
	keyPrefix = "adjacent:job:"

	fieldID        = "id"
	fieldType      = "type"
	fieldStatus    = "status"
	fieldPayload   = "payload"
	fieldTimeout   = "timeout_seconds"
	fieldEnqueued  = "enqueued_at"
	fieldStarted   = "started_at"
	fieldEnded     = "ended_at"
	fieldResult    = "result"
	fieldError     = "error"
	timestampShape = time.RFC3339Nano
)

func jobKey(id string) string { return keyPrefix + id }

// record is the hash stored per job.
type record struct {
	ID      string
	Type    string
	Status  jobs.Status
	Payload jobs.InferencePayload
	Timeout time.Duration
	Result  *jobs.InferenceResult
	Error   string
}

func newRecord(id string, payload jobs.InferencePayload, timeout time.Duration) record {
	return record{
		ID:      id,
		Type:    jobs.TypeInferEdges,
		Status:  jobs.StatusQueued,
		Payload: payload,
		Timeout: timeout,
	}
}

func (r record) fields(now time.Time) (map[string]any, error) {
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return map[string]any{
		fieldID:       r.ID,
		fieldType:     r.Type,
		fieldStatus:   string(r.Status),
		fieldPayload:  string(raw),
		fieldTimeout:  strconv.FormatFloat(r.Timeout.Seconds(), 'f', -1, 64),
		fieldEnqueued: now.UTC().Format(timestampShape),
	}, nil
}

func parseRecord(h map[string]string) (record, error) {
	r := record{
		ID:     h[fieldID],
		Type:   h[fieldType],
		Status: jobs.Status(h[fieldStatus]),
		Error:  h[fieldError],
	}
	if r.Type == "" {
		r.Type = jobs.TypeInferEdges
	}
	if s := h[fieldTimeout]; s != "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return r, fmt.Errorf("bad %s %q: %w", fieldTimeout, s, err)
		}
		r.Timeout = time.Duration(secs * float64(time.Second))
	}
	if s := h[fieldPayload]; s != "" {
		if err := json.Unmarshal([]byte(s), &r.Payload); err != nil {
			return r, fmt.Errorf("decode payload: %w", err)
		}
	}
	if s := h[fieldResult]; s != "" {
		var res jobs.InferenceResult
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return r, fmt.Errorf("decode result: %w", err)
		}
		r.Result = &res
	}
	return r, nil
}

func (r record) info() jobs.JobInfo {
	info := jobs.JobInfo{JobID: r.ID, Status: r.Status, Error: r.Error}
	if r.Status.Terminal() {
		info.Result = r.Result
	}
	return info
}

// completion builds the fields written when a job leaves the running state.
// A failed job keeps any partial result the handler produced.
func completion(res *jobs.InferenceResult, runErr error, now time.Time) (map[string]any, error) {
	f := map[string]any{
		fieldEnded:  now.UTC().Format(timestampShape),
		fieldStatus: string(jobs.StatusFinished),
	}
	if runErr != nil {
		f[fieldStatus] = string(jobs.StatusFailed)
		f[fieldError] = runErr.Error()
	}
	if res != nil {
		raw, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		f[fieldResult] = string(raw)
	}
	return f, nil
}
