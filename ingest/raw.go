package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrake/jobrake/errors"
)

// RawStatus is a raw job's processing state
type RawStatus string

const (
	RawStatusPendingNormalization RawStatus = "pending_normalization"
	RawStatusNormalized           RawStatus = "normalized"
	RawStatusDuplicate            RawStatus = "duplicate"
	RawStatusRejected             RawStatus = "rejected"
	RawStatusNormalizationFailed  RawStatus = "normalization_failed"
)

// RawJob is one persisted as-fetched listing. It is immutable except for
// its processing status and the links to its normalized/published outputs.
type RawJob struct {
	ID              string          `json:"id"`
	ScrapeRunID     string          `json:"scrape_run_id"`
	BoardID         string          `json:"board_id"`
	Checksum        string          `json:"checksum"`
	Title           string          `json:"title"`
	SourceURL       string          `json:"source_url"`
	Payload         json.RawMessage `json:"payload"`
	Status          RawStatus       `json:"status"`
	StatusReason    string          `json:"status_reason,omitempty"`
	NormalizedJobID *string         `json:"normalized_job_id,omitempty"`
	JobPostID       *string         `json:"job_post_id,omitempty"`
	FetchedAt       time.Time       `json:"fetched_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newRawJobID() string {
	return "RJ_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewRawJob builds a pending raw job from one fetched record
func NewRawJob(runID, boardID string, rec Record) (*RawJob, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal record payload")
	}

	now := time.Now()
	return &RawJob{
		ID:          newRawJobID(),
		ScrapeRunID: runID,
		BoardID:     boardID,
		Checksum:    rec.Fingerprint(),
		Title:       rec.Title,
		SourceURL:   rec.URL,
		Payload:     payload,
		Status:      RawStatusPendingNormalization,
		FetchedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Record decodes the original fetched record from the stored payload
func (r *RawJob) Record() (Record, error) {
	var rec Record
	if err := json.Unmarshal(r.Payload, &rec); err != nil {
		return Record{}, errors.Wrapf(err, "failed to decode payload of raw job %s", r.ID)
	}
	return rec, nil
}
