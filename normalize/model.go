// Package normalize turns raw fetched listings into canonical normalized
// jobs using deterministic, rule-based extraction, and scores the result's
// data quality.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a normalized job's review state
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusLowQuality    Status = "low_quality"
)

// Experience levels inferred from title and description
const (
	ExperienceSenior     = "Senior"
	ExperienceJunior     = "Junior"
	ExperienceInternship = "Internship"
	ExperienceMid        = "Mid-level"
)

// NormalizedJob is the canonical representation of one listing
type NormalizedJob struct {
	ID              string     `json:"id"`
	RawJobID        string     `json:"raw_job_id"`
	BoardID         string     `json:"board_id"`
	Title           string     `json:"title"`
	Company         string     `json:"company,omitempty"`
	Location        string     `json:"location,omitempty"`
	Description     string     `json:"description,omitempty"`
	SourceURL       string     `json:"source_url"`
	SalaryMin       *float64   `json:"salary_min,omitempty"`
	SalaryMax       *float64   `json:"salary_max,omitempty"`
	SalaryCurrency  string     `json:"salary_currency"`
	JobType         string     `json:"job_type,omitempty"`
	ExperienceLevel string     `json:"experience_level"`
	Skills          []string   `json:"skills"`
	Benefits        []string   `json:"benefits"`
	IsRemote        bool       `json:"is_remote"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	ConfidenceScore float64    `json:"confidence_score"`
	Status          Status     `json:"status"`
	JobPostID       *string    `json:"job_post_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func newNormalizedJobID() string {
	return "NJ_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RejectError marks a raw job that failed the validation gate. Rejection is
// expected bad input, not a processing failure.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "rejected: " + e.Reason
}
