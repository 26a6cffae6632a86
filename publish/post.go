// Package publish gates normalized jobs on their quality score and turns
// the ones that pass into job posts.
package publish

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrake/jobrake/normalize"
)

// PostStatus is a job post's approval state. Posts are created pending;
// moving them live is an external workflow.
type PostStatus string

const (
	PostStatusPendingApproval PostStatus = "pending_approval"
	PostStatusApproved        PostStatus = "approved"
	PostStatusRejected        PostStatus = "rejected"
)

// JobPost is a canonical, platform-facing job posting
type JobPost struct {
	ID              string     `json:"id"`
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
	Status          PostStatus `json:"status"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func newJobPostID() string {
	return "JP_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// postFromNormalized builds a pending post from a normalized job. The post's
// posted_at falls back to the normalized job's creation time when the source
// never provided a date.
func postFromNormalized(nj *normalize.NormalizedJob) *JobPost {
	postedAt := nj.PostedAt
	if postedAt == nil {
		t := nj.CreatedAt
		postedAt = &t
	}

	now := time.Now()
	return &JobPost{
		ID:              newJobPostID(),
		BoardID:         nj.BoardID,
		Title:           nj.Title,
		Company:         nj.Company,
		Location:        nj.Location,
		Description:     nj.Description,
		SourceURL:       nj.SourceURL,
		SalaryMin:       nj.SalaryMin,
		SalaryMax:       nj.SalaryMax,
		SalaryCurrency:  nj.SalaryCurrency,
		JobType:         nj.JobType,
		ExperienceLevel: nj.ExperienceLevel,
		Skills:          nj.Skills,
		Benefits:        nj.Benefits,
		IsRemote:        nj.IsRemote,
		Status:          PostStatusPendingApproval,
		PostedAt:        postedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
