package publish

import (
	"database/sql"

	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/normalize"
)

// Outcome classifies what publishing a normalized job produced. All three
// are expected results, not failures.
type Outcome string

const (
	OutcomePublished  Outcome = "published"   // new post created
	OutcomeDuplicate  Outcome = "duplicate"   // linked to an existing post
	OutcomeLowQuality Outcome = "low_quality" // below the board's threshold
)

// Result is the publisher's decision for one normalized job
type Result struct {
	Outcome Outcome
	Post    *JobPost // set for published and duplicate outcomes
}

// Publisher applies the quality gate and creates posts for jobs that pass
type Publisher struct {
	posts      *Store
	normalized *normalize.Store
}

// NewPublisher creates a publisher over the given database
func NewPublisher(db *sql.DB) *Publisher {
	return &Publisher{
		posts:      NewStore(db),
		normalized: normalize.NewStore(db),
	}
}

// Posts returns the underlying post store
func (p *Publisher) Posts() *Store {
	return p.posts
}

// Publish gates the normalized job on the board's quality threshold.
// Below threshold the job is marked low_quality. At or above threshold a
// post is created, or the job is linked to the existing post when one
// already covers the same source URL.
func (p *Publisher) Publish(nj *normalize.NormalizedJob, threshold float64) (*Result, error) {
	log := logger.ComponentLogger("publish").With(
		"normalized_job_id", nj.ID,
		logger.FieldBoardID, nj.BoardID,
	)

	if nj.ConfidenceScore < threshold {
		if err := p.normalized.SetStatus(nj.ID, normalize.StatusLowQuality, nil); err != nil {
			return nil, err
		}
		log.Infow("Job below quality threshold",
			"score", nj.ConfidenceScore,
			"threshold", threshold,
		)
		return &Result{Outcome: OutcomeLowQuality}, nil
	}

	existing, err := p.posts.GetBySourceURL(nj.SourceURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := p.linkToPost(nj, existing); err != nil {
			return nil, err
		}
		log.Infow("Linked to existing post", logger.FieldPostID, existing.ID)
		return &Result{Outcome: OutcomeDuplicate, Post: existing}, nil
	}

	post := postFromNormalized(nj)
	if err := p.posts.Create(post); err != nil {
		if errors.IsConflict(err) {
			// Lost a race with a concurrent publish of the same URL
			existing, lookupErr := p.posts.GetBySourceURL(nj.SourceURL)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				if linkErr := p.linkToPost(nj, existing); linkErr != nil {
					return nil, linkErr
				}
				return &Result{Outcome: OutcomeDuplicate, Post: existing}, nil
			}
		}
		return nil, err
	}

	if err := p.linkToPost(nj, post); err != nil {
		return nil, err
	}

	log.Infow("Job post created",
		logger.FieldPostID, post.ID,
		"score", nj.ConfidenceScore,
	)
	return &Result{Outcome: OutcomePublished, Post: post}, nil
}

// linkToPost marks the normalized job approved and records the post it
// resolved to.
func (p *Publisher) linkToPost(nj *normalize.NormalizedJob, post *JobPost) error {
	if err := p.normalized.SetStatus(nj.ID, normalize.StatusApproved, &post.ID); err != nil {
		return errors.Wrapf(err, "failed to link normalized job %s to post %s", nj.ID, post.ID)
	}
	nj.Status = normalize.StatusApproved
	nj.JobPostID = &post.ID
	return nil
}
