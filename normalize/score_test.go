package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobrake/jobrake/internal/util"
)

func TestScoreRichJob(t *testing.T) {
	nj := &NormalizedJob{
		Title:       "Senior Go Engineer",
		Company:     "Acme Corp",
		Location:    "Remote",
		Description: strings.Repeat("Build and operate ingestion pipelines. ", 10),
		SalaryMin:   util.Ptr(90000.0),
		Skills:      []string{"go", "postgresql", "kubernetes"},
		Benefits:    []string{"Health insurance", "401(k)"},
	}

	// 0.2 + 0.15 + 0.15 + 0.25 + 0.1 + 0.1 + 0.05 = 1.0
	assert.InDelta(t, 1.0, Score(nj), 0.0001)
}

func TestScoreBareJob(t *testing.T) {
	nj := &NormalizedJob{
		Title:    "Go Engineer Wanted",
		Skills:   []string{},
		Benefits: []string{},
	}

	assert.InDelta(t, 0.2, Score(nj), 0.0001, "only the title contributes")
}

func TestScoreTitleBands(t *testing.T) {
	full := &NormalizedJob{Title: "Senior Go Engineer"}
	partial := &NormalizedJob{Title: "Go Dev"}
	overlong := &NormalizedJob{Title: strings.Repeat("x", 200)}

	assert.InDelta(t, 0.2, Score(full), 0.0001)
	assert.InDelta(t, 0.1, Score(partial), 0.0001)
	assert.InDelta(t, 0.1, Score(overlong), 0.0001, "pasted-paragraph titles score partial")
}

func TestScoreDescriptionTiers(t *testing.T) {
	base := func(desc string) *NormalizedJob {
		return &NormalizedJob{Title: "Senior Go Engineer", Description: desc}
	}

	assert.InDelta(t, 0.45, Score(base(strings.Repeat("a", 201))), 0.0001)
	assert.InDelta(t, 0.35, Score(base(strings.Repeat("a", 51))), 0.0001)
	assert.InDelta(t, 0.25, Score(base(strings.Repeat("a", 11))), 0.0001)
	assert.InDelta(t, 0.2, Score(base("short")), 0.0001)
}

func TestScoreSkillAndBenefitTiers(t *testing.T) {
	nj := &NormalizedJob{Title: "Senior Go Engineer", Skills: []string{"go"}}
	assert.InDelta(t, 0.25, Score(nj), 0.0001)

	nj.Skills = []string{"go", "sql", "docker"}
	assert.InDelta(t, 0.3, Score(nj), 0.0001)

	nj.Benefits = []string{"Health insurance"}
	assert.InDelta(t, 0.325, Score(nj), 0.0001)

	nj.Benefits = []string{"Health insurance", "Equity"}
	assert.InDelta(t, 0.35, Score(nj), 0.0001)
}

func TestScoreSalaryBound(t *testing.T) {
	withMin := &NormalizedJob{Title: "Senior Go Engineer", SalaryMin: util.Ptr(50000.0)}
	withMax := &NormalizedJob{Title: "Senior Go Engineer", SalaryMax: util.Ptr(80000.0)}

	assert.InDelta(t, 0.3, Score(withMin), 0.0001)
	assert.InDelta(t, 0.3, Score(withMax), 0.0001, "either bound counts")
}

func TestScoreNeverExceedsOne(t *testing.T) {
	nj := &NormalizedJob{
		Title:       "Senior Go Engineer with everything",
		Company:     "Acme Corp",
		Location:    "Remote",
		Description: strings.Repeat("a", 500),
		SalaryMin:   util.Ptr(90000.0),
		SalaryMax:   util.Ptr(120000.0),
		Skills:      []string{"go", "sql", "docker", "kubernetes", "aws"},
		Benefits:    []string{"Health insurance", "401(k)", "Equity"},
	}

	assert.LessOrEqual(t, Score(nj), 1.0)
}
