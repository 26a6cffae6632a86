package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrake/jobrake/ingest"
)

func rawJobFrom(t *testing.T, rec ingest.Record) *ingest.RawJob {
	t.Helper()
	raw, err := ingest.NewRawJob("SR_1", "JB_1", rec)
	require.NoError(t, err)
	return raw
}

func TestNormalizeFullRecord(t *testing.T) {
	raw := rawJobFrom(t, ingest.Record{
		Title:       "  Senior Go Engineer  ",
		Company:     "Acme Corp",
		Location:    "wfh",
		Description: "<p>Build pipelines with <b>Go</b>, PostgreSQL and Kubernetes. Health insurance and 401k included.</p>",
		Salary:      "$90,000 - $120,000",
		URL:         "https://jobs.example.com/j/1",
		PostedDate:  "2026-08-20",
	})

	nj, err := NewNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "NJ_", nj.ID[:3])
	assert.Equal(t, raw.ID, nj.RawJobID)
	assert.Equal(t, "JB_1", nj.BoardID)
	assert.Equal(t, "Senior Go Engineer", nj.Title)
	assert.Equal(t, "Remote", nj.Location)
	assert.NotContains(t, nj.Description, "<p>", "markup is stripped")

	require.NotNil(t, nj.SalaryMin)
	require.NotNil(t, nj.SalaryMax)
	assert.Equal(t, 90000.0, *nj.SalaryMin)
	assert.Equal(t, 120000.0, *nj.SalaryMax)
	assert.Equal(t, "USD", nj.SalaryCurrency)

	assert.Equal(t, ExperienceSenior, nj.ExperienceLevel)
	assert.Contains(t, nj.Skills, "go")
	assert.Contains(t, nj.Skills, "postgresql")
	assert.Contains(t, nj.Skills, "kubernetes")
	assert.Contains(t, nj.Benefits, "Health insurance")
	assert.Contains(t, nj.Benefits, "401(k)")
	assert.True(t, nj.IsRemote)
	require.NotNil(t, nj.PostedAt)
	assert.Equal(t, StatusPendingReview, nj.Status)
}

func TestNormalizeRejectsShortTitle(t *testing.T) {
	raw := rawJobFrom(t, ingest.Record{Title: "Go", URL: "https://jobs.example.com/j/1"})

	_, err := NewNormalizer().Normalize(raw)
	require.Error(t, err)

	reject, ok := IsReject(err)
	require.True(t, ok, "short titles are a validation rejection, got %v", err)
	assert.Contains(t, reject.Reason, "title")
}

func TestNormalizeRejectsMissingURL(t *testing.T) {
	raw := rawJobFrom(t, ingest.Record{Title: "Go Engineer", URL: "   "})

	_, err := NewNormalizer().Normalize(raw)
	require.Error(t, err)

	reject, ok := IsReject(err)
	require.True(t, ok)
	assert.Contains(t, reject.Reason, "URL")
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Go Engineer", CleanText("  Go\t\tEngineer \n"))
	assert.Equal(t, "a b c", CleanText("a   b \n\n c"))
	assert.Equal(t, "", CleanText("   "))
}

func TestHTMLToTextDropsScriptAndStyleBodies(t *testing.T) {
	in := `<p>Great role</p><script>var trk="t0";</script><style>.x{color:red}</style>Apply now &#8211; today`

	got := CleanText(HTMLToText(in))
	assert.Equal(t, "Great role Apply now – today", got)
	assert.NotContains(t, got, "trk", "script bodies must not leak into the description")
	assert.NotContains(t, got, "color:red", "style bodies must not leak into the description")
}

func TestHTMLToTextDecodesEntities(t *testing.T) {
	assert.Equal(t, "R&D engineer", CleanText(HTMLToText("R&amp;D&nbsp;engineer")))
	assert.Equal(t, `"quoted" title`, CleanText(HTMLToText("&quot;quoted&quot; title")))
	assert.Equal(t, "plain text", HTMLToText("plain text"))
}

func TestNormalizeLocationAliases(t *testing.T) {
	cases := map[string]string{
		"remote":        "Remote",
		"WFH":           "Remote",
		"Anywhere":      "Remote",
		"usa":           "United States",
		"US":            "United States",
		"uk":            "United Kingdom",
		"nyc":           "New York, NY",
		"Berlin":        "Berlin",
		"Paris, France": "Paris, France",
		"":              "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeLocation(input), "input %q", input)
	}
}

func TestExtractSalaryRange(t *testing.T) {
	min, max, currency := ExtractSalary("$50,000 - $100,000")
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 50000.0, *min)
	assert.Equal(t, 100000.0, *max)
	assert.Equal(t, "USD", currency)
}

func TestExtractSalaryUpToIsMaxOnly(t *testing.T) {
	min, max, _ := ExtractSalary("up to $80,000")
	assert.Nil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 80000.0, *max)
}

func TestExtractSalarySingleNumberIsMin(t *testing.T) {
	min, max, _ := ExtractSalary("$70,000 and stock")
	require.NotNil(t, min)
	assert.Nil(t, max)
	assert.Equal(t, 70000.0, *min)
}

func TestExtractSalaryKSuffix(t *testing.T) {
	min, max, _ := ExtractSalary("90k - 120K")
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 90000.0, *min)
	assert.Equal(t, 120000.0, *max)
}

func TestExtractSalaryCurrency(t *testing.T) {
	_, _, currency := ExtractSalary("€60,000 - €80,000")
	assert.Equal(t, "EUR", currency)

	_, _, currency = ExtractSalary("£55,000")
	assert.Equal(t, "GBP", currency)

	_, _, currency = ExtractSalary("65,000 per year")
	assert.Equal(t, "USD", currency, "no symbol defaults to USD")
}

func TestExtractSalaryEmpty(t *testing.T) {
	min, max, currency := ExtractSalary("")
	assert.Nil(t, min)
	assert.Nil(t, max)
	assert.Equal(t, "USD", currency)

	min, max, _ = ExtractSalary("competitive")
	assert.Nil(t, min)
	assert.Nil(t, max)
}

func TestNormalizeJobType(t *testing.T) {
	assert.Equal(t, "full-time", NormalizeJobType("this is a full-time position"))
	assert.Equal(t, "full-time", NormalizeJobType("full time role"))
	assert.Equal(t, "part-time", NormalizeJobType("part-time work"))
	assert.Equal(t, "contract", NormalizeJobType("6 month contract"))
	assert.Equal(t, "internship", NormalizeJobType("summer internship"))
	assert.Equal(t, "freelance", NormalizeJobType("freelance gig"))
	assert.Equal(t, "temporary", NormalizeJobType("temporary cover"))
	assert.Equal(t, "", NormalizeJobType("just a job"))
}

func TestInferExperience(t *testing.T) {
	assert.Equal(t, ExperienceSenior, InferExperience("Senior Go Engineer", ""))
	assert.Equal(t, ExperienceSenior, InferExperience("Lead Developer", ""))
	assert.Equal(t, ExperienceSenior, InferExperience("Principal Engineer", ""))
	assert.Equal(t, ExperienceJunior, InferExperience("Junior Developer", ""))
	assert.Equal(t, ExperienceJunior, InferExperience("Graduate Engineer", ""))
	assert.Equal(t, ExperienceInternship, InferExperience("Engineering Intern", ""))
	assert.Equal(t, ExperienceInternship, InferExperience("Senior Engineering Intern", ""),
		"intern markers win over senior markers")
	assert.Equal(t, ExperienceMid, InferExperience("Go Engineer", "build services"))
	assert.Equal(t, ExperienceMid, InferExperience("Engineer", "international team"),
		"'international' must not read as intern")
}

func TestExtractSkills(t *testing.T) {
	skills := ExtractSkills("we use go, postgresql and kubernetes daily")
	assert.Contains(t, skills, "go")
	assert.Contains(t, skills, "postgresql")
	assert.Contains(t, skills, "kubernetes")

	skills = ExtractSkills("knowledge of algorithms and categories required")
	assert.NotContains(t, skills, "go", "'algorithms' and 'categories' must not match go")

	assert.Empty(t, ExtractSkills("no technology mentioned"))
}

func TestExtractSkillsCapped(t *testing.T) {
	text := "go golang python java javascript typescript rust ruby php swift kotlin scala react vue"
	skills := ExtractSkills(text)
	assert.Len(t, skills, 10, "skill matches are capped")
}

func TestExtractBenefits(t *testing.T) {
	benefits := ExtractBenefits("health insurance, dental, 401k and unlimited pto")
	assert.Contains(t, benefits, "Health insurance")
	assert.Contains(t, benefits, "Dental insurance")
	assert.Contains(t, benefits, "401(k)")
	assert.Contains(t, benefits, "Unlimited PTO")

	benefits = ExtractBenefits("healthcare and medical coverage")
	assert.Equal(t, []string{"Health insurance"}, benefits, "synonyms deduplicate")
}

func TestDetectRemote(t *testing.T) {
	assert.True(t, DetectRemote("Remote Go Engineer", "", ""))
	assert.True(t, DetectRemote("Go Engineer", "work from home friendly", ""))
	assert.True(t, DetectRemote("Go Engineer", "", "Remote"))
	assert.False(t, DetectRemote("Go Engineer", "office in Berlin", "Berlin"))
}

func TestParseDate(t *testing.T) {
	cases := []string{
		"2026-08-20",
		"2026-08-20T10:30:00Z",
		"Mon, 24 Aug 2026 10:00:00 GMT",
		"24 Aug 2026",
		"August 20, 2026",
		"08/20/2026",
	}
	for _, input := range cases {
		assert.NotNil(t, ParseDate(input), "input %q", input)
	}

	assert.Nil(t, ParseDate("yesterday"))
	assert.Nil(t, ParseDate(""))
}
