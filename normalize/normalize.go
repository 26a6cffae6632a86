package normalize

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/ingest"
	"github.com/jobrake/jobrake/logger"
)

// maxSkills caps how many skill matches are kept per listing
const maxSkills = 10

// minTitleLen is the validation gate: shorter titles are rejected as bad input
const minTitleLen = 3

// Normalizer performs deterministic rule-based extraction. It is stateless
// and safe for concurrent use.
type Normalizer struct{}

// NewNormalizer creates a normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts a raw job into a normalized job, or returns a
// RejectError when the input fails the validation gate.
func (n *Normalizer) Normalize(raw *ingest.RawJob) (*NormalizedJob, error) {
	rec, err := raw.Record()
	if err != nil {
		return nil, err
	}

	title := CleanText(rec.Title)
	if len(title) < minTitleLen {
		return nil, &RejectError{Reason: "title missing or too short"}
	}
	if strings.TrimSpace(rec.URL) == "" {
		return nil, &RejectError{Reason: "source URL missing"}
	}

	description := CleanText(HTMLToText(rec.Description))
	location := NormalizeLocation(rec.Location)
	searchText := strings.ToLower(title + " " + description)

	salaryMin, salaryMax, currency := ExtractSalary(rec.Salary)

	now := time.Now()
	nj := &NormalizedJob{
		ID:              newNormalizedJobID(),
		RawJobID:        raw.ID,
		BoardID:         raw.BoardID,
		Title:           title,
		Company:         CleanText(rec.Company),
		Location:        location,
		Description:     description,
		SourceURL:       strings.TrimSpace(rec.URL),
		SalaryMin:       salaryMin,
		SalaryMax:       salaryMax,
		SalaryCurrency:  currency,
		JobType:         NormalizeJobType(searchText),
		ExperienceLevel: InferExperience(title, description),
		Skills:          ExtractSkills(searchText),
		Benefits:        ExtractBenefits(searchText),
		IsRemote:        DetectRemote(title, description, location),
		PostedAt:        ParseDate(rec.PostedDate),
		Status:          StatusPendingReview,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	logger.ComponentLogger("normalize").Debugw("Raw job normalized",
		logger.FieldRawID, raw.ID,
		"title", nj.Title,
		"skills", len(nj.Skills),
		"is_remote", nj.IsRemote,
	)

	return nj, nil
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
)

// CleanText collapses whitespace and strips control characters
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// HTMLToText strips markup from a description. The fragment is parsed so
// that script, style, and noscript bodies are dropped along with their tags,
// and entity references are decoded.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return decodeEntities(htmlTagRe.ReplaceAllString(s, " "))
	}
	doc.Find("script, style, noscript").Remove()

	markup, err := doc.Html()
	if err != nil {
		return decodeEntities(htmlTagRe.ReplaceAllString(s, " "))
	}
	return decodeEntities(htmlTagRe.ReplaceAllString(markup, " "))
}

// decodeEntities resolves entity references left by serialization and maps
// non-breaking spaces to plain spaces so whitespace collapsing treats them
// uniformly.
func decodeEntities(s string) string {
	return strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
}

// NormalizeLocation maps known aliases to canonical names. Unknown
// locations pass through cleaned but unchanged.
func NormalizeLocation(s string) string {
	cleaned := CleanText(s)
	if cleaned == "" {
		return ""
	}
	if canonical, ok := locationAliases[strings.ToLower(cleaned)]; ok {
		return canonical
	}
	return cleaned
}

var salaryNumberRe = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*([kK])?`)

// ExtractSalary pulls up to two numeric groups from a salary string.
// Two numbers become a min/max range; one number is max-only when the text
// says "up to" or "max", otherwise min-only. Currency defaults to USD.
func ExtractSalary(s string) (min *float64, max *float64, currency string) {
	currency = "USD"
	if strings.TrimSpace(s) == "" {
		return nil, nil, currency
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(s, "€") || strings.Contains(lower, "eur"):
		currency = "EUR"
	case strings.Contains(s, "£") || strings.Contains(lower, "gbp"):
		currency = "GBP"
	case strings.Contains(s, "$") || strings.Contains(lower, "usd"):
		currency = "USD"
	}

	matches := salaryNumberRe.FindAllStringSubmatch(s, 2)
	var numbers []float64
	for _, m := range matches {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		numbers = append(numbers, v)
	}

	switch len(numbers) {
	case 0:
		return nil, nil, currency
	case 1:
		if strings.Contains(lower, "up to") || strings.Contains(lower, "max") {
			return nil, &numbers[0], currency
		}
		return &numbers[0], nil, currency
	default:
		return &numbers[0], &numbers[1], currency
	}
}

// NormalizeJobType matches the text against the fixed job type table.
// Returns "" when no keyword matches.
func NormalizeJobType(lowerText string) string {
	for _, entry := range jobTypeKeywords {
		if strings.Contains(lowerText, entry.keyword) {
			return entry.jobType
		}
	}
	return ""
}

// InferExperience scans title and description for seniority markers.
// Internship markers win, then senior, then junior; default is Mid-level.
func InferExperience(title, description string) string {
	text := strings.ToLower(title + " " + description)

	if strings.Contains(text, "internship") || containsWord(text, "intern") {
		return ExperienceInternship
	}
	for _, kw := range seniorKeywords {
		if strings.Contains(text, kw) {
			return ExperienceSenior
		}
	}
	for _, kw := range juniorKeywords {
		if strings.Contains(text, kw) {
			return ExperienceJunior
		}
	}
	return ExperienceMid
}

// ExtractSkills matches the fixed technology list, capped at maxSkills.
// Short ambiguous names use word-boundary matching to avoid false positives.
func ExtractSkills(lowerText string) []string {
	var skills []string
	for _, skill := range skillKeywords {
		if len(skills) >= maxSkills {
			break
		}

		var matched bool
		if skillWordBoundary[skill] {
			matched = containsWord(lowerText, skill)
		} else {
			matched = strings.Contains(lowerText, skill)
		}
		if matched {
			skills = append(skills, skill)
		}
	}
	if skills == nil {
		skills = []string{}
	}
	return skills
}

// containsWord reports whether word appears as a whole token in text
func containsWord(text, word string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if f == word {
			return true
		}
	}
	return false
}

// ExtractBenefits matches the fixed benefits table, deduplicating canonical
// benefit names.
func ExtractBenefits(lowerText string) []string {
	seen := make(map[string]bool)
	var benefits []string
	for _, entry := range benefitKeywords {
		if !strings.Contains(lowerText, entry.keyword) {
			continue
		}
		if seen[entry.benefit] {
			continue
		}
		seen[entry.benefit] = true
		benefits = append(benefits, entry.benefit)
	}
	if benefits == nil {
		benefits = []string{}
	}
	return benefits
}

// DetectRemote scans title, description, and location for remote markers
func DetectRemote(title, description, location string) bool {
	text := strings.ToLower(title + " " + description + " " + location)
	for _, kw := range remoteKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ParseDate tries the ordered format list; unparsable dates return nil and
// the fetch time is used downstream.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// IsReject reports whether the error is a validation rejection
func IsReject(err error) (*RejectError, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
