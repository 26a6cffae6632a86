package normalize

// Fixed keyword tables for rule-based extraction. All matching is done on
// lowercased input.

// locationAliases maps known location spellings to their canonical form
var locationAliases = map[string]string{
	"remote":         "Remote",
	"wfh":            "Remote",
	"work from home": "Remote",
	"anywhere":       "Remote",
	"worldwide":      "Remote",
	"us":             "United States",
	"usa":            "United States",
	"u.s.":           "United States",
	"u.s.a.":         "United States",
	"united states":  "United States",
	"uk":             "United Kingdom",
	"u.k.":           "United Kingdom",
	"united kingdom": "United Kingdom",
	"nyc":            "New York, NY",
	"new york city":  "New York, NY",
	"sf":             "San Francisco, CA",
	"san francisco":  "San Francisco, CA",
}

// jobTypeKeywords maps matched keywords to the fixed job type table
var jobTypeKeywords = []struct {
	keyword string
	jobType string
}{
	{"full-time", "full-time"},
	{"full time", "full-time"},
	{"fulltime", "full-time"},
	{"part-time", "part-time"},
	{"part time", "part-time"},
	{"parttime", "part-time"},
	{"internship", "internship"},
	{"intern", "internship"},
	{"freelance", "freelance"},
	{"temporary", "temporary"},
	{"temp position", "temporary"},
	{"contract", "contract"},
	{"contractor", "contract"},
}

// seniorKeywords and juniorKeywords drive experience inference. Intern
// markers win over senior/junior ("senior engineering intern" is an
// internship), then senior, then junior.
var (
	seniorKeywords = []string{"senior", "sr.", "sr ", "lead", "principal", "staff engineer", "architect", "head of"}
	juniorKeywords = []string{"junior", "jr.", "jr ", "entry level", "entry-level", "graduate", "trainee"}
)

// skillKeywords is the fixed technology list scanned for skill extraction
var skillKeywords = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "rust",
	"c++", "c#", "ruby", "php", "swift", "kotlin", "scala", "elixir",
	"react", "vue", "angular", "node.js", "django", "rails", "spring",
	"sql", "postgresql", "mysql", "sqlite", "mongodb", "redis", "kafka",
	"elasticsearch", "graphql", "grpc", "rest",
	"docker", "kubernetes", "terraform", "ansible", "aws", "gcp", "azure",
	"linux", "git", "ci/cd", "machine learning", "data engineering",
}

// skillWordBoundary lists skills that need word-boundary matching because
// plain substring search produces false positives ("go" in "algorithms").
var skillWordBoundary = map[string]bool{
	"go":   true,
	"java": true,
	"rest": true,
	"sql":  true,
	"git":  true,
	"aws":  true,
	"gcp":  true,
}

// benefitKeywords is the fixed benefits table
var benefitKeywords = []struct {
	keyword string
	benefit string
}{
	{"health insurance", "Health insurance"},
	{"healthcare", "Health insurance"},
	{"medical", "Health insurance"},
	{"dental", "Dental insurance"},
	{"vision", "Vision insurance"},
	{"401k", "401(k)"},
	{"401(k)", "401(k)"},
	{"pension", "Pension"},
	{"equity", "Equity"},
	{"stock options", "Equity"},
	{"unlimited pto", "Unlimited PTO"},
	{"unlimited vacation", "Unlimited PTO"},
	{"paid time off", "Paid time off"},
	{"pto", "Paid time off"},
	{"parental leave", "Parental leave"},
	{"flexible hours", "Flexible hours"},
	{"flexible schedule", "Flexible hours"},
	{"remote work", "Remote work"},
	{"gym", "Gym membership"},
	{"learning budget", "Learning budget"},
	{"education stipend", "Learning budget"},
}

// remoteKeywords flag a listing as remote when found in title, description,
// or location
var remoteKeywords = []string{
	"remote", "wfh", "work from home", "anywhere", "distributed team", "telecommute",
}

// dateFormats is the ordered list of layouts tried when parsing posted dates
var dateFormats = []string{
	"2006-01-02T15:04:05Z07:00", // RFC 3339
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}
