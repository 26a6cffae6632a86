package normalize

// Title length band considered "sane": long enough to be descriptive,
// short enough to not be a pasted paragraph.
const (
	titleFullMin = 10
	titleFullMax = 120
)

// Score computes the data quality confidence for a normalized job as a
// weighted sum over field presence and richness, clamped to [0, 1].
//
// Weights:
//
//	title sanity        0.20 (0.10 partial)
//	company present     0.15
//	location present    0.15
//	description length  0.25 / 0.15 / 0.05 at >200 / >50 / >10 chars
//	any salary bound    0.10
//	skills              0.10 at >=3, 0.05 at >=1
//	benefits            0.05 at >=2, 0.025 at >=1
func Score(nj *NormalizedJob) float64 {
	score := 0.0

	titleLen := len(nj.Title)
	switch {
	case titleLen >= titleFullMin && titleLen <= titleFullMax:
		score += 0.2
	case titleLen > 0:
		score += 0.1
	}

	if nj.Company != "" {
		score += 0.15
	}
	if nj.Location != "" {
		score += 0.15
	}

	descLen := len(nj.Description)
	switch {
	case descLen > 200:
		score += 0.25
	case descLen > 50:
		score += 0.15
	case descLen > 10:
		score += 0.05
	}

	if nj.SalaryMin != nil || nj.SalaryMax != nil {
		score += 0.1
	}

	switch {
	case len(nj.Skills) >= 3:
		score += 0.1
	case len(nj.Skills) >= 1:
		score += 0.05
	}

	switch {
	case len(nj.Benefits) >= 2:
		score += 0.05
	case len(nj.Benefits) >= 1:
		score += 0.025
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
