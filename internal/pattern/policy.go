package pattern

// DefaultNumericCap is the share of recent numeric-type titles at which the
// numeric type is withheld from generation.
const DefaultNumericCap = 0.4

// TitlePolicy is the per-request result of examining the recent publish
// window. It is recomputed on every generation request and never persisted.
type TitlePolicy struct {
	Allowed      []TitleType
	NumericRatio float64
	Counts       map[TitleType]int
	Total        int
}

// Allows reports whether the given title type is currently permitted.
func (p TitlePolicy) Allows(t TitleType) bool {
	for _, a := range p.Allowed {
		if a == t {
			return true
		}
	}
	return false
}

// countTitleTypes tallies title types across records, classifying on the
// fly when a record carries no precomputed type.
func countTitleTypes(records []PublishRecord) (map[TitleType]int, int) {
	counts := map[TitleType]int{
		TitleNumeric:   0,
		TitleQuestion:  0,
		TitleContrast:  0,
		TitleStatement: 0,
	}

	total := 0
	for _, r := range records {
		t := r.TitleType
		if t == "" {
			t = ClassifyTitle(r.Title)
		}
		if _, ok := counts[t]; !ok {
			continue
		}
		counts[t]++
		total++
	}
	return counts, total
}

// SelectAllowedTypes computes the title policy for the next generation from
// the recent publish window. A numeric share at or above numericCap excludes
// numeric titles; otherwise all four types are allowed. An empty window
// allows everything (ratio 0).
func SelectAllowedTypes(records []PublishRecord, numericCap float64) TitlePolicy {
	counts, total := countTitleTypes(records)

	ratio := 0.0
	if total > 0 {
		ratio = float64(counts[TitleNumeric]) / float64(total)
	}

	allowed := make([]TitleType, 0, len(TitleTypes))
	for _, t := range TitleTypes {
		if t == TitleNumeric && ratio >= numericCap {
			continue
		}
		allowed = append(allowed, t)
	}

	return TitlePolicy{
		Allowed:      allowed,
		NumericRatio: ratio,
		Counts:       counts,
		Total:        total,
	}
}

// CheckTitle classifies a candidate title and reports whether its type is
// permitted by the policy. Used after generation to gate acceptance.
func CheckTitle(title string, policy TitlePolicy) (ok bool, typ TitleType) {
	typ = ClassifyTitle(title)
	return policy.Allows(typ), typ
}
