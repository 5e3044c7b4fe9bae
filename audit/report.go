package audit

// Stats holds the summary counters of a run.
type Stats struct {
	CatalogTotal         int `json:"catalog_total"`
	SourceTotal          int `json:"source_total"`
	Consistent           int `json:"consistent"`
	MissingTotal         int `json:"missing_total"`
	MissingLegitimate    int `json:"missing_legitimate"`
	MissingTestExample   int `json:"missing_test_example"`
	MissingInvalidFormat int `json:"missing_invalid_format"`
	Orphaned             int `json:"orphaned"`
}

// CodeDetail is the per-code projection consumed by renderers.
type CodeDetail struct {
	Count         int        `json:"count"`
	Files         []string   `json:"files"`
	FirstLocation *Location  `json:"first_location,omitempty"`
	Locations     []Location `json:"locations"`
}

// Report is the stable data shape handed to renderers.
type Report struct {
	Summary            Stats                 `json:"summary"`
	Subsystems         []SubsystemStat       `json:"-"`
	ConsistentCodes    []string              `json:"consistent_codes"`
	LegitimateMissing  map[string]CodeDetail `json:"legitimate_missing"`
	TestExampleCodes   map[string]CodeDetail `json:"test_example_codes"`
	InvalidFormatCodes map[string]CodeDetail `json:"invalid_format_codes"`
	OrphanedCodes      []string              `json:"orphaned_codes"`
	IgnoredCodes       []string              `json:"ignored_codes"`
}

// Stats returns the summary counters of the result.
func (r *Result) Stats() Stats {
	return Stats{
		CatalogTotal:         len(r.Catalog),
		SourceTotal:          len(r.Active),
		Consistent:           len(r.Consistent),
		MissingTotal:         len(r.Missing),
		MissingLegitimate:    len(r.Legitimate),
		MissingTestExample:   len(r.TestOrExample),
		MissingInvalidFormat: len(r.InvalidFormat),
		Orphaned:             len(r.Orphaned),
	}
}

// Project converts a result into its report shape.
func Project(r *Result) Report {
	return Report{
		Summary:            r.Stats(),
		Subsystems:         append([]SubsystemStat(nil), r.Subsystems...),
		ConsistentCodes:    nonNil(r.Consistent),
		LegitimateMissing:  details(r.Legitimate),
		TestExampleCodes:   details(r.TestOrExample),
		InvalidFormatCodes: details(r.InvalidFormat),
		OrphanedCodes:      nonNil(r.Orphaned),
		IgnoredCodes:       nonNil(r.Ignored),
	}
}

// Failed applies the exit contract to a report.
func (rep Report) Failed() bool {
	return rep.Summary.MissingLegitimate > 0 || rep.Summary.Orphaned > 0
}

// SubsystemMap keys the breakdown by subsystem name.
func (rep Report) SubsystemMap() map[string]SubsystemStat {
	m := make(map[string]SubsystemStat, len(rep.Subsystems))
	for _, s := range rep.Subsystems {
		m[s.Name] = s
	}
	return m
}

func details(summaries map[string]Summary) map[string]CodeDetail {
	out := make(map[string]CodeDetail, len(summaries))
	for code, s := range summaries {
		out[code] = CodeDetail{
			Count:         s.Count,
			Files:         nonNil(s.ActiveFiles),
			FirstLocation: s.FirstActive,
			Locations:     append([]Location{}, s.Locations...),
		}
	}
	return out
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
