package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lexandro/errcode-audit/audit"
)

// jsonDocument fixes the key order of the JSON report.
type jsonDocument struct {
	Summary            audit.Stats                 `json:"summary"`
	SubsystemBreakdown breakdown                   `json:"subsystem_breakdown"`
	ConsistentCodes    []string                    `json:"consistent_codes"`
	LegitimateMissing  map[string]audit.CodeDetail `json:"legitimate_missing"`
	TestExampleCodes   map[string]audit.CodeDetail `json:"test_example_codes"`
	InvalidFormatCodes map[string]audit.CodeDetail `json:"invalid_format_codes"`
	OrphanedCodes      []string                    `json:"orphaned_codes"`
	IgnoredCodes       []string                    `json:"ignored_codes"`
	Passed             bool                        `json:"passed"`
}

// breakdown marshals as an object keyed by subsystem name, in table order.
type breakdown []audit.SubsystemStat

func (b breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sub := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sub.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(sub)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatJSONReport renders the report as indented JSON.
func FormatJSONReport(rep audit.Report) ([]byte, error) {
	doc := jsonDocument{
		Summary:            rep.Summary,
		SubsystemBreakdown: breakdown(rep.Subsystems),
		ConsistentCodes:    rep.ConsistentCodes,
		LegitimateMissing:  rep.LegitimateMissing,
		TestExampleCodes:   rep.TestExampleCodes,
		InvalidFormatCodes: rep.InvalidFormatCodes,
		OrphanedCodes:      rep.OrphanedCodes,
		IgnoredCodes:       rep.IgnoredCodes,
		Passed:             !rep.Failed(),
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding JSON report: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
