package perfreport

import (
	"regexp"
	"strings"

	"golang.org/x/xerrors"

	"github.com/hotsort/hotsort/pkg/callgraph"
)

// Field names required for call-graph extraction.
const (
	FieldSamples      = "samples"
	FieldSourceSymbol = "source_symbol"
	FieldTargetSymbol = "target_symbol"
	FieldSymbolSize   = "symbol_size"
)

var hexValue = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// CallSection returns the first section recorded for a cycles or
// instructions event; those are the ones carrying caller->callee samples.
func (rep *Report) CallSection() (*Section, error) {
	for _, s := range rep.Sections {
		if strings.Contains(s.Event, "cycles") || strings.Contains(s.Event, "instructions") {
			return s, nil
		}
	}
	return nil, xerrors.New("perfreport: no cycles or instructions section in report")
}

// ExtractStats count rows that could not contribute to the graph. They are
// debug information, not errors.
type ExtractStats struct {
	Rows    int
	HexRows int
	NoSizes int
}

// Records converts the section's rows into call-graph records. Rows whose
// target symbol is a bare hex address are corrupt profiler output and are
// skipped. A row with a non-numeric sample count fails the whole
// extraction.
func (s *Section) Records() ([]callgraph.Record, ExtractStats, error) {
	if err := s.requireFields(FieldSamples, FieldSourceSymbol, FieldTargetSymbol); err != nil {
		return nil, ExtractStats{}, err
	}

	records := make([]callgraph.Record, 0, len(s.Rows))
	stats := ExtractStats{Rows: len(s.Rows)}

	for i, row := range s.Rows {
		target := row.Value(FieldTargetSymbol)
		if hexValue.MatchString(target) {
			stats.HexRows++
			continue
		}

		samples, err := row.Int(FieldSamples)
		if err != nil {
			return nil, stats, &callgraph.MalformedRecordError{
				Index:  i,
				Reason: "non-numeric sample count " + row.Value(FieldSamples),
			}
		}

		rec := callgraph.Record{
			Source:  row.Value(FieldSourceSymbol),
			Target:  target,
			Samples: samples,
		}
		if size, err := row.Int(FieldSymbolSize); err == nil {
			rec.TargetSize = size
		} else {
			stats.NoSizes++
		}
		records = append(records, rec)
	}

	return records, stats, nil
}

func (s *Section) requireFields(fields ...string) error {
	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		known[f] = true
	}
	for _, f := range fields {
		if !known[f] {
			return xerrors.Errorf("perfreport: section %q has no %q field", s.Event, f)
		}
	}
	return nil
}
