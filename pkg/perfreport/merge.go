package perfreport

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Merge combines several captures of the same workload into one report.
// Sections are merged per event: fields are intersected across the inputs
// (the overhead column is dropped, it is meaningless after summing), rows
// are summed by (source symbol, target symbol) key and the header totals
// add up. Events every input does not need to share are still merged over
// the inputs that have them; dummy events are ignored.
//
// Merging is associative and commutative up to row order, so captures can
// be combined incrementally.
func Merge(reports ...*Report) (*Report, error) {
	if len(reports) == 0 {
		return nil, xerrors.New("perfreport: no reports to merge")
	}

	var (
		events  []string
		byEvent = make(map[string][]*Section)
	)
	for _, rep := range reports {
		for _, s := range rep.Sections {
			if strings.Contains(s.Event, "dummy") {
				continue
			}
			if _, ok := byEvent[s.Event]; !ok {
				events = append(events, s.Event)
			}
			byEvent[s.Event] = append(byEvent[s.Event], s)
		}
	}
	if len(events) == 0 {
		return nil, xerrors.New("perfreport: no mergeable sections found")
	}

	merged := &Report{}
	for _, event := range events {
		s, err := mergeSections(event, byEvent[event])
		if err != nil {
			return nil, err
		}
		merged.Sections = append(merged.Sections, s)
	}
	return merged, nil
}

func mergeSections(event string, sections []*Section) (*Section, error) {
	fields := commonFields(sections)
	out := &Section{Event: event, Fields: fields}

	if err := out.requireFields(FieldSamples, FieldSourceSymbol, FieldTargetSymbol); err != nil {
		return nil, xerrors.Errorf("perfreport: merge event %q: %w", event, err)
	}

	type key struct {
		source, target string
	}
	var (
		order []key
		rows  = make(map[key]Row)
	)

	for _, s := range sections {
		out.TotalSamples += s.TotalSamples
		out.LostSamples += s.LostSamples

		for _, row := range s.Rows {
			k := key{row.Value(FieldSourceSymbol), row.Value(FieldTargetSymbol)}

			prev, ok := rows[k]
			if !ok {
				next := make(Row, len(fields))
				for _, f := range fields {
					next[f] = row.Value(f)
				}
				rows[k] = next
				order = append(order, k)
				continue
			}

			oldSamples, err := prev.Int(FieldSamples)
			if err != nil {
				return nil, xerrors.Errorf("perfreport: merge event %q: %w", event, err)
			}
			newSamples, err := row.Int(FieldSamples)
			if err != nil {
				return nil, xerrors.Errorf("perfreport: merge event %q: %w", event, err)
			}
			prev[FieldSamples] = strconv.FormatInt(oldSamples+newSamples, 10)
		}
	}

	out.Rows = make([]Row, 0, len(order))
	for _, k := range order {
		out.Rows = append(out.Rows, rows[k])
	}
	return out, nil
}

// commonFields intersects the sections' field sets, keeping the first
// section's field order and dropping the overhead column.
func commonFields(sections []*Section) []string {
	counts := make(map[string]int)
	for _, s := range sections {
		for _, f := range s.Fields {
			counts[f]++
		}
	}

	var fields []string
	for _, f := range sections[0].Fields {
		if f == "overhead" {
			continue
		}
		if counts[f] == len(sections) {
			fields = append(fields, f)
		}
	}
	return fields
}
