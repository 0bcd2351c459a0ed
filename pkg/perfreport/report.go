// Package perfreport reads and writes the field-separated call-graph
// reports produced by "perf report". A report carries one section per
// profiled event; each section's rows are caller->callee observations.
package perfreport

import (
	"strconv"
	"strings"
)

// Report is a parsed report file.
type Report struct {
	// Header is the free-form capture information block at the top of
	// the file.
	Header []string
	// Sections, one per profiled event, in file order.
	Sections []*Section
}

// Section groups the rows recorded for a single event.
type Section struct {
	// Event is the profiled event name, normalized (e.g. "cycles_k").
	Event string
	// TotalSamples is the section's event count, the normalization
	// denominator for arc weights.
	TotalSamples int64
	// LostSamples as reported by perf.
	LostSamples int64
	// Fields are the normalized column names of the data rows.
	Fields []string
	// Rows hold the normalized column values keyed by field name.
	Rows []Row
}

// Row is a single data line, values normalized and keyed by field name.
type Row map[string]string

// Value returns the row's value for the field, or "" if absent.
func (r Row) Value(field string) string {
	return r[field]
}

// Int parses the row's value for the field as an integer.
func (r Row) Int(field string) (int64, error) {
	return strconv.ParseInt(r[field], 10, 64)
}

// normalizeValue maps a raw token onto its canonical form: percentages
// lose their sign, colons and inner spaces become underscores,
// "[k] symbol" annotations reduce to the symbol, and unknown values
// become zero.
func normalizeValue(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.Contains(v, "unknown"):
		return "0"
	case strings.Contains(v, "%"):
		return strings.Replace(v, "%", "", -1)
	case strings.Contains(v, ":"):
		return strings.Replace(v, ":", "_", -1)
	case strings.Contains(v, "[") && strings.Contains(v, "]"):
		parts := strings.Split(v, " ")
		return parts[len(parts)-1]
	case strings.Contains(v, " "):
		return strings.Replace(v, " ", "_", -1)
	}
	return v
}

// splitValues tokenizes a line by the field separator and normalizes every
// token.
func splitValues(line, sep string) []string {
	parts := strings.Split(line, sep)
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = normalizeValue(part)
	}
	return out
}
