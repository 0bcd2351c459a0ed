package perfreport

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Writer renders a report back into its textual form, e.g. after merging
// several captures. The output parses back with a Parser configured with
// the same field separator.
type Writer struct {
	sep string
}

func NewWriter(fieldSeparator string) *Writer {
	return &Writer{sep: fieldSeparator}
}

// WriteReport writes all sections. Rows are ordered by descending sample
// count, the way perf prints them.
func (wr *Writer) WriteReport(w io.Writer, rep *Report) error {
	if len(rep.Header) > 0 {
		if _, err := fmt.Fprintln(w, "# ========"); err != nil {
			return err
		}
		for _, line := range rep.Header {
			if _, err := fmt.Fprintf(w, "# %s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "# ========"); err != nil {
			return err
		}
	}
	for _, s := range rep.Sections {
		if err := wr.writeSection(w, s); err != nil {
			return xerrors.Errorf("perfreport: write section %q: %w", s.Event, err)
		}
	}
	return nil
}

func (wr *Writer) writeSection(w io.Writer, s *Section) error {
	_, err := fmt.Fprintf(w, `#
# Total Lost Samples: %d
#
# Samples: %s of event '%s'
# Event count (approx.): %d
#
`,
		s.LostSamples, siAbbrev(s.TotalSamples), s.Event, s.TotalSamples)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "# %s\n", strings.Join(headerFields(s.Fields), "\t"+wr.sep)); err != nil {
		return err
	}

	rows := make([]Row, len(s.Rows))
	copy(rows, s.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		ni, _ := rows[i].Int(FieldSamples)
		nj, _ := rows[j].Int(FieldSamples)
		return ni > nj
	})

	sep := "\t" + wr.sep + "\t"
	for _, row := range rows {
		values := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			values[i] = row.Value(f)
		}
		if _, err := fmt.Fprintf(w, " %s\n", strings.Join(values, sep)); err != nil {
			return err
		}
	}

	_, err = io.WriteString(w, "\n\n")
	return err
}

// headerFields turns normalized field names back into their display form,
// e.g. "target_symbol" -> "Target symbol".
func headerFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		f = strings.Replace(f, "_", " ", -1)
		if f != "" {
			f = strings.ToUpper(f[:1]) + f[1:]
		}
		out[i] = f
	}
	return out
}

var siPrefixes = [...]string{"", "K", "M", "G", "T", "P"}

// siAbbrev renders a sample count the way perf abbreviates it in section
// headers, e.g. 40632332 -> "40M".
func siAbbrev(v int64) string {
	if v < 0 {
		return "NULL"
	}
	i := 0
	for v >= 1000 && i < len(siPrefixes)-1 {
		v /= 1000
		i++
	}
	return strconv.FormatInt(v, 10) + siPrefixes[i]
}
