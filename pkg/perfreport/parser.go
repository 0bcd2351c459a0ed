package perfreport

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

const headerFence = "========"

// Parser reads report files. The separator is the one the report was
// generated with; it cuts data lines into field values.
type Parser struct {
	sep string
}

func NewParser(fieldSeparator string) *Parser {
	return &Parser{sep: fieldSeparator}
}

// Parse consumes the report text. Comment lines (prefixed by '#') carry
// the capture header and the per-section metadata; anything else is a data
// row of the current section. A new comment block after data rows starts
// the next section.
func (p *Parser) Parse(r io.Reader) (*Report, error) {
	var (
		rep = &Report{}
		st  parserState
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if strings.HasPrefix(line, "#") {
			if st.inData {
				rep.Sections = append(rep.Sections, st.section)
				st.section = nil
				st.inData = false
			}
			comment := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if err := p.parseComment(comment, rep, &st); err != nil {
				return nil, err
			}
			continue
		}

		if line == "" {
			continue
		}

		st.inData = true
		if st.section == nil || len(st.section.Fields) == 0 {
			return nil, xerrors.Errorf("perfreport: data row before any section fields: %q", line)
		}

		row := make(Row, len(st.section.Fields))
		for i, value := range splitValues(line, p.sep) {
			if i >= len(st.section.Fields) {
				break
			}
			row[st.section.Fields[i]] = value
		}
		st.section.Rows = append(st.section.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("perfreport: read report: %w", err)
	}

	if st.section != nil && (st.inData || st.section.Event != "") {
		rep.Sections = append(rep.Sections, st.section)
	}

	return rep, nil
}

type parserState struct {
	section    *Section
	inData     bool
	inHeader   bool
	fieldsNext bool
}

func (p *Parser) parseComment(comment string, rep *Report, st *parserState) error {
	if comment == "" {
		return nil
	}

	if strings.Contains(comment, headerFence) {
		st.inHeader = !st.inHeader
		return nil
	}
	if st.inHeader {
		rep.Header = append(rep.Header, comment)
		return nil
	}

	if st.section == nil {
		st.section = &Section{}
	}

	switch {
	case strings.Contains(comment, "Total Lost Samples"):
		n, err := lastFieldInt(comment)
		if err != nil {
			return xerrors.Errorf("perfreport: lost samples: %w", err)
		}
		st.section.LostSamples = n

	case strings.Contains(comment, "of event"):
		// e.g. "Samples: 40M of event 'cycles:k'"
		parts := strings.Split(comment, "'")
		if len(parts) < 2 {
			return xerrors.Errorf("perfreport: no event name in %q", comment)
		}
		st.section.Event = normalizeValue(parts[len(parts)-2])

	case st.fieldsNext:
		// the first comment line after the event count is the column row
		st.section.Fields = splitValues(comment, p.sep)
		st.fieldsNext = false

	case strings.Contains(comment, "Event count"):
		n, err := lastFieldInt(comment)
		if err != nil {
			return xerrors.Errorf("perfreport: event count: %w", err)
		}
		st.section.TotalSamples = n
		st.fieldsNext = true
	}

	return nil
}

func lastFieldInt(s string) (int64, error) {
	fields := strings.Fields(s)
	return strconv.ParseInt(fields[len(fields)-1], 10, 64)
}
