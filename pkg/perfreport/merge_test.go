package perfreport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callSection(totalSamples int64, rows ...Row) *Section {
	return &Section{
		Event:        "cycles_k",
		TotalSamples: totalSamples,
		Fields:       []string{"overhead", FieldSamples, FieldSourceSymbol, FieldTargetSymbol},
		Rows:         rows,
	}
}

func TestMerge(t *testing.T) {
	first := &Report{Sections: []*Section{callSection(1000,
		Row{"overhead": "60.00", FieldSamples: "600", FieldSourceSymbol: "a", FieldTargetSymbol: "b"},
		Row{"overhead": "40.00", FieldSamples: "400", FieldSourceSymbol: "b", FieldTargetSymbol: "c"},
	)}}
	first.Sections[0].LostSamples = 5

	second := &Report{Sections: []*Section{callSection(500,
		Row{"overhead": "80.00", FieldSamples: "400", FieldSourceSymbol: "a", FieldTargetSymbol: "b"},
		Row{"overhead": "20.00", FieldSamples: "100", FieldSourceSymbol: "c", FieldTargetSymbol: "d"},
	)}}

	merged, err := Merge(first, second)
	require.NoError(t, err)

	require.Len(t, merged.Sections, 1)
	s := merged.Sections[0]
	assert.Equal(t, "cycles_k", s.Event)
	assert.Equal(t, int64(1500), s.TotalSamples)
	assert.Equal(t, int64(5), s.LostSamples)

	// overhead percentages do not sum, the column goes away
	assert.Equal(t, []string{FieldSamples, FieldSourceSymbol, FieldTargetSymbol}, s.Fields)

	require.Len(t, s.Rows, 3)
	assert.Equal(t, "1000", s.Rows[0].Value(FieldSamples), "a->b summed across captures")
	assert.Equal(t, "400", s.Rows[1].Value(FieldSamples))
	assert.Equal(t, "d", s.Rows[2].Value(FieldTargetSymbol), "rows keep first appearance order")
}

func TestMerge_SingleReportIdentityUpToOverhead(t *testing.T) {
	rep := &Report{Sections: []*Section{callSection(100,
		Row{"overhead": "100.00", FieldSamples: "100", FieldSourceSymbol: "a", FieldTargetSymbol: "b"},
	)}}

	merged, err := Merge(rep)
	require.NoError(t, err)

	require.Len(t, merged.Sections, 1)
	s := merged.Sections[0]
	assert.Equal(t, int64(100), s.TotalSamples)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, Row{FieldSamples: "100", FieldSourceSymbol: "a", FieldTargetSymbol: "b"}, s.Rows[0])
}

func TestMerge_SkipsDummyEvents(t *testing.T) {
	rep := &Report{Sections: []*Section{
		callSection(100, Row{"overhead": "100.00", FieldSamples: "100", FieldSourceSymbol: "a", FieldTargetSymbol: "b"}),
		{Event: "dummy_u", TotalSamples: 50, Fields: []string{FieldSamples}},
	}}

	merged, err := Merge(rep)
	require.NoError(t, err)
	require.Len(t, merged.Sections, 1)
	assert.Equal(t, "cycles_k", merged.Sections[0].Event)
}

func TestMerge_DisjointEvents(t *testing.T) {
	instructions := &Section{
		Event:        "instructions_u",
		TotalSamples: 70,
		Fields:       []string{FieldSamples, FieldSourceSymbol, FieldTargetSymbol},
		Rows:         []Row{{FieldSamples: "70", FieldSourceSymbol: "x", FieldTargetSymbol: "y"}},
	}
	first := &Report{Sections: []*Section{callSection(100,
		Row{"overhead": "100.00", FieldSamples: "100", FieldSourceSymbol: "a", FieldTargetSymbol: "b"},
	)}}
	second := &Report{Sections: []*Section{instructions}}

	merged, err := Merge(first, second)
	require.NoError(t, err)

	require.Len(t, merged.Sections, 2)
	assert.Equal(t, "cycles_k", merged.Sections[0].Event)
	assert.Equal(t, "instructions_u", merged.Sections[1].Event)
	assert.Equal(t, int64(70), merged.Sections[1].TotalSamples)
}

func TestMerge_Errors(t *testing.T) {
	_, err := Merge()
	require.Error(t, err)

	_, err = Merge(&Report{Sections: []*Section{{Event: "dummy_u"}}})
	require.Error(t, err, "nothing mergeable")

	// intersecting fields must still carry the call-graph columns
	incompatible := &Report{Sections: []*Section{{
		Event:  "cycles_k",
		Fields: []string{FieldSamples, "period"},
	}}}
	_, err = Merge(incompatible)
	require.Error(t, err)
}
