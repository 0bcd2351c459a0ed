package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	order := []string{"hot1", "hot2", "stray", "gone"}
	binary := []string{
		"_text",
		"__hfsort_start",
		"hot1",
		"hot2",
		"__hfsort_end",
		"stray",
	}

	res, err := Compare(order, binary, "__hfsort_start", "__hfsort_end")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, []string{"gone"}, res.Missing)
	assert.Equal(t, []string{"stray", "gone"}, res.OutOfPlace)
	assert.Equal(t, []string{"stray"}, res.Unplaced)

	assert.InDelta(t, 0.25, res.MissingRatio(), 1e-9)
	assert.InDelta(t, 0.5, res.OutOfPlaceRatio(), 1e-9)
	assert.InDelta(t, 0.25, res.UnplacedRatio(), 1e-9)
}

func TestCompare_PerfectPlacement(t *testing.T) {
	order := []string{"a", "b"}
	binary := []string{"start", "a", "b", "end"}

	res, err := Compare(order, binary, "start", "end")
	require.NoError(t, err)

	assert.Empty(t, res.Missing)
	assert.Empty(t, res.OutOfPlace)
	assert.Empty(t, res.Unplaced)
	assert.Equal(t, 0.0, res.OutOfPlaceRatio())
}

func TestCompare_MissingMarkers(t *testing.T) {
	_, err := Compare([]string{"a"}, []string{"a", "end"}, "start", "end")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")

	_, err = Compare([]string{"a"}, []string{"start", "a"}, "start", "end")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end")
}

func TestCompare_EmptyWindow(t *testing.T) {
	// markers in reverse order leave an empty placed region
	res, err := Compare([]string{"a"}, []string{"end", "a", "start"}, "start", "end")
	require.NoError(t, err)

	assert.Empty(t, res.Missing)
	assert.Equal(t, []string{"a"}, res.OutOfPlace)
	assert.Equal(t, []string{"a"}, res.Unplaced)
}

func TestResult_EmptyOrder(t *testing.T) {
	res, err := Compare(nil, []string{"start", "end"}, "start", "end")
	require.NoError(t, err)

	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0.0, res.MissingRatio())
	assert.Equal(t, 0.0, res.UnplacedRatio())
}
