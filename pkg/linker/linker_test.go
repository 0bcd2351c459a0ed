package linker

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteList(&buf, []string{"alpha", "beta", "gamma"}))
	assert.Equal(t, "alpha\nbeta\ngamma\n", buf.String())
}

func TestWriteAnnotatedList(t *testing.T) {
	var buf bytes.Buffer
	err := WriteAnnotatedList(&buf, [][]string{
		{"alpha", "beta"},
		{"gamma"},
		{"delta"},
	})
	require.NoError(t, err)

	assert.Equal(t, "+  alpha\n+  beta\n#  gamma\n+  delta\n", buf.String())
}

func TestStripAnnotations(t *testing.T) {
	lines := []string{"+  alpha", "#  beta", "gamma", "", "+  "}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, StripAnnotations(lines))
}

func TestAnnotatedListRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnnotatedList(&buf, [][]string{{"alpha"}, {"beta", "gamma"}}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, StripAnnotations(lines))
}

func TestWriteScript(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScript(&buf, []string{"hot", "warm"}))

	want := `SECTIONS
{
  .text : {
    *(.text.hot)
    *(.text.warm)
  }
  *(.text*)
}
`
	assert.Equal(t, want, buf.String())
}

const ldsTemplate = `SECTIONS
{
 .text : AT(ADDR(.text) - LOAD_OFFSET) {
  _text = .;
  *(.text.hot .text.hot.*)
 } :text = 0x9090
}
`

func TestSpliceTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := SpliceTemplate(&buf, strings.NewReader(ldsTemplate), []string{"hot", "warm"}, false)
	require.NoError(t, err)

	out := buf.String()
	spliceAt := strings.Index(out, "*(.text.hot)\n  *(.text.warm)\n  *(.text*)")
	anchorAt := strings.Index(out, "} :text =")
	require.True(t, spliceAt >= 0, "spliced block missing:\n%s", out)
	assert.True(t, spliceAt < anchorAt, "splice must land before the anchor")

	// the template's own lines survive untouched
	assert.Contains(t, out, "_text = .;")
	assert.Contains(t, out, "} :text = 0x9090")
	assert.NotContains(t, out, StartMarker)
}

func TestSpliceTemplate_Markers(t *testing.T) {
	var buf bytes.Buffer
	err := SpliceTemplate(&buf, strings.NewReader(ldsTemplate), []string{"hot"}, true)
	require.NoError(t, err)

	out := buf.String()
	start := strings.Index(out, StartMarker+" = .;")
	block := strings.Index(out, "*(.text.hot)")
	end := strings.Index(out, EndMarker+" = .;")
	require.True(t, start >= 0 && end >= 0)
	assert.True(t, start < block && block < end)
}

func TestSpliceTemplate_NoAnchor(t *testing.T) {
	var buf bytes.Buffer
	err := SpliceTemplate(&buf, strings.NewReader("SECTIONS\n{\n}\n"), []string{"hot"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anchor")
}
