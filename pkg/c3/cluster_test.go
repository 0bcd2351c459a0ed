package c3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotsort/hotsort/pkg/callgraph"
)

func buildGraph(t *testing.T, records []callgraph.Record) *callgraph.Graph {
	t.Helper()
	g, err := callgraph.Build(records)
	require.NoError(t, err)
	return g
}

func symbolNames(c *Cluster) []string {
	names := make([]string, 0, len(c.Symbols()))
	for _, sym := range c.Symbols() {
		names = append(names, sym.Name)
	}
	return names
}

func TestNewClusterSet(t *testing.T) {
	g := buildGraph(t, []callgraph.Record{
		{Source: "a", Target: "b", Samples: 10, TargetSize: 100},
		{Source: "b", Target: "c", Samples: 5, TargetSize: 50},
	})

	cs := NewClusterSet(g)
	require.Equal(t, 3, cs.Len())

	for _, sym := range g.Symbols() {
		c := cs.ClusterOf(sym)
		require.NotNil(t, c)
		assert.Equal(t, []string{sym.Name}, symbolNames(c))
		assert.Equal(t, sym.Size, c.Size())
		assert.Equal(t, sym.Index, c.Index())
	}
}

func TestClusterSet_Merge(t *testing.T) {
	g := buildGraph(t, []callgraph.Record{
		{Source: "a", Target: "b", Samples: 10, SourceSize: 100, TargetSize: 200},
	})

	cs := NewClusterSet(g)
	a := cs.ClusterOf(g.Symbol("a"))
	b := cs.ClusterOf(g.Symbol("b"))

	require.NoError(t, cs.Merge(a, b, 4096))

	assert.Equal(t, 1, cs.Len())
	assert.Equal(t, []string{"a", "b"}, symbolNames(a))
	assert.Equal(t, int64(300), a.Size())
	assert.Equal(t, a.Index(), g.Symbol("a").Index)

	// the lookup follows the absorbed symbols
	assert.True(t, cs.ClusterOf(g.Symbol("b")) == a)

	live := cs.Clusters()
	require.Len(t, live, 1)
	assert.True(t, live[0] == a)
}

func TestClusterSet_MergeCapacity(t *testing.T) {
	g := buildGraph(t, []callgraph.Record{
		{Source: "a", Target: "b", Samples: 10, SourceSize: 100, TargetSize: 100},
	})

	cs := NewClusterSet(g)
	a := cs.ClusterOf(g.Symbol("a"))
	b := cs.ClusterOf(g.Symbol("b"))

	err := cs.Merge(a, b, 150)
	require.Equal(t, ErrCapacityExceeded, err)

	// a failed merge mutates nothing
	assert.Equal(t, 2, cs.Len())
	assert.Equal(t, []string{"a"}, symbolNames(a))
	assert.Equal(t, []string{"b"}, symbolNames(b))
	assert.True(t, cs.ClusterOf(g.Symbol("b")) == b)
}

func TestClusterSet_AttributeSamples(t *testing.T) {
	g := buildGraph(t, []callgraph.Record{
		{Source: "a", Target: "b", Samples: 900},
		{Source: "b", Target: "c", Samples: 100},
		{Source: "c", Target: "c", Samples: 7},
	})

	cs := NewClusterSet(g)
	cs.AttributeSamples(g)

	// only the self-arc is internal while everything is a singleton
	assert.Equal(t, int64(0), cs.ClusterOf(g.Symbol("a")).Samples())
	assert.Equal(t, int64(0), cs.ClusterOf(g.Symbol("b")).Samples())
	assert.Equal(t, int64(7), cs.ClusterOf(g.Symbol("c")).Samples())

	a := cs.ClusterOf(g.Symbol("a"))
	require.NoError(t, cs.Merge(a, cs.ClusterOf(g.Symbol("b")), 4096))
	cs.AttributeSamples(g)

	assert.Equal(t, int64(900), a.Samples())
}

func TestCluster_Density(t *testing.T) {
	c := &Cluster{samples: 100, size: 50}
	assert.Equal(t, 2.0, c.Density())

	// unknown sizes count as one byte
	c = &Cluster{samples: 100, size: 0}
	assert.Equal(t, 100.0, c.Density())
}
