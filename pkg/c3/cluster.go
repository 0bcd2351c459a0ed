package c3

import (
	"golang.org/x/xerrors"

	"github.com/hotsort/hotsort/pkg/callgraph"
)

// ErrCapacityExceeded is returned by ClusterSet.Merge when the combined
// cluster would not fit into the configured page size. The merge engine
// handles it internally by forfeiting the arc; it never reaches callers of
// the engine.
var ErrCapacityExceeded = xerrors.New("c3: merged cluster would exceed page size")

// Cluster is an ordered group of symbols destined to be placed contiguously.
// The internal symbol order is built up during merging and is never
// re-sorted afterwards.
type Cluster struct {
	index   int
	symbols []*callgraph.Symbol
	size    int64
	samples int64
	dead    bool
}

// Index is the cluster's creation index, the deterministic tie-breaker for
// final ordering.
func (c *Cluster) Index() int {
	return c.index
}

// Symbols returns the cluster's symbols in layout order.
func (c *Cluster) Symbols() []*callgraph.Symbol {
	return c.symbols
}

// Size is the total byte size of the cluster's symbols.
func (c *Cluster) Size() int64 {
	return c.size
}

// Samples is the total sample count of the graph's arcs internal to the
// cluster, as computed by AttributeSamples.
func (c *Cluster) Samples() int64 {
	return c.samples
}

// Density is samples per byte of the cluster, the "how hot per unit of
// code" metric used for final ordering. A zero-sized cluster counts as one
// byte.
func (c *Cluster) Density() float64 {
	size := c.size
	if size < 1 {
		size = 1
	}
	return float64(c.samples) / float64(size)
}

func (c *Cluster) head() *callgraph.Symbol {
	return c.symbols[0]
}

func (c *Cluster) tail() *callgraph.Symbol {
	return c.symbols[len(c.symbols)-1]
}

// ClusterSet is a mutable partition of a graph's symbols into clusters.
// Every symbol belongs to exactly one cluster at all times.
type ClusterSet struct {
	clusters []*Cluster
	bySymbol map[string]*Cluster
	active   int
}

// NewClusterSet seeds the partition with one singleton cluster per symbol,
// in the symbols' discovery order.
func NewClusterSet(g *callgraph.Graph) *ClusterSet {
	symbols := g.Symbols()

	cs := &ClusterSet{
		clusters: make([]*Cluster, 0, len(symbols)),
		bySymbol: make(map[string]*Cluster, len(symbols)),
		active:   len(symbols),
	}
	for _, sym := range symbols {
		c := &Cluster{
			index:   sym.Index,
			symbols: []*callgraph.Symbol{sym},
			size:    sym.Size,
		}
		cs.clusters = append(cs.clusters, c)
		cs.bySymbol[sym.Name] = c
	}
	return cs
}

// AttributeSamples recomputes every cluster's sample total as the sum of
// the graph's arcs that are internal to the cluster, self-arcs included.
// Heat only counts toward a cluster once both endpoints landed in it;
// that keeps singleton clusters cold and final ordering driven by the
// chains the merges actually built.
func (cs *ClusterSet) AttributeSamples(g *callgraph.Graph) {
	for _, c := range cs.clusters {
		c.samples = 0
	}
	for _, arc := range g.Arcs() {
		c := cs.bySymbol[arc.Source.Name]
		if c == cs.bySymbol[arc.Target.Name] {
			c.samples += arc.Samples
		}
	}
}

// ClusterOf returns the cluster currently owning the symbol.
func (cs *ClusterSet) ClusterOf(sym *callgraph.Symbol) *Cluster {
	return cs.bySymbol[sym.Name]
}

// Len is the number of live clusters.
func (cs *ClusterSet) Len() int {
	return cs.active
}

// Clusters returns the live clusters in creation order.
func (cs *ClusterSet) Clusters() []*Cluster {
	out := make([]*Cluster, 0, cs.active)
	for _, c := range cs.clusters {
		if !c.dead {
			out = append(out, c)
		}
	}
	return out
}

// Merge makes cluster a absorb cluster b: b's symbol sequence is appended
// after a's, sizes and sample totals are summed, a keeps its creation
// index and b is removed from the set. Merge fails with
// ErrCapacityExceeded, mutating nothing, if the combined size would exceed
// pageSize.
func (cs *ClusterSet) Merge(a, b *Cluster, pageSize int64) error {
	if a.size+b.size > pageSize {
		return ErrCapacityExceeded
	}

	a.symbols = append(a.symbols, b.symbols...)
	a.size += b.size
	a.samples += b.samples

	for _, sym := range b.symbols {
		cs.bySymbol[sym.Name] = a
	}

	b.dead = true
	b.symbols = nil
	cs.active--

	return nil
}
