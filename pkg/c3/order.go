package c3

import (
	"sort"

	"github.com/hotsort/hotsort/pkg/callgraph"
)

// OrderClusters returns the live clusters sorted for final placement:
// density descending, ties broken by creation index ascending. The sort is
// stable and pure; applying it to an already-ordered set is a no-op.
func OrderClusters(cs *ClusterSet) []*Cluster {
	clusters := cs.Clusters()
	sort.SliceStable(clusters, func(i, j int) bool {
		di, dj := clusters[i].Density(), clusters[j].Density()
		if di != dj {
			return di > dj
		}
		return clusters[i].index < clusters[j].index
	})
	return clusters
}

// Order flattens the cluster set into the final placement sequence:
// clusters in density order, symbols within each cluster in the order the
// merges built. The result is a total, duplicate-free ordering of the
// graph's symbol set.
func Order(cs *ClusterSet) []*callgraph.Symbol {
	var out []*callgraph.Symbol
	for _, c := range OrderClusters(cs) {
		out = append(out, c.symbols...)
	}
	return out
}
