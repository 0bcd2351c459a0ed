package callgraph

// Filter returns the arcs that are relevant for clustering: self-arcs are
// dropped unconditionally (a recursive call carries no layout information),
// and an arc survives only if its weight is at least minProbability.
// Filtering is a pure function over the graph; arcs keep their discovery
// order.
func (g *Graph) Filter(minProbability float64) []*Arc {
	arcs := make([]*Arc, 0, len(g.arcOrder))
	for _, arc := range g.arcOrder {
		if arc.SelfArc() {
			continue
		}
		if g.Weight(arc) < minProbability {
			continue
		}
		arcs = append(arcs, arc)
	}
	return arcs
}
