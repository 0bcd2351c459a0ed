package callgraph

// Symbol is a function in the profiled binary. Index is the symbol's
// discovery order in the input and is the tie-breaking key everywhere the
// pipeline needs a deterministic order.
type Symbol struct {
	Name  string
	Size  int64
	Index int
}

// Arc is the accumulated caller->callee relationship. Arcs are unique per
// (source, target) pair; repeated observations sum into Samples.
type Arc struct {
	Source  *Symbol
	Target  *Symbol
	Samples int64
}

// SelfArc reports whether the arc is a recursive call.
func (a *Arc) SelfArc() bool {
	return a.Source == a.Target
}

// Graph is an immutable weighted directed call graph.
type Graph struct {
	symbols map[string]*Symbol
	order   []*Symbol

	arcs     map[arcKey]*Arc
	arcOrder []*Arc

	totalSamples int64
}

type arcKey struct {
	source, target string
}

// Symbols returns all symbols in discovery order.
func (g *Graph) Symbols() []*Symbol {
	return g.order
}

// Symbol returns the named symbol, or nil if the graph does not contain it.
func (g *Graph) Symbol(name string) *Symbol {
	return g.symbols[name]
}

// Arcs returns all arcs, self-arcs included, in discovery order of their
// (source, target) pair.
func (g *Graph) Arcs() []*Arc {
	return g.arcOrder
}

// TotalSamples is the sum of all arc samples. It is the normalization
// denominator for arc weights.
func (g *Graph) TotalSamples() int64 {
	return g.totalSamples
}

// Weight is the arc's share of the graph's total samples.
func (g *Graph) Weight(arc *Arc) float64 {
	if g.totalSamples == 0 {
		return 0
	}
	return float64(arc.Samples) / float64(g.totalSamples)
}

func (g *Graph) symbol(name string, size int64) *Symbol {
	sym := g.symbols[name]
	if sym == nil {
		sym = &Symbol{
			Name:  name,
			Size:  size,
			Index: len(g.order),
		}
		g.symbols[name] = sym
		g.order = append(g.order, sym)
		return sym
	}
	// conflicting size observations resolve to the larger value, a
	// conservative upper bound
	if size > sym.Size {
		sym.Size = size
	}
	return sym
}

func (g *Graph) addArc(source, target *Symbol, samples int64) {
	key := arcKey{source.Name, target.Name}
	arc := g.arcs[key]
	if arc == nil {
		arc = &Arc{Source: source, Target: target}
		g.arcs[key] = arc
		g.arcOrder = append(g.arcOrder, arc)
	}
	arc.Samples += samples
	g.totalSamples += samples
}
