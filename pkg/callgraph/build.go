package callgraph

import "fmt"

// Record is a single observation of a caller->callee call, as produced by
// the report parsing layer. A zero size means the size is unknown.
type Record struct {
	Source     string
	Target     string
	Samples    int64
	SourceSize int64
	TargetSize int64
}

// SizeSource supplies bit-precise symbol sizes, e.g. from the output of
// "nm -S". When present it overrides any size carried by the records.
type SizeSource interface {
	SizeOf(symbol string) (int64, bool)
}

// MalformedRecordError reports an input record that cannot contribute to a
// graph. Graph construction fails fast on the first malformed record; no
// partial graph is built.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d: %s", e.Index, e.Reason)
}

// BuildOption customizes graph construction.
type BuildOption func(*builder)

// WithSizeSource makes the builder take symbol sizes from ss, overriding
// sizes observed in the records.
func WithSizeSource(ss SizeSource) BuildOption {
	return func(b *builder) {
		b.sizes = ss
	}
}

type builder struct {
	sizes SizeSource
}

// Build constructs a call graph from records. Duplicate (source, target)
// pairs accumulate by summing sample counts. Symbols get their size from
// the first non-empty observation, a larger conflicting observation, or the
// configured SizeSource, in increasing order of authority.
func Build(records []Record, opts ...BuildOption) (*Graph, error) {
	var b builder
	for _, opt := range opts {
		opt(&b)
	}

	g := &Graph{
		symbols: make(map[string]*Symbol),
		arcs:    make(map[arcKey]*Arc),
	}

	for i, rec := range records {
		if err := validateRecord(i, rec); err != nil {
			return nil, err
		}

		source := g.symbol(rec.Source, rec.SourceSize)
		target := g.symbol(rec.Target, rec.TargetSize)
		g.addArc(source, target, rec.Samples)
	}

	// a bit-precise size source beats any size observed in the records
	if b.sizes != nil {
		for _, sym := range g.order {
			if size, ok := b.sizes.SizeOf(sym.Name); ok {
				sym.Size = size
			}
		}
	}

	return g, nil
}

func validateRecord(i int, rec Record) error {
	switch {
	case rec.Source == "":
		return &MalformedRecordError{Index: i, Reason: "missing source symbol"}
	case rec.Target == "":
		return &MalformedRecordError{Index: i, Reason: "missing target symbol"}
	case rec.Samples < 0:
		return &MalformedRecordError{Index: i, Reason: fmt.Sprintf("negative sample count %d", rec.Samples)}
	case rec.SourceSize < 0 || rec.TargetSize < 0:
		return &MalformedRecordError{Index: i, Reason: "negative symbol size"}
	}
	return nil
}
