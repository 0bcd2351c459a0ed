package c3

import (
	"fmt"
	"sort"

	"github.com/hotsort/hotsort/pkg/callgraph"
	"github.com/hotsort/hotsort/pkg/log"
)

const (
	// DefaultMinProbability is the minimum arc weight for an arc to be
	// considered for merging.
	DefaultMinProbability = 0.1
	// DefaultPageSize caps cluster sizes at one 4KiB page.
	DefaultPageSize = 4096
)

// Options configure a clustering run.
type Options struct {
	// MinProbability is the minimum weight (samples / total samples) an
	// arc needs to influence cluster formation.
	MinProbability float64
	// PageSize is the maximum cluster size in bytes.
	PageSize int64
	// StrictBoundary requires both the source and the target to sit at
	// their cluster's boundary for a merge; by default one side suffices.
	StrictBoundary bool
	// ArcBudget, when positive, stops the engine after processing that
	// many arcs. The partition stays valid; remaining arcs are forfeited.
	// It is the cancellation gate for callers that need one.
	ArcBudget int
}

// DefaultOptions returns the options matching the defaults of the command
// line tools.
func DefaultOptions() Options {
	return Options{
		MinProbability: DefaultMinProbability,
		PageSize:       DefaultPageSize,
	}
}

// InvalidConfigError reports options rejected before any graph work starts.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Validate checks the options.
func (opts Options) Validate() error {
	if opts.PageSize <= 0 {
		return &InvalidConfigError{Reason: fmt.Sprintf("page size must be positive, got %d", opts.PageSize)}
	}
	if opts.MinProbability < 0 || opts.MinProbability > 1 {
		return &InvalidConfigError{Reason: fmt.Sprintf("min probability must be within [0, 1], got %g", opts.MinProbability)}
	}
	if opts.ArcBudget < 0 {
		return &InvalidConfigError{Reason: fmt.Sprintf("arc budget must be non-negative, got %d", opts.ArcBudget)}
	}
	return nil
}

// Stats are per-run counters. Forfeited arcs are not errors; the counters
// exist for debug output only.
type Stats struct {
	Arcs             int
	Merges           int
	SameCluster      int
	CapacityForfeits int
	BoundaryForfeits int
	BudgetForfeits   int
	Clusters         int
}

// Engine runs the call-chain clustering heuristic: a single deterministic
// greedy pass over the weight-sorted arc list, merging the clusters joined
// by the heaviest surviving arc, bounded by the page size.
//
// The heuristic follows the C3 algorithm from "Optimizing function
// placement for large-scale data-center applications" (Ottoni, Maher;
// CGO'17).
type Engine struct {
	logger *log.Logger
	opts   Options
}

// NewEngine validates opts and returns a ready engine.
func NewEngine(logger *log.Logger, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{logger: logger, opts: opts}, nil
}

// Run partitions the graph's symbols into clusters. The returned set is an
// exact partition of the graph's symbol set; symbols with no surviving
// arcs remain singleton clusters. Run never fails: an empty graph
// degenerates to the identity partition.
//
// The cluster set is owned by the engine while Run executes and must not
// be touched concurrently; once Run returns it is immutable by convention
// and only read by Order.
func (e *Engine) Run(g *callgraph.Graph) (*ClusterSet, Stats) {
	arcs := g.Filter(e.opts.MinProbability)
	sortArcs(arcs)

	cs := NewClusterSet(g)
	stats := Stats{Arcs: len(arcs)}

	if len(g.Symbols()) == 0 {
		e.logger.Infow("empty graph, nothing to cluster")
	}

	for i, arc := range arcs {
		if e.opts.ArcBudget > 0 && i >= e.opts.ArcBudget {
			stats.BudgetForfeits = len(arcs) - i
			e.logger.Infow("arc budget exhausted",
				"budget", e.opts.ArcBudget,
				"forfeited", stats.BudgetForfeits,
			)
			break
		}

		pred := cs.ClusterOf(arc.Source)
		succ := cs.ClusterOf(arc.Target)

		if pred == succ {
			// already colocated
			stats.SameCluster++
			continue
		}

		if !e.mergeAllowed(arc, pred, succ) {
			stats.BoundaryForfeits++
			continue
		}

		// predecessor absorbs successor, so the caller chain keeps its
		// established internal order
		if err := cs.Merge(pred, succ, e.opts.PageSize); err != nil {
			stats.CapacityForfeits++
			e.logger.Debugw("arc forfeited",
				"source", arc.Source.Name,
				"target", arc.Target.Name,
				"samples", arc.Samples,
				"size", pred.Size()+succ.Size(),
				"pagesize", e.opts.PageSize,
			)
			continue
		}
		stats.Merges++
	}

	cs.AttributeSamples(g)
	stats.Clusters = cs.Len()

	e.logger.Debugw("clustering done",
		"arcs", stats.Arcs,
		"merges", stats.Merges,
		"same_cluster", stats.SameCluster,
		"capacity_forfeits", stats.CapacityForfeits,
		"boundary_forfeits", stats.BoundaryForfeits,
		"clusters", stats.Clusters,
	)

	return cs, stats
}

// mergeAllowed is the boundary rule: a merge may only happen at the
// existing edge of an already-built chain, so previously formed hot chains
// are extended rather than interleaved. The target must be the head of its
// cluster or the source the tail of its cluster; in strict mode, both.
func (e *Engine) mergeAllowed(arc *callgraph.Arc, pred, succ *Cluster) bool {
	sourceAtTail := pred.tail() == arc.Source
	targetAtHead := succ.head() == arc.Target
	if e.opts.StrictBoundary {
		return sourceAtTail && targetAtHead
	}
	return sourceAtTail || targetAtHead
}

// sortArcs orders arcs descending by sample count; equal-weight arcs fall
// back to the source's, then the target's creation index, so the pass is
// reproducible regardless of how the input was assembled.
func sortArcs(arcs []*callgraph.Arc) {
	sort.SliceStable(arcs, func(i, j int) bool {
		a, b := arcs[i], arcs[j]
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		if a.Source.Index != b.Source.Index {
			return a.Source.Index < b.Source.Index
		}
		return a.Target.Index < b.Target.Index
	})
}
