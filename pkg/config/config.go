package config

import (
	"flag"
	"strings"

	"github.com/hotsort/hotsort/pkg/c3"
	"github.com/hotsort/hotsort/pkg/linker"
	"github.com/hotsort/hotsort/pkg/log"
)

const (
	defaultFieldSeparator = "$"
	defaultOutput         = "sorted"
)

// SortConfig configures the hotsort binary.
type SortConfig struct {
	Logger log.Config

	Report         string
	Output         string
	FieldSeparator string
	LinkerScript   string
	Template       string

	MinProbability float64
	PageSize       int64
	StrictBoundary bool
	ArcBudget      int

	Kallsyms bool
	SizeFile string
}

func (conf *SortConfig) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&conf.Report, "report", "", "report file with observed samples for each caller-callee call")
	f.StringVar(&conf.Output, "o", defaultOutput, "file to write the sorted symbol list to")
	f.StringVar(&conf.FieldSeparator, "field-separator", defaultFieldSeparator, "field separator used in the report file")
	f.StringVar(&conf.LinkerScript, "linker-script", "", "write the sorted list as a simple linker script to this file")
	f.StringVar(&conf.Template, "template", "", "vmlinux.lds template to splice the sorted list into (written to vmlinux.lds)")

	f.Float64Var(&conf.MinProbability, "min-probability", c3.DefaultMinProbability, "minimum arc weight (samples / total samples) for an arc to be considered")
	f.Int64Var(&conf.PageSize, "page-size", c3.DefaultPageSize, "maximum cluster size in bytes")
	f.BoolVar(&conf.StrictBoundary, "strict-boundary", false, "require both merge sides to sit at their cluster boundary")
	f.IntVar(&conf.ArcBudget, "arc-budget", 0, "stop clustering after this many arcs (0 means no limit)")

	f.BoolVar(&conf.Kallsyms, "kallsyms", false, "take symbol sizes from /proc/kallsyms (upper bound, not bit precise)")
	f.StringVar(&conf.SizeFile, "sizefile", "", "bit-precise symbol size file, created with 'nm -S vmlinux'")

	conf.Logger.RegisterFlags(f)
}

// C3Options maps the flag values onto engine options.
func (conf *SortConfig) C3Options() c3.Options {
	return c3.Options{
		MinProbability: conf.MinProbability,
		PageSize:       conf.PageSize,
		StrictBoundary: conf.StrictBoundary,
		ArcBudget:      conf.ArcBudget,
	}
}

// MergeConfig configures the hfmerge binary.
type MergeConfig struct {
	Logger log.Config

	Reports        ReportList
	Output         string
	FieldSeparator string
	StoreDir       string
}

func (conf *MergeConfig) RegisterFlags(f *flag.FlagSet) {
	f.Var(&conf.Reports, "report", "report file to merge; repeat the flag or pass a comma-separated list")
	f.StringVar(&conf.Output, "o", "callgraph.report", "file to write the merged report to")
	f.StringVar(&conf.FieldSeparator, "field-separator", defaultFieldSeparator, "field separator used across all report files")
	f.StringVar(&conf.StoreDir, "store.dir", "", "accumulate arcs into a persistent store in this directory instead of a one-shot merge")

	conf.Logger.RegisterFlags(f)
}

// ReportList collects repeated or comma-separated -report values.
type ReportList []string

func (l *ReportList) String() string {
	return strings.Join(*l, ",")
}

func (l *ReportList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// SimilarityConfig configures the similarity binary.
type SimilarityConfig struct {
	Logger log.Config

	SortedFile  string
	SystemMap   string
	Kallsyms    bool
	StartSymbol string
	EndSymbol   string
}

func (conf *SimilarityConfig) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&conf.SortedFile, "sorted-file", "", "computed sorted layout file to verify")
	f.StringVar(&conf.SystemMap, "system-map", "", "System.map file with the real layout to check against")
	f.BoolVar(&conf.Kallsyms, "kallsyms", false, "check against the layout of the running kernel from /proc/kallsyms")
	f.StringVar(&conf.StartSymbol, "start-symbol", linker.StartMarker, "symbol marking the start of the placed region")
	f.StringVar(&conf.EndSymbol, "end-symbol", linker.EndMarker, "symbol marking the end of the placed region")

	conf.Logger.RegisterFlags(f)
}
