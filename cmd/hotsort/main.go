// Command hotsort computes a near-optimal function placement for a
// binary's code section from a profiled call-graph report, using the
// call-chain clustering (C3) heuristic, and renders it as a sorted symbol
// list or linker script.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/xerrors"

	"github.com/hotsort/hotsort/pkg/c3"
	"github.com/hotsort/hotsort/pkg/callgraph"
	"github.com/hotsort/hotsort/pkg/config"
	"github.com/hotsort/hotsort/pkg/linker"
	"github.com/hotsort/hotsort/pkg/log"
	"github.com/hotsort/hotsort/pkg/perfreport"
	"github.com/hotsort/hotsort/pkg/symsize"
	"github.com/hotsort/hotsort/version"
)

func main() {
	printVersion := flag.Bool("version", false, "print version and exit")

	var conf config.SortConfig
	conf.RegisterFlags(flag.CommandLine)

	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(1)
	}

	logger, err := conf.Logger.Build()
	if err != nil {
		panic(err)
	}

	if err := run(logger, conf); err != nil {
		logger.Fatal(err)
	}
}

func run(logger *log.Logger, conf config.SortConfig) error {
	if conf.Report == "" {
		return xerrors.New("no report file given, see -report")
	}
	if conf.Kallsyms && conf.SizeFile != "" {
		return xerrors.New("-kallsyms and -sizefile can't be used together")
	}

	// reject bad clustering options before touching the report
	engine, err := c3.NewEngine(logger.With("component", "c3"), conf.C3Options())
	if err != nil {
		return err
	}

	section, records, err := parseReport(logger, conf)
	if err != nil {
		return err
	}

	buildOpts, err := sizeSource(logger, conf)
	if err != nil {
		return err
	}

	graph, err := callgraph.Build(records, buildOpts...)
	if err != nil {
		return xerrors.Errorf("could not build call graph: %w", err)
	}
	if len(graph.Symbols()) == 0 {
		logger.Infow("no symbols survived parsing, writing identity order")
	}

	clusterSet, stats := engine.Run(graph)
	clusters := c3.OrderClusters(clusterSet)

	if err := writeOutputs(conf, clusters); err != nil {
		return err
	}

	logger.Infow("layout computed",
		"event", section.Event,
		"symbols", len(graph.Symbols()),
		"clusters", stats.Clusters,
		"merges", stats.Merges,
		"output", conf.Output,
	)
	return nil
}

func parseReport(logger *log.Logger, conf config.SortConfig) (*perfreport.Section, []callgraph.Record, error) {
	f, err := os.Open(conf.Report)
	if err != nil {
		return nil, nil, xerrors.Errorf("could not open report: %w", err)
	}
	defer f.Close()

	rep, err := perfreport.NewParser(conf.FieldSeparator).Parse(f)
	if err != nil {
		return nil, nil, err
	}

	section, err := rep.CallSection()
	if err != nil {
		return nil, nil, err
	}

	records, stats, err := section.Records()
	if err != nil {
		return nil, nil, err
	}

	logger.Infow("report parsed",
		"event", section.Event,
		"rows", stats.Rows,
		"total_samples", humanize.Comma(section.TotalSamples),
	)
	if stats.HexRows > 0 || stats.NoSizes > 0 {
		logger.Debugw("rows skipped or incomplete",
			"hex_rows", stats.HexRows,
			"missing_sizes", stats.NoSizes,
		)
	}

	return section, records, nil
}

func sizeSource(logger *log.Logger, conf config.SortConfig) ([]callgraph.BuildOption, error) {
	switch {
	case conf.Kallsyms:
		entries, err := symsize.ReadKallsyms()
		if err != nil {
			return nil, err
		}
		sizes := symsize.Sizes(entries)
		logger.Debugw("symbol sizes from kallsyms", "symbols", len(sizes))
		return []callgraph.BuildOption{callgraph.WithSizeSource(sizes)}, nil

	case conf.SizeFile != "":
		f, err := os.Open(conf.SizeFile)
		if err != nil {
			return nil, xerrors.Errorf("could not open sizefile: %w", err)
		}
		defer f.Close()

		sizes, err := symsize.ParseNM(f)
		if err != nil {
			return nil, err
		}
		logger.Debugw("symbol sizes from sizefile", "file", conf.SizeFile, "symbols", len(sizes))
		return []callgraph.BuildOption{callgraph.WithSizeSource(sizes)}, nil
	}

	return nil, nil
}

func writeOutputs(conf config.SortConfig, clusters []*c3.Cluster) error {
	groups := make([][]string, 0, len(clusters))
	var names []string
	for _, c := range clusters {
		group := make([]string, 0, len(c.Symbols()))
		for _, sym := range c.Symbols() {
			group = append(group, sym.Name)
		}
		groups = append(groups, group)
		names = append(names, group...)
	}

	debug := conf.Logger.Debug()

	err := writeFile(conf.Output, func(w *os.File) error {
		if debug {
			return linker.WriteAnnotatedList(w, groups)
		}
		return linker.WriteList(w, names)
	})
	if err != nil {
		return err
	}

	if conf.LinkerScript != "" {
		err := writeFile(conf.LinkerScript, func(w *os.File) error {
			return linker.WriteScript(w, names)
		})
		if err != nil {
			return err
		}
	}

	if conf.Template != "" {
		tpl, err := os.Open(conf.Template)
		if err != nil {
			return xerrors.Errorf("could not open template: %w", err)
		}
		defer tpl.Close()

		err = writeFile("vmlinux.lds", func(w *os.File) error {
			return linker.SpliceTemplate(w, tpl, names, debug)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func writeFile(name string, write func(*os.File) error) error {
	f, err := os.Create(name)
	if err != nil {
		return xerrors.Errorf("could not create %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return xerrors.Errorf("could not write %s: %w", name, err)
	}
	return f.Close()
}
