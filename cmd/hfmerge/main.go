// Command hfmerge combines the call-graph information from multiple report
// files into a single aggregated report, summing samples per caller-callee
// pair. With -store.dir the arcs accumulate in a persistent store instead,
// so captures can be folded in incrementally across invocations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/dustin/go-humanize"
	"golang.org/x/xerrors"

	"github.com/hotsort/hotsort/pkg/config"
	"github.com/hotsort/hotsort/pkg/log"
	"github.com/hotsort/hotsort/pkg/perfreport"
	badgerStorage "github.com/hotsort/hotsort/pkg/storage/badger"
	"github.com/hotsort/hotsort/version"
)

func main() {
	printVersion := flag.Bool("version", false, "print version and exit")

	var conf config.MergeConfig
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

	if err := run(context.Background(), logger, conf); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, logger *log.Logger, conf config.MergeConfig) error {
	if len(conf.Reports) == 0 && conf.StoreDir == "" {
		return xerrors.New("no report files given, see -report")
	}

	reports, err := parseReports(logger, conf)
	if err != nil {
		return err
	}

	var merged *perfreport.Report
	if conf.StoreDir != "" {
		merged, err = mergeThroughStore(ctx, logger, conf, reports)
	} else {
		merged, err = perfreport.Merge(reports...)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(conf.Output)
	if err != nil {
		return xerrors.Errorf("could not create %s: %w", conf.Output, err)
	}
	if err := perfreport.NewWriter(conf.FieldSeparator).WriteReport(f, merged); err != nil {
		f.Close()
		return xerrors.Errorf("could not write %s: %w", conf.Output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	var total int64
	for _, s := range merged.Sections {
		total += s.TotalSamples
	}
	logger.Infow("reports merged",
		"reports", len(reports),
		"sections", len(merged.Sections),
		"total_samples", humanize.Comma(total),
		"output", conf.Output,
	)
	return nil
}

func parseReports(logger *log.Logger, conf config.MergeConfig) ([]*perfreport.Report, error) {
	parser := perfreport.NewParser(conf.FieldSeparator)

	reports := make([]*perfreport.Report, 0, len(conf.Reports))
	for _, name := range conf.Reports {
		f, err := os.Open(name)
		if err != nil {
			return nil, xerrors.Errorf("could not open report: %w", err)
		}

		rep, err := parser.Parse(f)
		f.Close()
		if err != nil {
			return nil, xerrors.Errorf("could not parse %s: %w", name, err)
		}

		logger.Debugw("report parsed", "file", name, "sections", len(rep.Sections))
		reports = append(reports, rep)
	}
	return reports, nil
}

// mergeThroughStore folds the parsed reports into the persistent arc store
// and exports the accumulated aggregate back as a report.
func mergeThroughStore(ctx context.Context, logger *log.Logger, conf config.MergeConfig, reports []*perfreport.Report) (*perfreport.Report, error) {
	db, err := badger.Open(badger.DefaultOptions(conf.StoreDir))
	if err != nil {
		return nil, xerrors.Errorf("could not open store: %w", err)
	}
	defer db.Close()

	st := badgerStorage.New(logger.With("component", "store"), db)

	for i, rep := range reports {
		file := conf.Reports[i]
		for _, section := range rep.Sections {
			if strings.Contains(section.Event, "dummy") {
				continue
			}
			meta, err := st.ImportSection(ctx, file, section)
			if err != nil {
				return nil, err
			}
			logger.Infow("capture imported",
				"capture", meta.ID,
				"file", meta.File,
				"event", meta.Event,
				"rows", meta.Rows,
			)
		}
	}

	return st.Report(ctx)
}
