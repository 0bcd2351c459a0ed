// Command similarity checks a computed sorted layout against the real
// layout of a linked binary (from System.map or /proc/kallsyms) and
// reports missing and misplaced symbols.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"golang.org/x/xerrors"

	"github.com/hotsort/hotsort/pkg/config"
	"github.com/hotsort/hotsort/pkg/layout"
	"github.com/hotsort/hotsort/pkg/linker"
	"github.com/hotsort/hotsort/pkg/log"
	"github.com/hotsort/hotsort/pkg/symsize"
	"github.com/hotsort/hotsort/version"
)

func main() {
	printVersion := flag.Bool("version", false, "print version and exit")

	var conf config.SimilarityConfig
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

func run(logger *log.Logger, conf config.SimilarityConfig) error {
	if conf.SortedFile == "" {
		return xerrors.New("no sorted layout file given, see -sorted-file")
	}
	if conf.SystemMap == "" && !conf.Kallsyms {
		return xerrors.New("one of -system-map or -kallsyms must be given")
	}

	order, err := readSortedList(conf.SortedFile)
	if err != nil {
		return err
	}

	entries, err := readLayout(conf)
	if err != nil {
		return err
	}
	symbols := symsize.TextSymbols(entries)

	res, err := layout.Compare(order, symbols, conf.StartSymbol, conf.EndSymbol)
	if err != nil {
		return err
	}

	fmt.Printf("Similarity: %.2f%%\n", (1-res.MissingRatio())*100)
	fmt.Printf("%d missing symbols from a total of %d symbols.\n", len(res.Missing), res.Total)
	fmt.Printf("Out-of-place symbols: %.2f%%\n", res.OutOfPlaceRatio()*100)
	fmt.Printf("%d symbols outside the placed region from a total of %d symbols.\n", len(res.OutOfPlace), res.Total)
	fmt.Printf("Final ranking: %.2f%%\n", (1-res.UnplacedRatio())*100)
	fmt.Printf("%d placeable symbols ended up outside the placed region.\n", len(res.Unplaced))

	if conf.Logger.Debug() {
		if err := writeAnnotated(conf.SortedFile, "missing-similarity", res.Missing); err != nil {
			return err
		}
		if err := writeAnnotated(conf.SortedFile, "missing-out-of-place", res.OutOfPlace); err != nil {
			return err
		}
	}

	logger.Debugw("layout compared",
		"ordered", res.Total,
		"layout", len(symbols),
		"missing", len(res.Missing),
		"out_of_place", len(res.OutOfPlace),
	)
	return nil
}

func readSortedList(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, xerrors.Errorf("could not open sorted file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("could not read sorted file: %w", err)
	}

	// the sorted file may carry debug cluster markers
	return linker.StripAnnotations(lines), nil
}

func readLayout(conf config.SimilarityConfig) ([]symsize.Entry, error) {
	if conf.Kallsyms {
		return symsize.ReadKallsyms()
	}

	f, err := os.Open(conf.SystemMap)
	if err != nil {
		return nil, xerrors.Errorf("could not open system map: %w", err)
	}
	defer f.Close()
	return symsize.ParseSystemMap(f)
}

// writeAnnotated copies the sorted file, tagging the lines whose symbol is
// in missing.
func writeAnnotated(sortedFile, outFile string, missing []string) error {
	miss := make(map[string]bool, len(missing))
	for _, sym := range missing {
		miss[sym] = true
	}

	in, err := os.Open(sortedFile)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		stripped := linker.StripAnnotations([]string{line})
		if len(stripped) == 1 && miss[stripped[0]] {
			line = "missing -- " + line
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return w.Flush()
}
