// Package symsize extracts symbol sizes and layouts from kernel symbol
// tables: System.map files, /proc/kallsyms and the output of "nm -S".
package symsize

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Table maps symbol names to their byte size. It satisfies the call-graph
// builder's SizeSource.
type Table map[string]int64

func (t Table) SizeOf(symbol string) (int64, bool) {
	size, ok := t[symbol]
	return size, ok
}

// Entry is one symbol-table line.
type Entry struct {
	Addr uint64
	Type string
	Name string
}

func textSymbol(typ string) bool {
	return typ == "t" || typ == "T"
}

// ParseSystemMap reads System.map or /proc/kallsyms lines of the form
// "addr type symbol [module]". Entries come back sorted by address;
// unparsable lines are skipped.
func ParseSystemMap(r io.Reader) ([]Entry, error) {
	var entries []Entry

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 && len(fields) != 4 {
			continue
		}
		addr, err := strconv.ParseUint(fields[0], 16, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Addr: addr, Type: fields[1], Name: fields[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("symsize: read symbol map: %w", err)
	}

	// entries can come back swapped, the size calculation needs address order
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Addr < entries[j].Addr
	})
	return entries, nil
}

// Sizes derives symbol sizes from address-sorted entries: a text symbol's
// size is the distance to the next symbol's address. That is an upper
// bound, not a bit-precise size, since it includes any padding up to the
// next symbol.
func Sizes(entries []Entry) Table {
	sizes := make(Table)
	for i, e := range entries {
		if !textSymbol(e.Type) {
			continue
		}
		if i+1 >= len(entries) {
			sizes[e.Name] = 0
			continue
		}
		sizes[e.Name] = int64(entries[i+1].Addr - e.Addr)
	}
	return sizes
}

// TextSymbols returns the names of the text symbols in address order, the
// real layout of the binary's code section.
func TextSymbols(entries []Entry) []string {
	var names []string
	for _, e := range entries {
		if textSymbol(e.Type) {
			names = append(names, e.Name)
		}
	}
	return names
}

// ParseNM reads "nm -S" output lines of the form "addr size type symbol"
// and returns bit-precise sizes for the text symbols.
func ParseNM(r io.Reader) (Table, error) {
	sizes := make(Table)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 4 {
			continue
		}
		if !textSymbol(fields[2]) {
			continue
		}
		size, err := strconv.ParseInt(fields[1], 16, 64)
		if err != nil {
			continue
		}
		sizes[fields[3]] = size
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("symsize: read nm output: %w", err)
	}
	return sizes, nil
}

// ReadKallsyms parses the running kernel's symbol table.
func ReadKallsyms() ([]Entry, error) {
	f, err := os.Open("/proc/kallsyms")
	if err != nil {
		return nil, xerrors.Errorf("symsize: open kallsyms: %w", err)
	}
	defer f.Close()
	return ParseSystemMap(f)
}
