// Package linker renders a computed symbol order into the forms the build
// pipeline consumes: a plain sorted list, a standalone linker script, or a
// full vmlinux.lds template with the order spliced into its text section.
package linker

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/xerrors"
)

const (
	indent = "  "
	// templateAnchor marks the end of the text section in a vmlinux.lds
	// template; the symbol order is inserted right before it.
	templateAnchor = "} :text ="

	// StartMarker and EndMarker delimit the custom layout inside the
	// linked binary, for later verification against the real layout.
	StartMarker = "__hfsort_start"
	EndMarker   = "__hfsort_end"
)

// debug list markers, alternating per cluster
var clusterMarkers = [...]string{"+", "#"}

// WriteList writes one symbol per line.
func WriteList(w io.Writer, symbols []string) error {
	for _, sym := range symbols {
		if _, err := fmt.Fprintln(w, sym); err != nil {
			return err
		}
	}
	return nil
}

// WriteAnnotatedList writes the symbols grouped by cluster, prefixing each
// line with an alternating cluster marker so cluster boundaries stay
// visible in the output.
func WriteAnnotatedList(w io.Writer, clusters [][]string) error {
	for i, cluster := range clusters {
		marker := clusterMarkers[i%len(clusterMarkers)]
		for _, sym := range cluster {
			if _, err := fmt.Fprintf(w, "%s  %s\n", marker, sym); err != nil {
				return err
			}
		}
	}
	return nil
}

// StripAnnotations removes the cluster markers WriteAnnotatedList adds, so
// an annotated list can feed the verification tools.
func StripAnnotations(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimLeft(sym, "#+")
		sym = strings.TrimSpace(sym)
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// WriteScript writes a minimal linker script placing each symbol's
// .text.SYMBOL input section in order, with a catch-all for the rest.
func WriteScript(w io.Writer, symbols []string) error {
	if _, err := io.WriteString(w, "SECTIONS\n{\n"+indent+".text : {\n"); err != nil {
		return err
	}
	for _, sym := range symbols {
		if _, err := fmt.Fprintf(w, "%s*(.text.%s)\n", indent+indent, sym); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, indent+"}\n"+indent+"*(.text*)\n}\n")
	return err
}

// SpliceTemplate copies a linker-script template, inserting the ordered
// *(.text.SYMBOL) lines right before the template's text-section anchor.
// With markers enabled the inserted block is bracketed by the start and
// end marker symbols, so the placed region can be located in the linked
// binary.
func SpliceTemplate(w io.Writer, template io.Reader, symbols []string, markers bool) error {
	bw := bufio.NewWriter(w)

	spliced := false
	sc := bufio.NewScanner(template)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()

		if !spliced && strings.Contains(line, templateAnchor) {
			if err := writeSplice(bw, symbols, markers); err != nil {
				return err
			}
			spliced = true
		}

		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return xerrors.Errorf("linker: read template: %w", err)
	}
	if !spliced {
		return xerrors.Errorf("linker: template has no %q anchor", templateAnchor)
	}

	return bw.Flush()
}

func writeSplice(w io.Writer, symbols []string, markers bool) error {
	if markers {
		if _, err := fmt.Fprintf(w, "%s%s = .;\n", indent, StartMarker); err != nil {
			return err
		}
	}
	for _, sym := range symbols {
		if _, err := fmt.Fprintf(w, "%s*(.text.%s)\n", indent, sym); err != nil {
			return err
		}
	}
	if markers {
		if _, err := fmt.Fprintf(w, "%s%s = .;\n", indent, EndMarker); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s*(.text*)\n", indent)
	return err
}
