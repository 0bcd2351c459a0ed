// Package layout verifies a computed symbol order against the real layout
// of an already-linked binary, obtained from its symbol table.
package layout

import "golang.org/x/xerrors"

// Result reports how well the linked binary follows the computed order.
type Result struct {
	// Total is the number of symbols in the computed order.
	Total int
	// Missing are ordered symbols that do not exist anywhere in the
	// real layout.
	Missing []string
	// OutOfPlace are ordered symbols not found inside the placed
	// region, the window between the start and end marker symbols.
	OutOfPlace []string
	// Unplaced are the out-of-place symbols that do exist elsewhere in
	// the binary, i.e. OutOfPlace minus Missing. They were compiled in
	// but ended up outside the custom layout.
	Unplaced []string
}

// MissingRatio is the share of ordered symbols absent from the binary.
func (r *Result) MissingRatio() float64 {
	return ratio(len(r.Missing), r.Total)
}

// OutOfPlaceRatio is the share of ordered symbols outside the placed region.
func (r *Result) OutOfPlaceRatio() float64 {
	return ratio(len(r.OutOfPlace), r.Total)
}

// UnplacedRatio is the share of symbols that exist in the binary but ended
// up outside the placed region.
func (r *Result) UnplacedRatio() float64 {
	return ratio(len(r.Unplaced), r.Total)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Compare checks the ordered symbols against the real layout. The layout
// is the binary's text symbols in address order; startMarker and endMarker
// delimit the region the linker script placed. Compare fails if either
// marker is absent from the layout, since the placed region cannot be
// located then.
func Compare(order, layout []string, startMarker, endMarker string) (*Result, error) {
	start, end := -1, -1
	inLayout := make(map[string]bool, len(layout))
	for i, sym := range layout {
		inLayout[sym] = true
		if sym == startMarker && start < 0 {
			start = i
		}
		if sym == endMarker && end < 0 {
			end = i
		}
	}
	if start < 0 {
		return nil, xerrors.Errorf("layout: start marker %q not found", startMarker)
	}
	if end < 0 {
		return nil, xerrors.Errorf("layout: end marker %q not found", endMarker)
	}

	inWindow := make(map[string]bool)
	if end > start {
		for _, sym := range layout[start:end] {
			inWindow[sym] = true
		}
	}

	res := &Result{Total: len(order)}
	for _, sym := range order {
		if !inLayout[sym] {
			res.Missing = append(res.Missing, sym)
		}
		if !inWindow[sym] {
			res.OutOfPlace = append(res.OutOfPlace, sym)
			if inLayout[sym] {
				res.Unplaced = append(res.Unplaced, sym)
			}
		}
	}
	return res, nil
}
