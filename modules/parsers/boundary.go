package parsers

import (
	"strings"
)

type BoundaryResult int

const (
	NotBoundary BoundaryResult = iota
	PartialBoundary
	CompleteBoundary
)

// BoundaryDetector recognizes a record separator that C2 logging may
// have split across multiple physical lines. It accumulates matched
// prefix length across calls and only resets when the full separator
// has been seen. A mismatch does not reset the accumulated state, so
// an interrupted partial match stays sticky until completed.
type BoundaryDetector struct {
	boundary string
	matched  int
}

func NewBoundaryDetector(boundary string) *BoundaryDetector {
	return &BoundaryDetector{boundary: boundary}
}

func (d *BoundaryDetector) ProcessLine(line string) BoundaryResult {
	if line == "" {
		return NotBoundary
	}
	remaining := d.boundary[d.matched:]
	if !strings.HasPrefix(remaining, line) {
		return NotBoundary
	}
	d.matched += len(line)
	if d.matched == len(d.boundary) {
		d.matched = 0
		return CompleteBoundary
	}
	return PartialBoundary
}
