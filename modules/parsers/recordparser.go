package parsers

import (
	"regexp"
	"strings"
)

type parserState int

const (
	stateWaitingForObject parserState = iota
	stateInObject
)

// streamingParser is the shared state machine for tools that print
// boundary-delimited key/value blocks. Variants only differ in their
// boundary literal, skip patterns and end-of-output marker.
type streamingParser struct {
	tool       string
	objectType ObjectType

	boundary    *BoundaryDetector
	skip        []*regexp.Regexp
	endOfOutput *regexp.Regexp

	state   parserState
	current []string
	records []*AttributeRecord
	blocks  int
}

func newStreamingParser(tool string, objectType ObjectType, boundary string, endOfOutput *regexp.Regexp, skip ...*regexp.Regexp) streamingParser {
	return streamingParser{
		tool:        tool,
		objectType:  objectType,
		boundary:    NewBoundaryDetector(boundary),
		skip:        skip,
		endOfOutput: endOfOutput,
	}
}

func (p *streamingParser) ToolName() string {
	return p.tool
}

func (p *streamingParser) ObjectType() ObjectType {
	return p.objectType
}

func (p *streamingParser) ProcessLine(line string) {
	line = strings.TrimSpace(line)

	// Boundary handling comes first so separators never leak into
	// record content or match the end-of-output pattern.
	switch p.boundary.ProcessLine(line) {
	case CompleteBoundary:
		p.handleBoundary()
		return
	case PartialBoundary:
		return
	}

	if p.endOfOutput != nil && p.endOfOutput.MatchString(line) {
		p.handleEndOfOutput()
		return
	}
	if p.shouldSkip(line) {
		return
	}
	if p.state == stateInObject {
		p.current = append(p.current, line)
	}
}

func (p *streamingParser) handleBoundary() {
	if p.state == stateWaitingForObject {
		p.state = stateInObject
		p.current = nil
		return
	}
	p.saveCurrentRecord()
}

func (p *streamingParser) handleEndOfOutput() {
	if p.state == stateInObject && len(p.current) > 0 {
		p.saveCurrentRecord()
	}
	p.state = stateWaitingForObject
	p.current = nil
}

func (p *streamingParser) saveCurrentRecord() {
	p.blocks++
	record := RecordFromLines(p.current)
	if record.Len() > 0 {
		p.records = append(p.records, record)
	}
	p.current = nil
}

func (p *streamingParser) shouldSkip(line string) bool {
	for _, pattern := range p.skip {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// BlockCount reports how many boundary-delimited blocks were closed,
// including ones that reassembled to nothing.
func (p *streamingParser) BlockCount() int {
	return p.blocks
}

// Results finalizes any open block, then hands over the non-empty
// records accumulated so far and resets internal storage.
func (p *streamingParser) Results() []*AttributeRecord {
	if p.state == stateInObject && len(p.current) > 0 {
		p.saveCurrentRecord()
	}
	records := p.records
	p.records = nil
	return records
}
