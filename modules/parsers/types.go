package parsers

// ObjectType buckets the records a tool parser produces.
type ObjectType int

const (
	ObjectTypeLdap ObjectType = iota
	ObjectTypeSession
	ObjectTypePrivilegedSession
	ObjectTypeLocalGroup
	ObjectTypeRegistrySession
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeLdap:
		return "LDAP"
	case ObjectTypeSession:
		return "Session"
	case ObjectTypePrivilegedSession:
		return "PrivilegedSession"
	case ObjectTypeLocalGroup:
		return "LocalGroup"
	case ObjectTypeRegistrySession:
		return "RegistrySession"
	}
	return "Unknown"
}

// ToolParser consumes one log line at a time and accumulates attribute
// records. Every registered parser sees every line; lines that do not
// belong to its tool's output are ignored.
type ToolParser interface {
	ToolName() string
	ObjectType() ObjectType
	ProcessLine(line string)
	Results() []*AttributeRecord
}

// ParserFactory builds a fresh set of tool parsers. Each worker in the
// parallel path gets its own set, parsers are not safe for concurrent use.
type ParserFactory func() []ToolParser

// ParsingResult holds parsed records bucketed by object type.
type ParsingResult struct {
	buckets map[ObjectType][]*AttributeRecord
}

func NewParsingResult() *ParsingResult {
	return &ParsingResult{
		buckets: make(map[ObjectType][]*AttributeRecord),
	}
}

func (r *ParsingResult) Add(t ObjectType, records []*AttributeRecord) {
	if len(records) == 0 {
		return
	}
	r.buckets[t] = append(r.buckets[t], records...)
}

func (r *ParsingResult) Objects(t ObjectType) []*AttributeRecord {
	return r.buckets[t]
}

func (r *ParsingResult) Count(t ObjectType) int {
	return len(r.buckets[t])
}

func (r *ParsingResult) Total() int {
	total := 0
	for _, records := range r.buckets {
		total += len(records)
	}
	return total
}

func (r *ParsingResult) Merge(other *ParsingResult) {
	for t, records := range other.buckets {
		r.buckets[t] = append(r.buckets[t], records...)
	}
}
