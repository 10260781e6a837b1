package parsers

import (
	"strings"

	"github.com/Velocidex/ordereddict"
)

// AttributeRecord is one parsed block of attributes. Keys are
// lower-cased and kept in first-seen order so output stays stable
// across runs.
type AttributeRecord struct {
	attrs *ordereddict.Dict
}

func NewAttributeRecord() *AttributeRecord {
	return &AttributeRecord{attrs: ordereddict.NewDict()}
}

func (r *AttributeRecord) Get(key string) (string, bool) {
	value, found := r.attrs.Get(strings.ToLower(key))
	if !found {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// GetAny returns the attribute value or an empty string.
func (r *AttributeRecord) GetString(key string) string {
	value, _ := r.Get(key)
	return value
}

func (r *AttributeRecord) Has(key string) bool {
	_, found := r.attrs.Get(strings.ToLower(key))
	return found
}

func (r *AttributeRecord) Set(key, value string) {
	r.attrs.Set(strings.ToLower(key), value)
}

// Append concatenates a continuation fragment onto an existing value.
func (r *AttributeRecord) Append(key, fragment string) {
	existing, _ := r.Get(key)
	r.Set(key, existing+fragment)
}

func (r *AttributeRecord) Len() int {
	return r.attrs.Len()
}

func (r *AttributeRecord) Keys() []string {
	return r.attrs.Keys()
}

func (r *AttributeRecord) AsMap() map[string]string {
	result := make(map[string]string, r.attrs.Len())
	for _, key := range r.attrs.Keys() {
		value, _ := r.Get(key)
		result[key] = value
	}
	return result
}

// splitKeyValue splits a content line at the first colon. The key side
// is trimmed and lower-cased. hasValue is false when there is no colon
// or the value side trims to nothing.
func splitKeyValue(line string) (key, value string, hasValue bool) {
	before, after, found := strings.Cut(line, ":")
	key = strings.ToLower(strings.TrimSpace(before))
	if !found {
		return key, "", false
	}
	value = strings.TrimSpace(after)
	return key, value, value != ""
}

// RecordFromLines reassembles an attribute record from the raw lines of
// one boundary-delimited block. A blank line flags a transport break:
// the next line then continues the previous key (while the key was
// still open) or gets appended verbatim to the previous value.
func RecordFromLines(lines []string) *AttributeRecord {
	record := NewAttributeRecord()
	breakSeen := false
	// A block opens expecting a key line, so a break right after the
	// boundary still keeps the first attribute
	inKey := true
	currentKey := ""

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			breakSeen = true
			continue
		}
		key, value, hasValue := splitKeyValue(line)
		if breakSeen {
			breakSeen = false
			if inKey {
				// The key itself was split by the break
				currentKey += key
				if hasValue {
					record.Set(currentKey, value)
					inKey = false
				}
			} else if currentKey != "" {
				// Value continuation, keep the whole line
				record.Append(currentKey, line)
			}
			continue
		}
		currentKey = key
		if hasValue {
			record.Set(currentKey, value)
			inKey = false
		} else {
			inKey = true
		}
	}
	return record
}
