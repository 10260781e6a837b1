package parsers

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type outflankTaskEvent struct {
	EventType string `json:"event_type"`
	Task      struct {
		Name     string `json:"name"`
		Response string `json:"response"`
	} `json:"task"`
}

// OutflankC2JsonParser unwraps Outflank C2 event log lines. Each line
// is a timestamp followed by a JSON task event; only ldapsearch task
// responses are unpacked and fed line by line into the regular
// ldapsearch parser.
type OutflankC2JsonParser struct {
	*LdapSearchBofParser
}

func NewOutflankC2JsonParser() *OutflankC2JsonParser {
	return &OutflankC2JsonParser{
		LdapSearchBofParser: NewLdapSearchBofParser(),
	}
}

func (p *OutflankC2JsonParser) ToolName() string {
	return "outflankc2"
}

func (p *OutflankC2JsonParser) ProcessLine(line string) {
	_, payload, found := strings.Cut(line, "UTC ")
	if !found {
		return
	}
	var event outflankTaskEvent
	if err := json.UnmarshalFromString(payload, &event); err != nil {
		return
	}
	if event.EventType != "task_response" {
		return
	}
	if !strings.EqualFold(event.Task.Name, "ldapsearch") {
		return
	}
	for _, responseLine := range strings.Split(event.Task.Response, "\n") {
		p.LdapSearchBofParser.ProcessLine(responseLine)
	}
}
