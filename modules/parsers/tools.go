package parsers

import (
	"fmt"
	"strings"
)

// Tool selects which C2 log format the LDAP records come in. The local
// enumeration parsers run regardless, their output formats are the
// same across frameworks.
type Tool string

const (
	ToolLdapSearchBof Tool = "ldapsearchbof"
	ToolHavoc         Tool = "havoc"
	ToolBrc4          Tool = "brc4"
	ToolOutflankC2    Tool = "outflankc2"
	ToolMythic        Tool = "mythic"
)

func ParseTool(input string) (Tool, error) {
	switch Tool(strings.ToLower(input)) {
	case ToolLdapSearchBof:
		return ToolLdapSearchBof, nil
	case ToolHavoc:
		return ToolHavoc, nil
	case ToolBrc4:
		return ToolBrc4, nil
	case ToolOutflankC2:
		return ToolOutflankC2, nil
	case ToolMythic:
		return ToolMythic, nil
	}
	return "", fmt.Errorf("unknown parser %v", input)
}

// DefaultFilePattern is the log file name convention of each framework.
func (t Tool) DefaultFilePattern() string {
	switch t {
	case ToolBrc4:
		return "b-*.log"
	case ToolHavoc:
		return "Console_*.log"
	case ToolOutflankC2:
		return "*.json"
	}
	return "*.log"
}

// Factory returns a ParserFactory producing the full parser set for
// the selected tool.
func (t Tool) Factory() ParserFactory {
	return func() []ToolParser {
		toolparsers := []ToolParser{
			NewNetSessionBofParser(),
			NewNetLoggedOnBofParser(),
			NewNetLocalGroupBofParser(),
			NewRegSessionBofParser(),
		}
		switch t {
		case ToolBrc4:
			toolparsers = append(toolparsers, NewBrc4LdapSentinelParser())
		case ToolOutflankC2:
			toolparsers = append(toolparsers, NewOutflankC2JsonParser())
		default:
			toolparsers = append(toolparsers, NewLdapSearchBofParser())
		}
		return toolparsers
	}
}
