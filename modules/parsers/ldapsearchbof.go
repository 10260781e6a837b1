package parsers

import (
	"regexp"
	"strings"
)

var (
	ldapSearchBoundary = strings.Repeat("-", 20)

	ldapSearchEndOfOutput = regexp.MustCompile(`^(R|r)etr(e|i)(e|i)ved \d+ results?`)

	beaconTimestampLine = regexp.MustCompile(`^\d{2}/\d{2} \d{2}:\d{2}:\d{2} UTC \[output\]$`)
	receivedOutputLine  = regexp.MustCompile(`^received output:$`)
)

// LdapSearchBofParser reads the output of the ldapsearch BOF from
// Cobalt Strike style beacon logs. Havoc logs use the same output
// format and go through this parser as well.
type LdapSearchBofParser struct {
	streamingParser
}

func NewLdapSearchBofParser() *LdapSearchBofParser {
	return &LdapSearchBofParser{
		streamingParser: newStreamingParser(
			"ldapsearch",
			ObjectTypeLdap,
			ldapSearchBoundary,
			ldapSearchEndOfOutput,
			beaconTimestampLine,
			receivedOutputLine,
		),
	}
}
