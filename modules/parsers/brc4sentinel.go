package parsers

import (
	"regexp"
	"strings"
)

var (
	brc4Boundary = strings.Repeat("+", 20)

	brc4EndOfOutput = regexp.MustCompile(`^Total Result\(s\) found\s*:\s*\d+`)

	brc4StatusLine = regexp.MustCompile(`^\[[+*>!-]\]`)
)

// Brc4LdapSentinelParser reads the output of the Brute Ratel C4
// ldap_sentinel command, which prints the same attribute blocks as the
// ldapsearch BOF behind its own separators and status banners.
type Brc4LdapSentinelParser struct {
	streamingParser
}

func NewBrc4LdapSentinelParser() *Brc4LdapSentinelParser {
	return &Brc4LdapSentinelParser{
		streamingParser: newStreamingParser(
			"ldap_sentinel",
			ObjectTypeLdap,
			brc4Boundary,
			brc4EndOfOutput,
			brc4StatusLine,
		),
	}
}
