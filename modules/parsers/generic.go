package parsers

import (
	"regexp"
	"strings"
)

// Parsers for the local enumeration BOFs (netsession, netloggedon,
// netlocalgroup, registry session sweep). They print the same
// boundary-delimited key/value blocks as the ldapsearch BOF, each tool
// with its own separator so mixed logs cannot bleed into each other.

var (
	netSessionBoundary  = strings.Repeat("=", 20)
	netLoggedOnBoundary = strings.Repeat("~", 20)
	localGroupBoundary  = strings.Repeat("#", 20)
	regSessionBoundary  = strings.Repeat("%", 20)

	netSessionEndOfOutput  = regexp.MustCompile(`^Enumerated \d+ sessions?`)
	netLoggedOnEndOfOutput = regexp.MustCompile(`^Enumerated \d+ logged on users?`)
	localGroupEndOfOutput  = regexp.MustCompile(`^Enumerated \d+ local group members?`)
	regSessionEndOfOutput  = regexp.MustCompile(`^Enumerated \d+ registry sessions?`)
)

type NetSessionBofParser struct {
	streamingParser
}

func NewNetSessionBofParser() *NetSessionBofParser {
	return &NetSessionBofParser{
		streamingParser: newStreamingParser(
			"netsession",
			ObjectTypeSession,
			netSessionBoundary,
			netSessionEndOfOutput,
			beaconTimestampLine,
			receivedOutputLine,
		),
	}
}

type NetLoggedOnBofParser struct {
	streamingParser
}

func NewNetLoggedOnBofParser() *NetLoggedOnBofParser {
	return &NetLoggedOnBofParser{
		streamingParser: newStreamingParser(
			"netloggedon",
			ObjectTypePrivilegedSession,
			netLoggedOnBoundary,
			netLoggedOnEndOfOutput,
			beaconTimestampLine,
			receivedOutputLine,
		),
	}
}

type NetLocalGroupBofParser struct {
	streamingParser
}

func NewNetLocalGroupBofParser() *NetLocalGroupBofParser {
	return &NetLocalGroupBofParser{
		streamingParser: newStreamingParser(
			"netlocalgroup",
			ObjectTypeLocalGroup,
			localGroupBoundary,
			localGroupEndOfOutput,
			beaconTimestampLine,
			receivedOutputLine,
		),
	}
}

type RegSessionBofParser struct {
	streamingParser
}

func NewRegSessionBofParser() *RegSessionBofParser {
	return &RegSessionBofParser{
		streamingParser: newStreamingParser(
			"regsession",
			ObjectTypeRegistrySession,
			regSessionBoundary,
			regSessionEndOfOutput,
			beaconTimestampLine,
			receivedOutputLine,
		),
	}
}
