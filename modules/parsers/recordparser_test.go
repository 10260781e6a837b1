package parsers

import (
	"strings"
	"testing"
)

var ldapSeparator = strings.Repeat("-", 20)

func feed(p ToolParser, lines ...string) {
	for _, line := range lines {
		p.ProcessLine(line)
	}
}

func TestLdapSearchBofSingleObject(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		"07/08 12:14:36 UTC [output]",
		"received output:",
		ldapSeparator,
		"objectClass: top, person, organizationalPerson, user, computer",
		"cn: WIN10",
		"sAMAccountName: WIN10$",
		"sAMAccountType: 805306369",
		"distinguishedName: CN=WIN10,CN=Computers,DC=redania,DC=local",
		ldapSeparator,
		"retreived 1 results",
	)

	records := p.Results()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %v", len(records))
	}
	record := records[0]
	if got := record.GetString("samaccountname"); got != "WIN10$" {
		t.Errorf("samaccountname = %v", got)
	}
	if got := record.GetString("distinguishedname"); got != "CN=WIN10,CN=Computers,DC=redania,DC=local" {
		t.Errorf("distinguishedname = %v", got)
	}
}

func TestLdapSearchBofMultipleObjects(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		ldapSeparator,
		"cn: Geralt",
		"objectSid: S-1-5-21-1-2-3-1104",
		ldapSeparator,
		"cn: Yennefer",
		"objectSid: S-1-5-21-1-2-3-1105",
		ldapSeparator,
		"Retrieved 2 results",
	)

	records := p.Results()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %v", len(records))
	}
	if records[0].GetString("cn") != "Geralt" || records[1].GetString("cn") != "Yennefer" {
		t.Errorf("records out of order: %v, %v", records[0].GetString("cn"), records[1].GetString("cn"))
	}
}

func TestLdapSearchBofEmptyBlocksStillCounted(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		ldapSeparator,
		ldapSeparator,
		ldapSeparator,
		"cn: Triss",
		ldapSeparator,
	)

	if p.BlockCount() != 3 {
		t.Errorf("expected 3 closed blocks, got %v", p.BlockCount())
	}
	records := p.Results()
	if len(records) != 1 {
		t.Fatalf("empty blocks should not produce records, got %v", len(records))
	}
	if records[0].GetString("cn") != "Triss" {
		t.Errorf("cn = %v", records[0].GetString("cn"))
	}
}

func TestLdapSearchBofOpenBlockFinalizedOnResults(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		ldapSeparator,
		"cn: Ciri",
	)

	records := p.Results()
	if len(records) != 1 {
		t.Fatalf("open block should finalize at end of stream, got %v records", len(records))
	}
	if records[0].GetString("cn") != "Ciri" {
		t.Errorf("cn = %v", records[0].GetString("cn"))
	}
	if len(p.Results()) != 0 {
		t.Errorf("second Results call should be empty")
	}
}

func TestLdapSearchBofSkipsBeaconNoise(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		ldapSeparator,
		"07/08 12:14:36 UTC [output]",
		"received output:",
		"cn: Vesemir",
		ldapSeparator,
	)

	records := p.Results()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %v", len(records))
	}
	if records[0].Len() != 1 {
		t.Errorf("beacon noise leaked into the record: %v", records[0].Keys())
	}
}

func TestLdapSearchBofEndOfOutputClosesObject(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		ldapSeparator,
		"cn: Eskel",
		"retrieved 1 results",
		"cn: ignored until next boundary",
	)

	records := p.Results()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %v", len(records))
	}
	if records[0].Has("cn") && records[0].GetString("cn") != "Eskel" {
		t.Errorf("cn = %v", records[0].GetString("cn"))
	}
}

func TestLdapSearchBofBoundarySplitByLogging(t *testing.T) {
	p := NewLdapSearchBofParser()
	feed(p,
		strings.Repeat("-", 10),
		strings.Repeat("-", 10),
		"cn: Lambert",
		ldapSeparator,
	)

	records := p.Results()
	if len(records) != 1 {
		t.Fatalf("split separator should still open the block, got %v records", len(records))
	}
	if records[0].GetString("cn") != "Lambert" {
		t.Errorf("cn = %v", records[0].GetString("cn"))
	}
}
