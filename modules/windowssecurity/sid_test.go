package windowssecurity

import (
	"testing"
)

func TestSIDStringRoundtrip(t *testing.T) {
	testsids := []string{
		"S-1-5-21-3719975868-1113416855-2416171545-1104",
		"S-1-5-21-1308756548-3893869957-2915408613-512",
		"S-1-5-32-544",
		"S-1-5-11",
		"S-1-3-0",
	}
	for _, sidstring := range testsids {
		sid, err := ParseStringSID(sidstring)
		if err != nil {
			t.Fatalf("could not parse %v: %v", sidstring, err)
		}
		if sid.String() != sidstring {
			t.Errorf("roundtrip of %v gave %v", sidstring, sid.String())
		}
	}
}

func TestParseSIDBytes(t *testing.T) {
	// S-1-5-21-1-2-3 in its on-disk layout
	data := []byte{
		0x01, 0x04,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
		0x15, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0xde, 0xad,
	}
	sid, rest, err := ParseSID(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if sid.String() != "S-1-5-21-1-2-3" {
		t.Errorf("got %v", sid.String())
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 trailing bytes, got %v", len(rest))
	}
	if sid.RID() != 3 {
		t.Errorf("expected RID 3, got %v", sid.RID())
	}
}

func TestParseSIDBadRevision(t *testing.T) {
	_, _, err := ParseSID([]byte{0x02, 0x01, 0, 0, 0, 0, 0, 5, 1, 0, 0, 0})
	if err == nil {
		t.Error("expected error on revision 2")
	}
}

func TestParseSIDTruncated(t *testing.T) {
	_, _, err := ParseSID([]byte{0x01, 0x04, 0, 0, 0, 0, 0, 5, 1, 0})
	if err == nil {
		t.Error("expected error on truncated SID")
	}
}

func TestLookupWellKnown(t *testing.T) {
	principal, found := LookupWellKnown("S-1-5-11")
	if !found {
		t.Fatal("S-1-5-11 should be well known")
	}
	if principal.Name != "Authenticated Users" || principal.Type != "Group" {
		t.Errorf("unexpected principal %+v", principal)
	}
	if _, found := LookupWellKnown("S-1-5-21-1-2-3-500"); found {
		t.Error("domain SIDs are not well known")
	}
}
