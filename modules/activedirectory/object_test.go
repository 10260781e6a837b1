package activedirectory

import (
	"testing"

	"github.com/coffeegist/bofhound/modules/parsers"
)

func record(t *testing.T, pairs ...string) *parsers.AttributeRecord {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatal("record needs key/value pairs")
	}
	r := parsers.NewAttributeRecord()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func TestNewDirectoryObjectUser(t *testing.T) {
	obj := NewDirectoryObject(record(t,
		"objectclass", "top, person, organizationalPerson, user",
		"samaccounttype", "805306368",
		"samaccountname", "geralt",
		"objectsid", "S-1-5-21-1-2-3-1104",
		"distinguishedname", "CN=Geralt,CN=Users,DC=redania,DC=local",
	))

	if obj.Type != EntryTypeUser {
		t.Errorf("type = %v", obj.Type)
	}
	if obj.ObjectIdentifier != "S-1-5-21-1-2-3-1104" {
		t.Errorf("object identifier = %v", obj.ObjectIdentifier)
	}
	if got := obj.Properties["name"]; got != "GERALT@REDANIA.LOCAL" {
		t.Errorf("name = %v", got)
	}
	if got := obj.Properties["domain"]; got != "REDANIA.LOCAL" {
		t.Errorf("domain = %v", got)
	}
	if got := obj.Properties["domainsid"]; got != "S-1-5-21-1-2-3" {
		t.Errorf("domainsid = %v", got)
	}
}

func TestNewDirectoryObjectComputerNames(t *testing.T) {
	obj := NewDirectoryObject(record(t,
		"samaccounttype", "805306369",
		"samaccountname", "WIN10$",
		"dnshostname", "win10.redania.local",
		"distinguishedname", "CN=WIN10,CN=Computers,DC=redania,DC=local",
		"objectsid", "S-1-5-21-1-2-3-1201",
	))
	if obj.Type != EntryTypeComputer {
		t.Errorf("type = %v", obj.Type)
	}
	if got := obj.Properties["name"]; got != "WIN10.REDANIA.LOCAL" {
		t.Errorf("name should prefer the DNS host name, got %v", got)
	}

	obj = NewDirectoryObject(record(t,
		"samaccounttype", "805306369",
		"samaccountname", "WIN10$",
		"distinguishedname", "CN=WIN10,CN=Computers,DC=redania,DC=local",
	))
	if got := obj.Properties["name"]; got != "WIN10.REDANIA.LOCAL" {
		t.Errorf("fallback name should be short name plus domain, got %v", got)
	}
}

func TestComputerWithoutDNStaysUntyped(t *testing.T) {
	obj := NewDirectoryObject(record(t,
		"samaccounttype", "805306369",
		"samaccountname", "GHOST$",
	))
	if obj.Type != EntryTypeUnknown {
		t.Errorf("a computer without a DN cannot be typed, got %v", obj.Type)
	}
}

func TestNewDirectoryObjectGuidFallback(t *testing.T) {
	obj := NewDirectoryObject(record(t,
		"objectclass", "top, organizationalUnit",
		"objectguid", "8f2e3c41-9a0d-4b7e-b2c1-55d6e7f8a9b0",
		"distinguishedname", "OU=Workstations,DC=redania,DC=local",
	))
	if obj.Type != EntryTypeOU {
		t.Errorf("type = %v", obj.Type)
	}
	if obj.ObjectIdentifier != "8F2E3C41-9A0D-4B7E-B2C1-55D6E7F8A9B0" {
		t.Errorf("objects without a domain SID key on their GUID, got %v", obj.ObjectIdentifier)
	}
}

func TestNewDirectoryObjectLapsAndRawAces(t *testing.T) {
	obj := NewDirectoryObject(record(t,
		"samaccounttype", "805306369",
		"distinguishedname", "CN=WIN10,CN=Computers,DC=redania,DC=local",
		"ms-mcs-admpwdexpirationtime", "133666848000000000",
		"ntsecuritydescriptor", "AQAEgxQAAAA=",
	))
	if !obj.HasLaps() {
		t.Errorf("LAPS expiry attribute should set haslaps")
	}
	if obj.RawAces != "AQAEgxQAAAA=" {
		t.Errorf("raw security descriptor not captured")
	}
	if _, leaked := obj.Properties["ntsecuritydescriptor"]; leaked {
		t.Errorf("security descriptor must not leak into output properties")
	}
}

func TestDetectEntryTypeCertificateServices(t *testing.T) {
	cases := []struct {
		dn      string
		classes string
		want    EntryType
	}{
		{"CN=REDANIA-CA,CN=AIA,CN=PUBLIC KEY SERVICES,CN=CONFIGURATION,DC=REDANIA,DC=LOCAL", "certificationAuthority", EntryTypeAIACA},
		{"CN=NTAUTHCERTIFICATES,CN=PUBLIC KEY SERVICES,CN=CONFIGURATION,DC=REDANIA,DC=LOCAL", "certificationAuthority", EntryTypeNTAuthStore},
		{"CN=REDANIA-CA,CN=CERTIFICATION AUTHORITIES,CN=CONFIGURATION,DC=REDANIA,DC=LOCAL", "certificationAuthority", EntryTypeRootCA},
		{"CN=MACHINE,CN=CERTIFICATE TEMPLATES,CN=CONFIGURATION,DC=REDANIA,DC=LOCAL", "pKICertificateTemplate", EntryTypeCertTemplate},
		{"CN=REDANIA-CA,CN=ENROLLMENT SERVICES,CN=CONFIGURATION,DC=REDANIA,DC=LOCAL", "pKIEnrollmentService", EntryTypeEnterpriseCA},
	}
	for _, c := range cases {
		obj := NewDirectoryObject(record(t,
			"objectclass", c.classes,
			"distinguishedname", c.dn,
		))
		if obj.Type != c.want {
			t.Errorf("%v: got %v, want %v", c.dn, obj.Type, c.want)
		}
	}
}

func TestUpdateMergesNewerAttributes(t *testing.T) {
	older := NewDirectoryObject(record(t,
		"objectclass", "top, person, user",
		"samaccountname", "geralt",
		"objectsid", "S-1-5-21-1-2-3-1104",
		"distinguishedname", "CN=Geralt,CN=Users,DC=redania,DC=local",
		"description", "witcher",
	))
	newer := NewDirectoryObject(record(t,
		"objectsid", "S-1-5-21-1-2-3-1104",
		"description", "retired witcher",
		"title", "innkeeper",
	))

	older.Update(newer)
	if got := older.Properties["description"]; got != "retired witcher" {
		t.Errorf("newer value should win, got %v", got)
	}
	if got := older.Properties["title"]; got != "innkeeper" {
		t.Errorf("new attribute missing, got %v", got)
	}
	if got := older.SourceAttributes["samaccountname"]; got != "geralt" {
		t.Errorf("untouched attribute lost, got %v", got)
	}
	if older.Type != EntryTypeUser {
		t.Errorf("established type should survive a typeless update, got %v", older.Type)
	}
}
