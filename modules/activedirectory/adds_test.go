package activedirectory

import (
	"testing"

	"github.com/coffeegist/bofhound/modules/parsers"
)

func TestImportRecordsMergesBySID(t *testing.T) {
	ad := NewADDS()
	ad.ImportRecords([]*parsers.AttributeRecord{
		record(t,
			"objectclass", "top, person, user",
			"samaccountname", "geralt",
			"objectsid", "S-1-5-21-1-2-3-1104",
			"distinguishedname", "CN=Geralt,CN=Users,DC=redania,DC=local",
		),
		record(t,
			"objectsid", "S-1-5-21-1-2-3-1104",
			"title", "witcher",
		),
	})

	if len(ad.Users) != 1 {
		t.Fatalf("records for one SID should merge into one user, got %v", len(ad.Users))
	}
	if got := ad.Users[0].Properties["title"]; got != "witcher" {
		t.Errorf("merged attribute missing, got %v", got)
	}
}

func TestImportRecordsMergesByDN(t *testing.T) {
	ad := NewADDS()
	ad.ImportRecords([]*parsers.AttributeRecord{
		record(t,
			"objectclass", "top, organizationalUnit",
			"distinguishedname", "OU=Workstations,DC=redania,DC=local",
		),
		record(t,
			"objectclass", "top, organizationalUnit",
			"distinguishedname", "OU=WORKSTATIONS,DC=REDANIA,DC=LOCAL",
			"description", "workstation computers",
		),
	})

	if len(ad.OUs) != 1 {
		t.Fatalf("records for one DN should merge case-insensitively, got %v", len(ad.OUs))
	}
}

func TestImportRecordsBuildsDomainAndSchemaMaps(t *testing.T) {
	ad := NewADDS()
	ad.ImportRecords([]*parsers.AttributeRecord{
		record(t,
			"objectclass", "top, domain, domainDNS",
			"objectsid", "S-1-5-21-1-2-3",
			"distinguishedname", "DC=redania,DC=local",
		),
		record(t,
			"objectclass", "top, attributeSchema",
			"name", "ms-Mcs-AdmPwd",
			"schemaidguid", "A57AD2E5-6E82-47E8-A58A-B4B2A50FCB4A",
			"distinguishedname", "CN=ms-Mcs-AdmPwd,CN=Schema,CN=Configuration,DC=redania,DC=local",
		),
	})

	if got := ad.DomainSIDs["DC=REDANIA,DC=LOCAL"]; got != "S-1-5-21-1-2-3" {
		t.Errorf("domain SID map = %v", ad.DomainSIDs)
	}
	if got := ad.SchemaGUIDs["ms-mcs-admpwd"]; got != "a57ad2e5-6e82-47e8-a58a-b4b2a50fcb4a" {
		t.Errorf("schema GUID map = %v", ad.SchemaGUIDs)
	}

	ctx := ad.BuildLookupContext()
	if ctx.SIDTypes["S-1-5-21-1-2-3"] != "Domain" {
		t.Errorf("lookup context SID types = %v", ctx.SIDTypes)
	}
	if ctx.SchemaGUIDs["ms-mcs-admpwd"] != "a57ad2e5-6e82-47e8-a58a-b4b2a50fcb4a" {
		t.Errorf("lookup context schema GUIDs = %v", ctx.SchemaGUIDs)
	}
}

func TestTypedObjectsExcludesSchemaEntries(t *testing.T) {
	ad := NewADDS()
	ad.ImportRecords([]*parsers.AttributeRecord{
		record(t,
			"objectclass", "top, person, user",
			"objectsid", "S-1-5-21-1-2-3-1104",
			"distinguishedname", "CN=Geralt,CN=Users,DC=redania,DC=local",
		),
		record(t,
			"objectclass", "top, attributeSchema",
			"name", "ms-Mcs-AdmPwd",
			"schemaidguid", "A57AD2E5-6E82-47E8-A58A-B4B2A50FCB4A",
			"distinguishedname", "CN=ms-Mcs-AdmPwd,CN=Schema,CN=Configuration,DC=redania,DC=local",
		),
	})

	typed := ad.TypedObjects()
	if len(typed) != 1 {
		t.Errorf("schema entries should not be output objects, got %v", len(typed))
	}
}

func TestImportedContextLosesToFreshData(t *testing.T) {
	ad := NewADDS()
	imported := ad.BuildLookupContext()
	imported.SIDTypes["S-1-5-21-1-2-3-1104"] = "Computer"
	imported.SIDTypes["S-1-5-21-1-2-3-9999"] = "Group"

	fresh := NewADDS()
	fresh.ImportContext(imported)
	fresh.ImportRecords([]*parsers.AttributeRecord{
		record(t,
			"objectclass", "top, person, user",
			"objectsid", "S-1-5-21-1-2-3-1104",
			"distinguishedname", "CN=Geralt,CN=Users,DC=redania,DC=local",
		),
	})

	ctx := fresh.BuildLookupContext()
	if ctx.SIDTypes["S-1-5-21-1-2-3-1104"] != "User" {
		t.Errorf("fresh data should override the imported context, got %v", ctx.SIDTypes["S-1-5-21-1-2-3-1104"])
	}
	if ctx.SIDTypes["S-1-5-21-1-2-3-9999"] != "Group" {
		t.Errorf("imported-only entries should survive, got %v", ctx.SIDTypes["S-1-5-21-1-2-3-9999"])
	}
}
