package activedirectory

import (
	"testing"

	"github.com/coffeegist/bofhound/modules/parsers"
)

func testDirectory(t *testing.T) *ADDS {
	t.Helper()
	ad := NewADDS()
	ad.ImportRecords([]*parsers.AttributeRecord{
		record(t,
			"samaccounttype", "805306369",
			"samaccountname", "WIN10$",
			"dnshostname", "win10.redania.local",
			"objectsid", "S-1-5-21-1-2-3-1201",
			"distinguishedname", "CN=WIN10,CN=Computers,DC=redania,DC=local",
		),
		record(t,
			"objectclass", "top, person, user",
			"samaccountname", "geralt",
			"objectsid", "S-1-5-21-1-2-3-1104",
			"distinguishedname", "CN=Geralt,CN=Users,DC=redania,DC=local",
		),
	})
	return ad
}

func localResult(t *testing.T, objecttype parsers.ObjectType, records ...*parsers.AttributeRecord) *parsers.ParsingResult {
	t.Helper()
	result := parsers.NewParsingResult()
	result.Add(objecttype, records)
	return result
}

func TestBrokerAttachesSessions(t *testing.T) {
	ad := testDirectory(t)
	broker := NewLocalBroker()
	broker.Import(localResult(t, parsers.ObjectTypeSession,
		record(t, "username", "geralt", "computername", "WIN10", "computerdomain", "REDANIA.LOCAL"),
		record(t, "username", "anonymous logon", "computername", "WIN10"),
		record(t, "username", "", "computername", "WIN10"),
	), nil)

	if broker.SessionCount() != 1 {
		t.Fatalf("anonymous and empty sessions should be dropped, kept %v", broker.SessionCount())
	}

	broker.AttachTo(ad)
	computer := ad.Computers[0]
	if len(computer.Sessions) != 1 {
		t.Fatalf("expected 1 attached session, got %v", len(computer.Sessions))
	}
	session := computer.Sessions[0]
	if session.UserSID != "S-1-5-21-1-2-3-1104" {
		t.Errorf("user SID resolved via sAMAccountName, got %v", session.UserSID)
	}
	if session.ComputerSID != "S-1-5-21-1-2-3-1201" {
		t.Errorf("computer SID = %v", session.ComputerSID)
	}
}

func TestBrokerSkipsUnknownHosts(t *testing.T) {
	ad := testDirectory(t)
	broker := NewLocalBroker()
	broker.Import(localResult(t, parsers.ObjectTypeSession,
		record(t, "username", "geralt", "computername", "NOVIGRAD"),
	), nil)
	broker.AttachTo(ad)

	if len(ad.Computers[0].Sessions) != 0 {
		t.Errorf("session on an unknown host should not attach anywhere")
	}
}

func TestBrokerRegistrySessionDomainFilter(t *testing.T) {
	ad := testDirectory(t)
	broker := NewLocalBroker()
	broker.Import(localResult(t, parsers.ObjectTypeRegistrySession,
		record(t, "computername", "WIN10", "usersid", "S-1-5-21-1-2-3-1104"),
		record(t, "computername", "WIN10", "usersid", "S-1-5-21-9-9-9-500"),
	), []string{"S-1-5-21-1-2-3"})

	if broker.RegistrySessionCount() != 1 {
		t.Fatalf("local account SIDs should be filtered out, kept %v", broker.RegistrySessionCount())
	}

	broker.AttachTo(ad)
	sessions := ad.Computers[0].RegistrySessions
	if len(sessions) != 1 || sessions[0].UserSID != "S-1-5-21-1-2-3-1104" {
		t.Errorf("registry sessions = %v", sessions)
	}
}

func TestBrokerLocalGroupFiltering(t *testing.T) {
	ad := testDirectory(t)
	broker := NewLocalBroker()
	broker.Import(localResult(t, parsers.ObjectTypeLocalGroup,
		record(t, "computername", "WIN10", "groupname", "Administrators", "membersid", "S-1-5-21-1-2-3-1104"),
		record(t, "computername", "WIN10", "groupname", "Backup Operators", "membersid", "S-1-5-21-1-2-3-1104"),
		record(t, "computername", "WIN10", "groupname", "Remote Desktop Users", "membername", "GERALT"),
	), nil)

	if broker.LocalGroupEntryCount() != 2 {
		t.Fatalf("untracked groups should be dropped, kept %v", broker.LocalGroupEntryCount())
	}

	broker.AttachTo(ad)
	computer := ad.Computers[0]

	admins := computer.LocalGroupMembers["administrators"]
	if len(admins) != 1 || admins[0].ObjectIdentifier != "S-1-5-21-1-2-3-1104" {
		t.Fatalf("administrators = %v", admins)
	}
	if admins[0].ObjectType != "User" {
		t.Errorf("member type should resolve through the directory, got %v", admins[0].ObjectType)
	}

	rdp := computer.LocalGroupMembers["remote desktop users"]
	if len(rdp) != 1 || rdp[0].ObjectIdentifier != "S-1-5-21-1-2-3-1104" {
		t.Errorf("member named by account name should resolve to its SID, got %v", rdp)
	}
}

func TestBrokerPrivilegedSessions(t *testing.T) {
	ad := testDirectory(t)
	broker := NewLocalBroker()
	broker.Import(localResult(t, parsers.ObjectTypePrivilegedSession,
		record(t, "username", "geralt", "computername", "win10.redania.local"),
		record(t, "username", "", "computername", "WIN10"),
	), nil)

	if broker.PrivilegedSessionCount() != 1 {
		t.Fatalf("empty usernames should be dropped, kept %v", broker.PrivilegedSessionCount())
	}

	broker.AttachTo(ad)
	if len(ad.Computers[0].PrivilegedSessions) != 1 {
		t.Errorf("privileged session should attach via the DNS host name")
	}
}
