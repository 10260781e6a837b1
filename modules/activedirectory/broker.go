package activedirectory

import (
	"strings"

	"github.com/coffeegist/bofhound/modules/parsers"
	"github.com/coffeegist/bofhound/modules/ui"
)

// Local group names BloodHound models on computers.
var trackedLocalGroups = map[string]struct{}{
	"administrators":          {},
	"remote desktop users":    {},
	"distributed com users":   {},
	"remote management users": {},
}

// LocalBroker buffers the session, logged-on, local group and registry
// records from the local enumeration BOFs until the directory objects
// they reference exist, then pins them onto the matching computers.
type LocalBroker struct {
	sessions           []*parsers.AttributeRecord
	privilegedSessions []*parsers.AttributeRecord
	registrySessions   []*parsers.AttributeRecord
	localGroups        []*parsers.AttributeRecord
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

// Import filters the local object buckets of a parsing result.
// Registry session SIDs outside the known domains are dropped, they
// are local accounts.
func (b *LocalBroker) Import(result *parsers.ParsingResult, knownDomainSIDs []string) {
	for _, record := range result.Objects(parsers.ObjectTypeSession) {
		username := strings.ToLower(record.GetString("username"))
		if username == "" || username == "anonymous logon" {
			continue
		}
		b.sessions = append(b.sessions, record)
	}

	for _, record := range result.Objects(parsers.ObjectTypePrivilegedSession) {
		if record.GetString("username") == "" {
			continue
		}
		b.privilegedSessions = append(b.privilegedSessions, record)
	}

	for _, record := range result.Objects(parsers.ObjectTypeRegistrySession) {
		usersid := strings.ToUpper(record.GetString("usersid"))
		if !sidInDomains(usersid, knownDomainSIDs) {
			continue
		}
		b.registrySessions = append(b.registrySessions, record)
	}

	for _, record := range result.Objects(parsers.ObjectTypeLocalGroup) {
		group := strings.ToLower(record.GetString("groupname"))
		if _, tracked := trackedLocalGroups[group]; !tracked {
			continue
		}
		b.localGroups = append(b.localGroups, record)
	}
}

func (b *LocalBroker) SessionCount() int           { return len(b.sessions) }
func (b *LocalBroker) PrivilegedSessionCount() int { return len(b.privilegedSessions) }
func (b *LocalBroker) RegistrySessionCount() int   { return len(b.registrySessions) }
func (b *LocalBroker) LocalGroupEntryCount() int   { return len(b.localGroups) }

func sidInDomains(sid string, domainSIDs []string) bool {
	for _, domainsid := range domainSIDs {
		if strings.HasPrefix(sid, strings.ToUpper(domainsid)+"-") {
			return true
		}
	}
	return false
}

// AttachTo resolves the buffered records against the directory and
// attaches them to their computers. Records naming hosts or users the
// directory never saw are skipped with a debug line.
func (b *LocalBroker) AttachTo(ad *ADDS) {
	computers := computerIndex(ad)
	users := userIndex(ad)

	lookupComputer := func(record *parsers.AttributeRecord) *DirectoryObject {
		name := strings.ToUpper(record.GetString("computername"))
		if name == "" {
			return nil
		}
		if computer, found := computers[name]; found {
			return computer
		}
		if domain := strings.ToUpper(record.GetString("computerdomain")); domain != "" {
			if computer, found := computers[name+"."+domain]; found {
				return computer
			}
		}
		ui.Debug().Msgf("No computer object matches %v", name)
		return nil
	}

	lookupUserSID := func(record *parsers.AttributeRecord) string {
		if usersid := strings.ToUpper(record.GetString("usersid")); usersid != "" {
			return usersid
		}
		username := strings.ToUpper(record.GetString("username"))
		if sid, found := users[username]; found {
			return sid
		}
		ui.Debug().Msgf("No user object matches %v", username)
		return ""
	}

	for _, record := range b.sessions {
		computer := lookupComputer(record)
		if computer == nil {
			continue
		}
		usersid := lookupUserSID(record)
		if usersid == "" {
			continue
		}
		computer.Sessions = append(computer.Sessions, SessionResult{
			UserSID:     usersid,
			ComputerSID: computer.ObjectIdentifier,
		})
	}

	for _, record := range b.privilegedSessions {
		computer := lookupComputer(record)
		if computer == nil {
			continue
		}
		usersid := lookupUserSID(record)
		if usersid == "" {
			continue
		}
		computer.PrivilegedSessions = append(computer.PrivilegedSessions, SessionResult{
			UserSID:     usersid,
			ComputerSID: computer.ObjectIdentifier,
		})
	}

	for _, record := range b.registrySessions {
		computer := lookupComputer(record)
		if computer == nil {
			continue
		}
		computer.RegistrySessions = append(computer.RegistrySessions, SessionResult{
			UserSID:     strings.ToUpper(record.GetString("usersid")),
			ComputerSID: computer.ObjectIdentifier,
		})
	}

	for _, record := range b.localGroups {
		computer := lookupComputer(record)
		if computer == nil {
			continue
		}
		membersid := strings.ToUpper(record.GetString("membersid"))
		membertype := "Unknown"
		if membersid == "" {
			member := strings.ToUpper(record.GetString("membername"))
			if sid, found := users[member]; found {
				membersid = sid
				membertype = "User"
			}
		} else if obj, found := ad.SIDMap[membersid]; found {
			membertype = obj.Type.BloodHoundType()
		}
		if membersid == "" {
			continue
		}
		if computer.LocalGroupMembers == nil {
			computer.LocalGroupMembers = make(map[string][]TypedPrincipal)
		}
		group := strings.ToLower(record.GetString("groupname"))
		computer.LocalGroupMembers[group] = append(computer.LocalGroupMembers[group], TypedPrincipal{
			ObjectIdentifier: membersid,
			ObjectType:       membertype,
		})
	}
}

// computerIndex keys computers by every name a local record may carry:
// DNS host name, short name and short.domain.
func computerIndex(ad *ADDS) map[string]*DirectoryObject {
	index := make(map[string]*DirectoryObject)
	for _, computer := range ad.Computers {
		short := strings.ToUpper(strings.TrimSuffix(computer.SourceAttributes["samaccountname"], "$"))
		domain, _ := computer.Properties["domain"].(string)
		if dnshostname := strings.ToUpper(computer.SourceAttributes["dnshostname"]); dnshostname != "" {
			index[dnshostname] = computer
		}
		if short != "" {
			index[short] = computer
			if domain != "" {
				index[short+"."+domain] = computer
			}
		}
	}
	return index
}

func userIndex(ad *ADDS) map[string]string {
	index := make(map[string]string)
	for _, user := range ad.Users {
		samaccountname := strings.ToUpper(user.SourceAttributes["samaccountname"])
		if samaccountname == "" || user.ObjectIdentifier == "" {
			continue
		}
		index[samaccountname] = user.ObjectIdentifier
		if domain, _ := user.Properties["domain"].(string); domain != "" {
			index[samaccountname+"@"+domain] = user.ObjectIdentifier
		}
	}
	return index
}
