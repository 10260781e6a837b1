package activedirectory

import (
	"strings"

	"github.com/coffeegist/bofhound/modules/acl"
	"github.com/coffeegist/bofhound/modules/parsers"
)

// SessionResult ties a logged on user to the computer it was seen on.
type SessionResult struct {
	UserSID     string `json:"UserSID"`
	ComputerSID string `json:"ComputerSID"`
}

// TypedPrincipal identifies a principal in member and local group
// listings.
type TypedPrincipal struct {
	ObjectIdentifier string `json:"ObjectIdentifier"`
	ObjectType       string `json:"ObjectType"`
}

// DirectoryObject is one typed directory entry assembled from parsed
// attribute records. SourceAttributes keeps the raw key/value pairs for
// change fingerprinting; Properties holds the derived output values.
type DirectoryObject struct {
	Type             EntryType
	ObjectIdentifier string
	Properties       map[string]any
	SourceAttributes map[string]string

	RawAces        string
	Aces           []acl.Relationship
	IsACLProtected bool

	// populated for computers from local enumeration output
	Sessions           []SessionResult
	PrivilegedSessions []SessionResult
	RegistrySessions   []SessionResult
	LocalGroupMembers  map[string][]TypedPrincipal
}

// Attributes that never feed Properties directly.
var suppressedProperties = map[string]struct{}{
	"ntsecuritydescriptor": {},
}

func NewDirectoryObject(record *parsers.AttributeRecord) *DirectoryObject {
	attrs := record.AsMap()

	obj := &DirectoryObject{
		Type:             detectEntryType(attrs),
		SourceAttributes: attrs,
		Properties:       make(map[string]any),
		RawAces:          attrs["ntsecuritydescriptor"],
	}

	for key, value := range attrs {
		if _, suppressed := suppressedProperties[key]; suppressed {
			continue
		}
		obj.Properties[key] = value
	}

	dn := strings.ToUpper(attrs["distinguishedname"])
	domain := domainNameFromDN(dn)
	sid := strings.ToUpper(attrs["objectsid"])
	guid := strings.ToUpper(attrs["objectguid"])

	switch {
	case strings.HasPrefix(sid, "S-1-5-21-"):
		obj.ObjectIdentifier = sid
	case guid != "":
		obj.ObjectIdentifier = guid
	default:
		obj.ObjectIdentifier = sid
	}

	if dn != "" {
		obj.Properties["distinguishedname"] = dn
	}
	if domain != "" {
		obj.Properties["domain"] = domain
	}
	if strings.HasPrefix(sid, "S-1-5-21-") {
		if obj.Type == EntryTypeDomain {
			obj.Properties["domainsid"] = sid
		} else {
			obj.Properties["domainsid"] = sid[:strings.LastIndex(sid, "-")]
		}
	}
	if name := displayName(obj.Type, attrs, domain); name != "" {
		obj.Properties["name"] = name
	}
	if _, found := attrs["ms-mcs-admpwdexpirationtime"]; found {
		obj.Properties["haslaps"] = true
	}

	return obj
}

// HasLaps reports whether the LAPS client has ever written a password
// expiry on this computer.
func (o *DirectoryObject) HasLaps() bool {
	haslaps, _ := o.Properties["haslaps"].(bool)
	return haslaps
}

func (o *DirectoryObject) DistinguishedName() string {
	return strings.ToUpper(o.SourceAttributes["distinguishedname"])
}

// Update folds a newer record for the same entry into this object.
// Later attribute values win, everything else is recomputed.
func (o *DirectoryObject) Update(newer *DirectoryObject) {
	for key, value := range newer.SourceAttributes {
		o.SourceAttributes[key] = value
	}
	for key, value := range newer.Properties {
		o.Properties[key] = value
	}
	if newer.RawAces != "" {
		o.RawAces = newer.RawAces
	}
	if newer.ObjectIdentifier != "" {
		o.ObjectIdentifier = newer.ObjectIdentifier
	}
	if o.Type == EntryTypeUnknown && newer.Type != EntryTypeUnknown {
		o.Type = newer.Type
	}
}

func domainNameFromDN(dn string) string {
	var parts []string
	for _, component := range strings.Split(strings.ToUpper(dn), ",") {
		if strings.HasPrefix(component, "DC=") {
			parts = append(parts, strings.TrimPrefix(component, "DC="))
		}
	}
	return strings.Join(parts, ".")
}

// dcPath reduces a DN to its upper-cased DC components, the key format
// of the domain SID map.
func dcPath(dn string) string {
	var parts []string
	for _, component := range strings.Split(strings.ToUpper(dn), ",") {
		if strings.HasPrefix(component, "DC=") {
			parts = append(parts, component)
		}
	}
	return strings.Join(parts, ",")
}

func displayName(entrytype EntryType, attrs map[string]string, domain string) string {
	samaccountname := strings.ToUpper(attrs["samaccountname"])
	switch entrytype {
	case EntryTypeDomain:
		return domain
	case EntryTypeComputer:
		if dnshostname := strings.ToUpper(attrs["dnshostname"]); dnshostname != "" {
			return dnshostname
		}
		if samaccountname != "" && domain != "" {
			return strings.TrimSuffix(samaccountname, "$") + "." + domain
		}
	case EntryTypeUser, EntryTypeGroup:
		if samaccountname != "" && domain != "" {
			return samaccountname + "@" + domain
		}
	default:
		cn := strings.ToUpper(attrs["cn"])
		if cn == "" {
			cn = firstRDN(attrs["distinguishedname"])
		}
		if cn != "" && domain != "" {
			return cn + "@" + domain
		}
	}
	return ""
}

func firstRDN(dn string) string {
	component, _, _ := strings.Cut(strings.ToUpper(dn), ",")
	_, value, found := strings.Cut(component, "=")
	if !found {
		return ""
	}
	return value
}

func classSet(attrs map[string]string) map[string]bool {
	classes := make(map[string]bool)
	raw := strings.ToLower(attrs["objectclass"])
	for _, class := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		classes[strings.TrimSpace(class)] = true
	}
	return classes
}

func detectEntryType(attrs map[string]string) EntryType {
	classes := classSet(attrs)
	dn := strings.ToUpper(attrs["distinguishedname"])

	// sAMAccountType is authoritative for accounts when present
	switch attrs["samaccounttype"] {
	case "268435456", "268435457", "536870912", "536870913":
		return EntryTypeGroup
	case "805306369":
		if dn == "" {
			// A computer without a DN cannot be placed in a domain
			return EntryTypeUnknown
		}
		return EntryTypeComputer
	case "805306368":
		return EntryTypeUser
	}

	switch {
	case classes["msds-groupmanagedserviceaccount"] || classes["ms-ds-group-managed-service-account"]:
		return EntryTypeUser
	case classes["domain"] || classes["domaindns"]:
		return EntryTypeDomain
	case classes["organizationalunit"]:
		return EntryTypeOU
	case classes["grouppolicycontainer"]:
		return EntryTypeGPO
	case classes["pkienrollmentservice"]:
		return EntryTypeEnterpriseCA
	case classes["pkicertificatetemplate"]:
		return EntryTypeCertTemplate
	case classes["certificationauthority"]:
		switch {
		case strings.Contains(dn, "CN=AIA,"):
			return EntryTypeAIACA
		case strings.Contains(dn, "CN=NTAUTHCERTIFICATES"):
			return EntryTypeNTAuthStore
		case strings.Contains(dn, "CN=CERTIFICATION AUTHORITIES,"):
			return EntryTypeRootCA
		}
		return EntryTypeRootCA
	case classes["mspki-enterprise-oid"]:
		if strings.Contains(dn, "CN=OID,") {
			return EntryTypeIssuancePolicy
		}
		return EntryTypeUnknown
	case classes["attributeschema"] || classes["classschema"]:
		return EntryTypeSchema
	case classes["crossref"]:
		return EntryTypeCrossRef
	case classes["group"]:
		return EntryTypeGroup
	case classes["computer"]:
		if dn == "" {
			return EntryTypeUnknown
		}
		return EntryTypeComputer
	case classes["user"] || classes["person"]:
		return EntryTypeUser
	case classes["container"]:
		return EntryTypeContainer
	}
	return EntryTypeUnknown
}
