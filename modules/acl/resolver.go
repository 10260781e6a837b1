package acl

import (
	"strings"

	"github.com/coffeegist/bofhound/modules/windowssecurity"
)

// Named rights as BloodHound expects them in the Aces array.
const (
	RightOwns                    = "Owns"
	RightGenericAll              = "GenericAll"
	RightGenericWrite            = "GenericWrite"
	RightWriteDacl               = "WriteDacl"
	RightWriteOwner              = "WriteOwner"
	RightAddMember               = "AddMember"
	RightAddSelf                 = "AddSelf"
	RightAddAllowedToAct         = "AddAllowedToAct"
	RightAddKeyCredentialLink    = "AddKeyCredentialLink"
	RightWriteSPN                = "WriteSPN"
	RightWritePKINameFlag        = "WritePKINameFlag"
	RightWritePKIEnrollmentFlag  = "WritePKIEnrollmentFlag"
	RightWriteAccountRestriction = "WriteAccountRestrictions"
	RightAllExtendedRights       = "AllExtendedRights"
	RightGetChanges              = "GetChanges"
	RightGetChangesAll           = "GetChangesAll"
	RightGetChangesInFilteredSet = "GetChangesInFilteredSet"
	RightForceChangePassword     = "ForceChangePassword"
	RightEnroll                  = "Enroll"
	RightReadLAPSPassword        = "ReadLAPSPassword"
)

// Relationship is one resolved edge from a principal onto the entry
// whose security descriptor is being processed.
type Relationship struct {
	RightName     string `json:"RightName"`
	PrincipalSID  string `json:"PrincipalSID"`
	PrincipalType string `json:"PrincipalType"`
	IsInherited   bool   `json:"IsInherited"`
}

// LookupContext carries the read-only mapping tables ACL resolution
// needs. Workers share one snapshot and never mutate it.
type LookupContext struct {
	// object SID -> entry type name
	SIDTypes map[string]string
	// upper-cased DC components of a DN -> domain SID
	DomainSIDs map[string]string
	// lower-cased schema attribute/class name -> lower-cased GUID
	SchemaGUIDs map[string]string
}

func NewLookupContext() *LookupContext {
	return &LookupContext{
		SIDTypes:    make(map[string]string),
		DomainSIDs:  make(map[string]string),
		SchemaGUIDs: make(map[string]string),
	}
}

// Principals that hold rights on nearly everything and would only add
// noise as edges.
var ignoredSIDs = map[string]struct{}{
	"S-1-3-0":  {}, // Creator Owner
	"S-1-5-18": {}, // Local System
	"S-1-5-10": {}, // Principal Self
}

func isIgnoredSID(sid string) bool {
	_, ignored := ignoredSIDs[sid]
	return ignored
}

// domainNameFromDN turns "CN=X,DC=redania,DC=local" into "REDANIA.LOCAL".
func domainNameFromDN(dn string) string {
	var parts []string
	for _, component := range strings.Split(strings.ToUpper(dn), ",") {
		if strings.HasPrefix(component, "DC=") {
			parts = append(parts, strings.TrimPrefix(component, "DC="))
		}
	}
	return strings.Join(parts, ".")
}

// Well-known SIDs are the same in every domain, so their graph
// identifiers get the entry's domain name prepended.
func qualifySID(sid, dn string) string {
	if _, wellknown := windowssecurity.LookupWellKnown(sid); !wellknown {
		return sid
	}
	domain := domainNameFromDN(dn)
	if domain == "" {
		return sid
	}
	return domain + "-" + sid
}

func principalType(sid string, ctx *LookupContext) string {
	if ctx != nil {
		if entrytype, found := ctx.SIDTypes[sid]; found {
			return entrytype
		}
	}
	if principal, found := windowssecurity.LookupWellKnown(sid); found {
		return principal.Type
	}
	return "Unknown"
}

func schemaGUID(ctx *LookupContext, name string) (string, bool) {
	if ctx == nil {
		return "", false
	}
	guid, found := ctx.SchemaGUIDs[strings.ToLower(name)]
	return strings.ToLower(guid), found
}

// aceApplies checks an inherited ACE's inherited-object-type against
// the schema class GUID of the entry's type. An unknown class GUID
// counts as applicable.
func aceApplies(inheritedObjectType, entrytype string, ctx *LookupContext) bool {
	classguid, found := schemaGUID(ctx, entrytype)
	if !found {
		return true
	}
	return strings.EqualFold(inheritedObjectType, classguid)
}

// canWriteProperty / hasExtendedRight: a mask bit with no object type
// covers every property or extended right, otherwise only the one the
// object type GUID names.
func aceCoversGUID(ace ACE, guid string) bool {
	if !ace.HasObjectType() {
		return true
	}
	return strings.EqualFold(ace.ObjectType.String(), guid)
}

// ResolveRelationships maps a parsed security descriptor to the named
// rights BloodHound understands, given the type and DN of the entry it
// protects.
func ResolveRelationships(sd SecurityDescriptor, entryType, dn string, hasLaps bool, ctx *LookupContext) []Relationship {
	entrytype := strings.ToLower(entryType)
	var relationships []Relationship

	add := func(right string, acesid windowssecurity.SID, inherited bool) {
		sid := acesid.String()
		relationships = append(relationships, Relationship{
			RightName:     right,
			PrincipalSID:  qualifySID(sid, dn),
			PrincipalType: principalType(sid, ctx),
			IsInherited:   inherited,
		})
	}

	if !sd.Owner.IsNull() && !isIgnoredSID(sd.Owner.String()) {
		add(RightOwns, sd.Owner, false)
	}

	lapsGUID, haveLapsGUID := schemaGUID(ctx, schemaLapsPassword)
	keyCredGUID, haveKeyCredGUID := schemaGUID(ctx, schemaKeyCredentialLink)

	for _, ace := range sd.DACL.Entries {
		if ace.Type != ACETYPE_ACCESS_ALLOWED && ace.Type != ACETYPE_ACCESS_ALLOWED_OBJECT {
			continue
		}
		sid := ace.SID.String()
		if isIgnoredSID(sid) {
			continue
		}
		inherited := ace.IsInherited()
		if ace.IsInheritOnly() && !inherited {
			// Not effective on this entry, only on children
			continue
		}

		if ace.Type == ACETYPE_ACCESS_ALLOWED_OBJECT {
			if inherited && ace.HasInheritedObjectType() &&
				!aceApplies(ace.InheritedObjectType.String(), entrytype, ctx) {
				continue
			}

			if ace.Mask.Has(RIGHT_GENERIC_ALL) || ace.Mask.Has(RIGHT_WRITE_DACL) ||
				ace.Mask.Has(RIGHT_WRITE_OWNER) || ace.Mask.Has(RIGHT_GENERIC_WRITE) {

				if ace.Mask.Has(RIGHT_GENERIC_ALL) {
					if entrytype == "computer" && ace.HasObjectType() && hasLaps && haveLapsGUID {
						if strings.EqualFold(ace.ObjectType.String(), lapsGUID) {
							add(RightReadLAPSPassword, ace.SID, inherited)
						}
					} else {
						add(RightGenericAll, ace.SID, inherited)
					}
					continue
				}
				if ace.Mask.Has(RIGHT_GENERIC_WRITE) {
					add(RightGenericWrite, ace.SID, inherited)
					if entrytype != "domain" && entrytype != "computer" {
						continue
					}
				}
				if ace.Mask.Has(RIGHT_WRITE_DACL) {
					add(RightWriteDacl, ace.SID, inherited)
				}
				if ace.Mask.Has(RIGHT_WRITE_OWNER) {
					add(RightWriteOwner, ace.SID, inherited)
				}
			}

			if ace.Mask.Has(RIGHT_DS_WRITE_PROPERTY) {
				switch entrytype {
				case "user", "group", "computer", "gpo":
					if !ace.HasObjectType() {
						add(RightGenericWrite, ace.SID, inherited)
					}
				}
				if entrytype == "group" && aceCoversGUID(ace, PropertyGUIDMember) {
					add(RightAddMember, ace.SID, inherited)
				}
				if entrytype == "computer" && aceCoversGUID(ace, PropertyGUIDAllowedToAct) {
					add(RightAddAllowedToAct, ace.SID, inherited)
				}
				if entrytype == "computer" && aceCoversGUID(ace, PropertyGUIDUserAccountRestrictions) &&
					!strings.HasSuffix(sid, "-512") {
					add(RightWriteAccountRestriction, ace.SID, inherited)
				}
				if (entrytype == "user" || entrytype == "computer") && haveKeyCredGUID &&
					ace.HasObjectType() && strings.EqualFold(ace.ObjectType.String(), keyCredGUID) {
					add(RightAddKeyCredentialLink, ace.SID, inherited)
				}
				if entrytype == "user" && ace.HasObjectType() &&
					strings.EqualFold(ace.ObjectType.String(), PropertyGUIDServicePrincipalName) {
					add(RightWriteSPN, ace.SID, inherited)
				}
				if entrytype == "pki template" && ace.HasObjectType() &&
					strings.EqualFold(ace.ObjectType.String(), PropertyGUIDPKINameFlag) {
					add(RightWritePKINameFlag, ace.SID, inherited)
				}
				if entrytype == "pki template" && ace.HasObjectType() &&
					strings.EqualFold(ace.ObjectType.String(), PropertyGUIDPKIEnrollmentFlag) {
					add(RightWritePKIEnrollmentFlag, ace.SID, inherited)
				}
			}

			if ace.Mask.Has(RIGHT_DS_SELF) {
				// Validated writes name the attribute, an untyped ACE
				// does not grant self-membership
				if entrytype == "group" && ace.HasObjectType() &&
					strings.EqualFold(ace.ObjectType.String(), PropertyGUIDMember) {
					add(RightAddSelf, ace.SID, inherited)
				}
			}

			if ace.Mask.Has(RIGHT_DS_READ_PROPERTY) {
				if entrytype == "computer" && hasLaps && haveLapsGUID && ace.HasObjectType() &&
					strings.EqualFold(ace.ObjectType.String(), lapsGUID) {
					add(RightReadLAPSPassword, ace.SID, inherited)
				}
			}

			if ace.Mask.Has(RIGHT_DS_CONTROL_ACCESS) {
				if (entrytype == "user" || entrytype == "domain") && !ace.HasObjectType() {
					add(RightAllExtendedRights, ace.SID, inherited)
				}
				if entrytype == "computer" && !ace.HasObjectType() &&
					sid != "S-1-5-32-544" && !strings.HasSuffix(sid, "-512") {
					add(RightAllExtendedRights, ace.SID, inherited)
				}
				if entrytype == "domain" && aceCoversGUID(ace, RightGUIDGetChanges) {
					add(RightGetChanges, ace.SID, inherited)
				}
				if entrytype == "domain" && aceCoversGUID(ace, RightGUIDGetChangesAll) {
					add(RightGetChangesAll, ace.SID, inherited)
				}
				if entrytype == "domain" && aceCoversGUID(ace, RightGUIDGetChangesInFilteredSet) {
					add(RightGetChangesInFilteredSet, ace.SID, inherited)
				}
				if entrytype == "user" && aceCoversGUID(ace, RightGUIDForceChangePassword) {
					add(RightForceChangePassword, ace.SID, inherited)
				}
				if (entrytype == "pki template" || entrytype == "enterpriseca") &&
					aceCoversGUID(ace, RightGUIDEnroll) {
					add(RightEnroll, ace.SID, inherited)
				}
			}

			continue
		}

		// Plain ACCESS_ALLOWED, no object type narrowing possible
		if ace.Mask.Has(RIGHT_GENERIC_ALL) {
			add(RightGenericAll, ace.SID, inherited)
			continue
		}
		if ace.Mask.Has(RIGHT_DS_WRITE_PROPERTY) {
			switch entrytype {
			case "user", "group", "computer", "gpo":
				add(RightGenericWrite, ace.SID, inherited)
			}
		}
		if ace.Mask.Has(RIGHT_WRITE_OWNER) {
			add(RightWriteOwner, ace.SID, inherited)
		}
		if ace.Mask.Has(RIGHT_DS_CONTROL_ACCESS) {
			if entrytype == "user" || entrytype == "domain" {
				add(RightAllExtendedRights, ace.SID, inherited)
			}
			if entrytype == "computer" && sid != "S-1-5-32-544" && !strings.HasSuffix(sid, "-512") {
				add(RightAllExtendedRights, ace.SID, inherited)
			}
		}
		if ace.Mask.Has(RIGHT_WRITE_DACL) {
			add(RightWriteDacl, ace.SID, inherited)
		}
	}

	return relationships
}
