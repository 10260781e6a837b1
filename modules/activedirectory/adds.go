package activedirectory

import (
	"strings"

	"github.com/coffeegist/bofhound/modules/acl"
	"github.com/coffeegist/bofhound/modules/parsers"
	"github.com/coffeegist/bofhound/modules/ui"
)

// ADDS collects typed directory objects and the lookup tables ACL
// resolution and output generation need. Records for the same entry
// merge by SID, falling back to DN for entries without one.
type ADDS struct {
	Users            []*DirectoryObject
	Computers        []*DirectoryObject
	Groups           []*DirectoryObject
	Domains          []*DirectoryObject
	OUs              []*DirectoryObject
	Containers       []*DirectoryObject
	GPOs             []*DirectoryObject
	EnterpriseCAs    []*DirectoryObject
	AIACAs           []*DirectoryObject
	RootCAs          []*DirectoryObject
	NTAuthStores     []*DirectoryObject
	IssuancePolicies []*DirectoryObject
	CertTemplates    []*DirectoryObject
	Schemas          []*DirectoryObject
	CrossRefs        []*DirectoryObject
	Unknown          []*DirectoryObject

	SIDMap map[string]*DirectoryObject
	DNMap  map[string]*DirectoryObject

	// upper-cased DC path -> domain SID
	DomainSIDs map[string]string
	// lower-cased schema name -> lower-cased GUID
	SchemaGUIDs map[string]string

	imported *acl.LookupContext
}

func NewADDS() *ADDS {
	return &ADDS{
		SIDMap:      make(map[string]*DirectoryObject),
		DNMap:       make(map[string]*DirectoryObject),
		DomainSIDs:  make(map[string]string),
		SchemaGUIDs: make(map[string]string),
	}
}

// ImportContext seeds lookups from a previous run, letting this run
// resolve principals its own logs never saw.
func (ad *ADDS) ImportContext(ctx *acl.LookupContext) {
	ad.imported = ctx
}

func (ad *ADDS) ImportRecords(records []*parsers.AttributeRecord) {
	for _, record := range records {
		ad.importObject(NewDirectoryObject(record))
	}
	ui.Debug().Msgf("Imported %v SID mappings, %v domains, %v schema GUIDs",
		len(ad.SIDMap), len(ad.DomainSIDs), len(ad.SchemaGUIDs))
}

func (ad *ADDS) importObject(obj *DirectoryObject) {
	sid := strings.ToUpper(obj.SourceAttributes["objectsid"])
	dn := obj.DistinguishedName()

	var existing *DirectoryObject
	if sid != "" {
		existing = ad.SIDMap[sid]
	}
	if existing == nil && dn != "" {
		existing = ad.DNMap[dn]
	}

	if existing != nil {
		existing.Update(obj)
		obj = existing
	} else {
		ad.appendToBucket(obj)
	}

	if sid != "" {
		ad.SIDMap[sid] = obj
	}
	if dn != "" {
		ad.DNMap[dn] = obj
	}

	switch obj.Type {
	case EntryTypeDomain:
		if sid != "" && dn != "" {
			ad.DomainSIDs[dcPath(dn)] = sid
		}
	case EntryTypeSchema:
		name := strings.ToLower(obj.SourceAttributes["name"])
		if name == "" {
			name = strings.ToLower(obj.SourceAttributes["ldapdisplayname"])
		}
		guid := strings.ToLower(obj.SourceAttributes["schemaidguid"])
		if name != "" && guid != "" {
			ad.SchemaGUIDs[name] = guid
		}
	}
}

func (ad *ADDS) appendToBucket(obj *DirectoryObject) {
	switch obj.Type {
	case EntryTypeUser:
		ad.Users = append(ad.Users, obj)
	case EntryTypeComputer:
		ad.Computers = append(ad.Computers, obj)
	case EntryTypeGroup:
		ad.Groups = append(ad.Groups, obj)
	case EntryTypeDomain:
		ad.Domains = append(ad.Domains, obj)
	case EntryTypeOU:
		ad.OUs = append(ad.OUs, obj)
	case EntryTypeContainer:
		ad.Containers = append(ad.Containers, obj)
	case EntryTypeGPO:
		ad.GPOs = append(ad.GPOs, obj)
	case EntryTypeEnterpriseCA:
		ad.EnterpriseCAs = append(ad.EnterpriseCAs, obj)
	case EntryTypeAIACA:
		ad.AIACAs = append(ad.AIACAs, obj)
	case EntryTypeRootCA:
		ad.RootCAs = append(ad.RootCAs, obj)
	case EntryTypeNTAuthStore:
		ad.NTAuthStores = append(ad.NTAuthStores, obj)
	case EntryTypeIssuancePolicy:
		ad.IssuancePolicies = append(ad.IssuancePolicies, obj)
	case EntryTypeCertTemplate:
		ad.CertTemplates = append(ad.CertTemplates, obj)
	case EntryTypeSchema:
		ad.Schemas = append(ad.Schemas, obj)
	case EntryTypeCrossRef:
		ad.CrossRefs = append(ad.CrossRefs, obj)
	default:
		ad.Unknown = append(ad.Unknown, obj)
	}
}

// TypedObjects returns every object ACLs get resolved for and output
// gets written for.
func (ad *ADDS) TypedObjects() []*DirectoryObject {
	var all []*DirectoryObject
	for _, bucket := range [][]*DirectoryObject{
		ad.Domains, ad.Users, ad.Computers, ad.Groups, ad.OUs, ad.Containers,
		ad.GPOs, ad.EnterpriseCAs, ad.AIACAs, ad.RootCAs, ad.NTAuthStores,
		ad.IssuancePolicies, ad.CertTemplates,
	} {
		all = append(all, bucket...)
	}
	return all
}

// BuildLookupContext snapshots the mapping tables for ACL workers.
// Imported context entries from a previous run apply first, fresher
// data from this run wins.
func (ad *ADDS) BuildLookupContext() *acl.LookupContext {
	ctx := acl.NewLookupContext()

	if ad.imported != nil {
		for sid, entrytype := range ad.imported.SIDTypes {
			ctx.SIDTypes[sid] = entrytype
		}
		for path, sid := range ad.imported.DomainSIDs {
			ctx.DomainSIDs[path] = sid
		}
		for name, guid := range ad.imported.SchemaGUIDs {
			ctx.SchemaGUIDs[name] = guid
		}
	}

	for sid, obj := range ad.SIDMap {
		ctx.SIDTypes[sid] = obj.Type.BloodHoundType()
	}
	for path, sid := range ad.DomainSIDs {
		ctx.DomainSIDs[path] = sid
	}
	for name, guid := range ad.SchemaGUIDs {
		ctx.SchemaGUIDs[name] = guid
	}
	return ctx
}

// ProcessACLs resolves every held security descriptor into named
// rights, fanning out across workers.
func (ad *ADDS) ProcessACLs(workers int) {
	objects := ad.TypedObjects()
	byID := make(map[string]*DirectoryObject, len(objects))

	var tasks []acl.Task
	for _, obj := range objects {
		if obj.RawAces == "" || obj.ObjectIdentifier == "" {
			continue
		}
		byID[obj.ObjectIdentifier] = obj
		tasks = append(tasks, acl.Task{
			ObjectID:          obj.ObjectIdentifier,
			EntryType:         string(obj.Type),
			DistinguishedName: obj.DistinguishedName(),
			RawAces:           obj.RawAces,
			HasLaps:           obj.HasLaps(),
		})
	}
	if len(tasks) == 0 {
		return
	}

	ui.Info().Msgf("Resolving ACLs for %v objects", len(tasks))
	outcomes := acl.ResolveAll(tasks, ad.BuildLookupContext(), workers)

	edges := 0
	for id, outcome := range outcomes {
		obj := byID[id]
		if obj == nil {
			continue
		}
		obj.Aces = outcome.Relationships
		obj.IsACLProtected = outcome.IsACLProtected
		edges += len(outcome.Relationships)
	}
	ui.Info().Msgf("Resolved %v ACL relationships", edges)
}
