package acl

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/coffeegist/bofhound/modules/util"
	"github.com/coffeegist/bofhound/modules/windowssecurity"
	"github.com/gofrs/uuid"
)

type SecurityDescriptor struct {
	Owner   windowssecurity.SID
	Group   windowssecurity.SID
	SACL    ACL
	DACL    ACL
	Control ControlFlag
}

// IsACLProtected reports whether the DACL blocks inheritance from
// parent containers.
func (sd SecurityDescriptor) IsACLProtected() bool {
	return sd.Control&CONTROLFLAG_DACL_PROTECTED != 0
}

type ACL struct {
	Entries      []ACE
	Revision     byte
	containsdeny bool
}

func (a *ACL) Sort() {
	sort.Slice(a.Entries, func(i, j int) bool {
		if a.Entries[i].ACEFlags&ACEFLAG_INHERITED_ACE == 0 && a.Entries[j].ACEFlags&ACEFLAG_INHERITED_ACE != 0 {
			return true // NOT INHERITED should be before INHERITED
		}
		if (a.Entries[i].Type == ACETYPE_ACCESS_DENIED || a.Entries[i].Type == ACETYPE_ACCESS_DENIED_OBJECT) &&
			(a.Entries[j].Type == ACETYPE_ACCESS_ALLOWED || a.Entries[j].Type == ACETYPE_ACCESS_ALLOWED_OBJECT) {
			return true // DENIED should be before ALLOWED
		}
		return false
	})
}

type ACE struct {
	SID                 windowssecurity.SID
	Mask                PermissionMask
	Flags               uint32
	InheritedObjectType uuid.UUID
	ObjectType          uuid.UUID
	ACEFlags            byte
	Type                byte
}

func (a ACE) IsInherited() bool {
	return a.ACEFlags&ACEFLAG_INHERITED_ACE != 0
}

func (a ACE) IsInheritOnly() bool {
	return a.ACEFlags&ACEFLAG_INHERIT_ONLY_ACE != 0
}

func (a ACE) HasObjectType() bool {
	return a.Flags&OBJECT_TYPE_PRESENT != 0
}

func (a ACE) HasInheritedObjectType() bool {
	return a.Flags&INHERITED_OBJECT_TYPE_PRESENT != 0
}

// DecodeSecurityDescriptor parses the base64 form an LDAP log carries
// in the ntsecuritydescriptor attribute.
func DecodeSecurityDescriptor(encoded string) (SecurityDescriptor, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return SecurityDescriptor{}, fmt.Errorf("base64 decode failed: %v", err)
	}
	return ParseSecurityDescriptor(data)
}

func ParseSecurityDescriptor(data []byte) (SecurityDescriptor, error) {
	var result SecurityDescriptor
	if len(data) < 20 {
		return SecurityDescriptor{}, errors.New("not enough data")
	}
	if data[0] != 1 {
		return SecurityDescriptor{}, errors.New("unknown Revision")
	}
	if data[1] != 0 {
		return SecurityDescriptor{}, errors.New("unknown Sbz1")
	}
	result.Control = ControlFlag(binary.LittleEndian.Uint16(data[2:4]))
	OffsetOwner := binary.LittleEndian.Uint32(data[4:8])
	OffsetGroup := binary.LittleEndian.Uint32(data[8:12])
	OffsetSACL := binary.LittleEndian.Uint32(data[12:16])
	OffsetDACL := binary.LittleEndian.Uint32(data[16:20])

	var err error
	if OffsetOwner > 0 {
		if int(OffsetOwner) >= len(data) {
			return result, errors.New("owner offset exceeds available data")
		}
		result.Owner, _, err = windowssecurity.ParseSID(data[OffsetOwner:])
		if err != nil {
			return result, err
		}
	}
	if OffsetGroup > 0 {
		if int(OffsetGroup) >= len(data) {
			return result, errors.New("group offset exceeds available data")
		}
		result.Group, _, err = windowssecurity.ParseSID(data[OffsetGroup:])
		if err != nil {
			return result, err
		}
	}
	if OffsetSACL > 0 {
		if int(OffsetSACL) >= len(data) {
			return result, errors.New("SACL offset exceeds available data")
		}
		result.SACL, err = ParseACL(data[OffsetSACL:])
		if err != nil {
			return result, err
		}
	}
	if OffsetDACL > 0 {
		if int(OffsetDACL) >= len(data) {
			return result, errors.New("DACL offset exceeds available data")
		}
		result.DACL, err = ParseACL(data[OffsetDACL:])
		if err != nil {
			return result, err
		}
		if result.DACL.containsdeny {
			result.DACL.Sort()
		}
	}

	return result, nil
}

func ParseACL(data []byte) (ACL, error) {
	var acl ACL
	if len(data) < 8 {
		return acl, errors.New("not enough data to be an ACL")
	}
	acl.Revision = data[0]
	if acl.Revision != 1 && acl.Revision != 2 && acl.Revision != 4 {
		return acl, fmt.Errorf("unsupported ACL revision %v", acl.Revision)
	}
	if data[1] != 0 {
		return acl, errors.New("bad Sbz1")
	}
	aclsize := int(binary.LittleEndian.Uint16(data[2:4]))
	if aclsize > len(data) {
		return acl, errors.New("the ACL size exceeds available data")
	}
	aclcount := int(binary.LittleEndian.Uint16(data[4:6]))
	if data[6] != 0 {
		return acl, errors.New("bad Sbz2")
	}

	acledata := data[8:]

	acl.Entries = make([]ACE, aclcount)

	for i := 0; i < aclcount; i++ {
		var err error
		var ace ACE
		ace, acledata, err = ParseACLentry(acledata)
		if ace.Type == ACETYPE_ACCESS_DENIED || ace.Type == ACETYPE_ACCESS_DENIED_OBJECT {
			acl.containsdeny = true
		}
		if err != nil {
			return acl, err
		}
		acl.Entries[i] = ace
	}

	return acl, nil
}

func ParseACLentry(odata []byte) (ACE, []byte, error) {
	var ace ACE
	var err error
	// ACEHEADER
	data := odata
	if len(data) < 8 {
		return ace, data, errors.New("not enough data to be an ACE")
	}
	ace.Type = data[0]
	ace.ACEFlags = data[1]
	acesize := binary.LittleEndian.Uint16(data[2:])
	if int(acesize) > len(odata) {
		return ace, data, errors.New("ACE size exceeds available data")
	}
	ace.Mask = PermissionMask(binary.LittleEndian.Uint32(data[4:]))

	data = data[8:]
	if ace.Type == ACETYPE_ACCESS_ALLOWED_OBJECT || ace.Type == ACETYPE_ACCESS_DENIED_OBJECT {
		if len(data) < 4 {
			return ace, data, errors.New("truncated object ACE")
		}
		ace.Flags = binary.LittleEndian.Uint32(data[0:])
		data = data[4:]
		if ace.Flags&OBJECT_TYPE_PRESENT != 0 {
			if len(data) < 16 {
				return ace, data, errors.New("truncated object type GUID")
			}
			ace.ObjectType, err = uuid.FromBytes(data[0:16])
			if err != nil {
				return ace, data, err
			}
			ace.ObjectType = util.SwapUUIDEndianess(ace.ObjectType)
			data = data[16:]
		}
		if ace.Flags&INHERITED_OBJECT_TYPE_PRESENT != 0 {
			if len(data) < 16 {
				return ace, data, errors.New("truncated inherited object type GUID")
			}
			ace.InheritedObjectType, err = uuid.FromBytes(data[0:16])
			if err != nil {
				return ace, data, err
			}
			ace.InheritedObjectType = util.SwapUUIDEndianess(ace.InheritedObjectType)
			data = data[16:]
		}
	}

	ace.SID, data, err = windowssecurity.ParseSID(data)
	if err != nil {
		return ace, data, err
	}
	return ace, odata[acesize:], nil
}
