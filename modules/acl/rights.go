package acl

type ControlFlag uint16
type PermissionMask uint32

// http://www.selfadsi.org/deep-inside/ad-security-descriptors.htm

const (
	CONTROLFLAG_OWNER_DEFAULTED     ControlFlag = 0x0001
	CONTROLFLAG_GROUP_DEFAULTED     ControlFlag = 0x0002
	CONTROLFLAG_DACL_PRESENT        ControlFlag = 0x0004
	CONTROLFLAG_DACL_DEFAULTED      ControlFlag = 0x0008
	CONTROLFLAG_SACL_PRESENT        ControlFlag = 0x0010
	CONTROLFLAG_SACL_DEFAULTED      ControlFlag = 0x0020
	CONTROLFLAG_DACL_AUTO_INHERITED ControlFlag = 0x0400
	CONTROLFLAG_SACL_AUTO_INHERITED ControlFlag = 0x0800
	CONTROLFLAG_DACL_PROTECTED      ControlFlag = 0x1000
	CONTROLFLAG_SACL_PROTECTED      ControlFlag = 0x2000
	CONTROLFLAG_SELF_RELATIVE       ControlFlag = 0x8000

	// ACE.Type
	ACETYPE_ACCESS_ALLOWED        = 0x00
	ACETYPE_ACCESS_DENIED         = 0x01
	ACETYPE_ACCESS_ALLOWED_OBJECT = 0x05
	ACETYPE_ACCESS_DENIED_OBJECT  = 0x06

	// ACE.ACEFlags
	ACEFLAG_INHERIT_ACE              = 0x02 // Child objects inherit this ACE
	ACEFLAG_NO_PROPAGATE_INHERIT_ACE = 0x04 // Only the NEXT child inherits this, not further down the line
	ACEFLAG_INHERIT_ONLY_ACE         = 0x08 // Not valid for this object, only for children
	ACEFLAG_INHERITED_ACE            = 0x10 // This ACE was inherited from the parent object

	// ACE.Flags - present if this is a ACETYPE_ACCESS_*_OBJECT Type
	OBJECT_TYPE_PRESENT           = 0x01
	INHERITED_OBJECT_TYPE_PRESENT = 0x02
)

const (
	RIGHT_GENERIC_READ    PermissionMask = 0x80000000
	RIGHT_GENERIC_WRITE   PermissionMask = 0x40000000
	RIGHT_GENERIC_EXECUTE PermissionMask = 0x20000000
	RIGHT_GENERIC_ALL     PermissionMask = 0x10000000

	RIGHT_SYNCHRONIZE  PermissionMask = 0x00100000
	RIGHT_WRITE_OWNER  PermissionMask = 0x00080000
	RIGHT_WRITE_DACL   PermissionMask = 0x00040000
	RIGHT_READ_CONTROL PermissionMask = 0x00020000
	RIGHT_DELETE       PermissionMask = 0x00010000

	RIGHT_DS_CONTROL_ACCESS PermissionMask = 0x00000100
	RIGHT_DS_LIST_OBJECT    PermissionMask = 0x00000080
	RIGHT_DS_DELETE_TREE    PermissionMask = 0x00000040
	RIGHT_DS_WRITE_PROPERTY PermissionMask = 0x00000020
	RIGHT_DS_READ_PROPERTY  PermissionMask = 0x00000010
	RIGHT_DS_SELF           PermissionMask = 0x00000008
	RIGHT_DS_LIST_CONTENTS  PermissionMask = 0x00000004
	RIGHT_DS_DELETE_CHILD   PermissionMask = 0x00000002
	RIGHT_DS_CREATE_CHILD   PermissionMask = 0x00000001
)

// Has reports whether every bit of priv is set in the mask.
func (m PermissionMask) Has(priv PermissionMask) bool {
	return m&priv == priv
}
