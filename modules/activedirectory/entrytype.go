package activedirectory

// EntryType tags what kind of directory object a record reassembled
// into. The names line up with what ACL resolution branches on.
type EntryType string

const (
	EntryTypeDomain         EntryType = "Domain"
	EntryTypeUser           EntryType = "User"
	EntryTypeComputer       EntryType = "Computer"
	EntryTypeGroup          EntryType = "Group"
	EntryTypeOU             EntryType = "OU"
	EntryTypeContainer      EntryType = "Container"
	EntryTypeGPO            EntryType = "GPO"
	EntryTypeEnterpriseCA   EntryType = "EnterpriseCA"
	EntryTypeAIACA          EntryType = "AIACA"
	EntryTypeRootCA         EntryType = "RootCA"
	EntryTypeNTAuthStore    EntryType = "NTAuthStore"
	EntryTypeIssuancePolicy EntryType = "IssuancePolicy"
	EntryTypeCertTemplate   EntryType = "PKI Template"
	EntryTypeSchema         EntryType = "Schema"
	EntryTypeCrossRef       EntryType = "CrossRef"
	EntryTypeUnknown        EntryType = "Unknown"
)

func (t EntryType) String() string {
	return string(t)
}

// BloodHoundType is the label BloodHound uses for principals of this
// type in Aces and member lists.
func (t EntryType) BloodHoundType() string {
	switch t {
	case EntryTypeCertTemplate:
		return "CertTemplate"
	case EntryTypeUnknown, EntryTypeSchema, EntryTypeCrossRef:
		return "Base"
	}
	return string(t)
}
