package acl

// Extended rights and property set GUIDs with hardwired meaning.
// Schema attribute GUIDs (ms-mcs-admpwd, ms-ds-key-credential-link)
// vary per forest and come from the schema GUID map instead.
const (
	RightGUIDGetChanges              = "1131f6aa-9c07-11d1-f79f-00c04fc2dcd2"
	RightGUIDGetChangesAll           = "1131f6ad-9c07-11d1-f79f-00c04fc2dcd2"
	RightGUIDGetChangesInFilteredSet = "89e95b76-444d-4c62-991a-0facbeda640c"
	RightGUIDForceChangePassword     = "00299570-246d-11d0-a768-00aa006e0529"
	RightGUIDEnroll                  = "0e10c968-78fb-11d2-90d4-00c04f79dc55"

	PropertyGUIDMember                  = "bf9679c0-0de6-11d0-a285-00aa003049e2"
	PropertyGUIDAllowedToAct            = "3f78c3e5-f79a-46bd-a0b8-9d18116ddc79"
	PropertyGUIDUserAccountRestrictions = "4c164200-20c0-11d0-a768-00aa006e0529"
	PropertyGUIDServicePrincipalName    = "f3a64788-5306-11d1-a9c5-0000f80367c1"
	PropertyGUIDPKINameFlag             = "ea1dddc4-60ff-416e-8cc0-17cee534bce7"
	PropertyGUIDPKIEnrollmentFlag       = "d15ef7d8-f226-46db-ae79-b34e560bd12c"

	schemaLapsPassword      = "ms-mcs-admpwd"
	schemaKeyCredentialLink = "ms-ds-key-credential-link"
)
