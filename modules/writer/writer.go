package writer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coffeegist/bofhound/modules/acl"
	"github.com/coffeegist/bofhound/modules/activedirectory"
	"github.com/coffeegist/bofhound/modules/ui"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// collectionMethods value BloodHound expects in the meta block.
const bloodhoundMethods = 46067
const bloodhoundVersion = 6

type PropertiesLevel int

const (
	// Common properties only
	LevelStandard PropertiesLevel = iota
	// Common properties plus group membership lists
	LevelMember
	// Every parsed attribute
	LevelAll
)

func ParsePropertiesLevel(input string) (PropertiesLevel, error) {
	switch strings.ToLower(input) {
	case "standard":
		return LevelStandard, nil
	case "member":
		return LevelMember, nil
	case "all":
		return LevelAll, nil
	}
	return LevelStandard, fmt.Errorf("unknown properties level %v", input)
}

var memberListProperties = map[string]struct{}{
	"member":   {},
	"memberof": {},
}

var standardProperties = map[string]struct{}{
	"name":                 {},
	"domain":               {},
	"domainsid":            {},
	"distinguishedname":    {},
	"description":          {},
	"samaccountname":       {},
	"samaccounttype":       {},
	"objectsid":            {},
	"objectguid":           {},
	"useraccountcontrol":   {},
	"admincount":           {},
	"serviceprincipalname": {},
	"dnshostname":          {},
	"operatingsystem":      {},
	"haslaps":              {},
	"pwdlastset":           {},
	"lastlogon":            {},
	"lastlogontimestamp":   {},
	"mail":                 {},
	"title":                {},
	"displayname":          {},
	"gpcfilesyspath":       {},
	"grouptype":            {},
	"whencreated":          {},
}

// Session writes one output run: a set of per-type JSON files sharing
// a timestamp, optionally packed into a single zip.
type Session struct {
	OutputDirectory string
	Level           PropertiesLevel
	Zip             bool

	timestamp string
	written   []string
}

func NewSession(outputDirectory string, level PropertiesLevel, zipFiles bool) *Session {
	return &Session{
		OutputDirectory: outputDirectory,
		Level:           level,
		Zip:             zipFiles,
		timestamp:       time.Now().Format("20060102_150405"),
	}
}

// Files lists what this session has written so far. After zipping it
// holds just the archive.
func (s *Session) Files() []string {
	return s.written
}

func (s *Session) Write(ad *activedirectory.ADDS) error {
	if err := os.MkdirAll(s.OutputDirectory, 0755); err != nil {
		return errors.Wrapf(err, "creating output directory %v", s.OutputDirectory)
	}

	buckets := []struct {
		kind    string
		objects []*activedirectory.DirectoryObject
	}{
		{"users", ad.Users},
		{"groups", ad.Groups},
		{"computers", ad.Computers},
		{"domains", ad.Domains},
		{"ous", ad.OUs},
		{"containers", ad.Containers},
		{"gpos", ad.GPOs},
		{"enterprisecas", ad.EnterpriseCAs},
		{"aiacas", ad.AIACAs},
		{"rootcas", ad.RootCAs},
		{"ntauthstores", ad.NTAuthStores},
		{"issuancepolicies", ad.IssuancePolicies},
		{"certtemplates", ad.CertTemplates},
	}

	for _, bucket := range buckets {
		if len(bucket.objects) == 0 {
			continue
		}
		if err := s.writeFile(bucket.kind, bucket.objects); err != nil {
			return err
		}
		ui.Info().Msgf("Wrote %v %v to disk", len(bucket.objects), bucket.kind)
	}

	if s.Zip && len(s.written) > 0 {
		return s.zipFiles()
	}
	return nil
}

func (s *Session) writeFile(kind string, objects []*activedirectory.DirectoryObject) error {
	document := map[string]any{
		"data": s.renderAll(kind, objects),
		"meta": map[string]any{
			"methods": bloodhoundMethods,
			"type":    kind,
			"count":   len(objects),
			"version": bloodhoundVersion,
		},
	}

	path := filepath.Join(s.OutputDirectory, fmt.Sprintf("%s_%s.json", kind, s.timestamp))
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %v", path)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(document); err != nil {
		return errors.Wrapf(err, "writing %v", path)
	}
	s.written = append(s.written, path)
	return nil
}

func (s *Session) renderAll(kind string, objects []*activedirectory.DirectoryObject) []map[string]any {
	entries := make([]map[string]any, 0, len(objects))
	for _, obj := range objects {
		entry := s.renderObject(obj)
		if kind == "computers" {
			addComputerCollections(entry, obj)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *Session) renderObject(obj *activedirectory.DirectoryObject) map[string]any {
	aces := obj.Aces
	if aces == nil {
		aces = []acl.Relationship{}
	}
	return map[string]any{
		"ObjectIdentifier": obj.ObjectIdentifier,
		"Properties":       s.filterProperties(obj.Properties),
		"Aces":             aces,
		"IsDeleted":        false,
		"IsACLProtected":   obj.IsACLProtected,
	}
}

func (s *Session) filterProperties(properties map[string]any) map[string]any {
	if s.Level == LevelAll {
		return properties
	}
	filtered := make(map[string]any)
	for key, value := range properties {
		if _, standard := standardProperties[key]; standard {
			filtered[key] = value
			continue
		}
		if _, memberlist := memberListProperties[key]; memberlist && s.Level == LevelMember {
			filtered[key] = value
		}
	}
	return filtered
}

func addComputerCollections(entry map[string]any, obj *activedirectory.DirectoryObject) {
	entry["Sessions"] = sessionCollection(obj.Sessions)
	entry["PrivilegedSessions"] = sessionCollection(obj.PrivilegedSessions)
	entry["RegistrySessions"] = sessionCollection(obj.RegistrySessions)
	entry["LocalAdmins"] = principalCollection(obj.LocalGroupMembers["administrators"])
	entry["RemoteDesktopUsers"] = principalCollection(obj.LocalGroupMembers["remote desktop users"])
	entry["DcomUsers"] = principalCollection(obj.LocalGroupMembers["distributed com users"])
	entry["PSRemoteUsers"] = principalCollection(obj.LocalGroupMembers["remote management users"])
}

func sessionCollection(results []activedirectory.SessionResult) map[string]any {
	if results == nil {
		results = []activedirectory.SessionResult{}
	}
	return map[string]any{
		"Results":       results,
		"Collected":     len(results) > 0,
		"FailureReason": nil,
	}
}

func principalCollection(results []activedirectory.TypedPrincipal) map[string]any {
	if results == nil {
		results = []activedirectory.TypedPrincipal{}
	}
	return map[string]any{
		"Results":       results,
		"Collected":     len(results) > 0,
		"FailureReason": nil,
	}
}

func (s *Session) zipFiles() error {
	archivePath := filepath.Join(s.OutputDirectory, fmt.Sprintf("bloodhound_%s.zip", s.timestamp))
	archive, err := os.Create(archivePath)
	if err != nil {
		return errors.Wrapf(err, "creating %v", archivePath)
	}
	defer archive.Close()

	zipWriter := zip.NewWriter(archive)
	for _, path := range s.written {
		if err := addToZip(zipWriter, path); err != nil {
			zipWriter.Close()
			return err
		}
	}
	if err := zipWriter.Close(); err != nil {
		return err
	}

	for _, path := range s.written {
		os.Remove(path)
	}
	s.written = []string{archivePath}
	ui.Info().Msgf("Zipped output to %v", archivePath)
	return nil
}

func addToZip(zipWriter *zip.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	entry, err := zipWriter.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, file)
	return err
}
