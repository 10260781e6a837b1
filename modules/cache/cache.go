package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/coffeegist/bofhound/modules/acl"
	"github.com/coffeegist/bofhound/modules/activedirectory"
	"github.com/coffeegist/bofhound/modules/parsers"
	"github.com/coffeegist/bofhound/modules/ui"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
	"go.etcd.io/bbolt"
)

// Schema version of the cache file. Bump on layout changes, old caches
// are rejected rather than misread.
const cacheVersion = "1.0.0"

var (
	bucketObjects     = []byte("objects")
	bucketSIDMap      = []byte("sidmap")
	bucketDNMap       = []byte("dnmap")
	bucketDomainMap   = []byte("domainmap")
	bucketSchemaGUIDs = []byte("schemaguids")
	bucketMetadata    = []byte("metadata")

	keyVersion = []byte("version")
)

var ErrIncompatibleVersion = errors.New("cache file has an incompatible version")

// Attributes that churn on every replication cycle or logon and say
// nothing about whether the object itself changed.
var volatileAttributes = map[string]struct{}{
	"whencreated":           {},
	"whenchanged":           {},
	"usnchanged":            {},
	"usncreated":            {},
	"dscorepropagationdata": {},
	"lastlogon":             {},
	"lastlogontimestamp":    {},
	"badpasswordtime":       {},
	"logoncount":            {},
}

// Fingerprint hashes the non-volatile attributes of a record so
// reprocessed logs can skip objects that did not really change.
func Fingerprint(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		if _, volatile := volatileAttributes[key]; volatile {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+":"+attrs[key])
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ObjectCache persists processed objects and lookup tables between
// runs in a single bbolt file.
type ObjectCache struct {
	db   *bbolt.DB
	path string
}

type cachedObject struct {
	Type        string
	Fingerprint string
	SourceFile  string
	StoredAt    time.Time
	Payload     []byte // lz4-compressed codec JSON of the object
}

type cachedPrincipal struct {
	Type string
}

func Open(path string) (*ObjectCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache file %v", path)
	}

	cache := &ObjectCache{db: db, path: path}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketObjects, bucketSIDMap, bucketDNMap, bucketDomainMap, bucketSchemaGUIDs, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		metadata := tx.Bucket(bucketMetadata)
		stored := metadata.Get(keyVersion)
		if stored != nil && string(stored) != cacheVersion {
			return errors.Wrapf(ErrIncompatibleVersion, "found %v, need %v", string(stored), cacheVersion)
		}
		return metadata.Put(keyVersion, []byte(cacheVersion))
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return cache, nil
}

func (c *ObjectCache) Path() string {
	return c.path
}

func (c *ObjectCache) Close() error {
	return c.db.Close()
}

func objectKey(sid, dn string) []byte {
	return []byte(strings.ToUpper(sid) + "|" + strings.ToUpper(dn))
}

// FilterChanged drops records whose cached fingerprint still matches,
// so only genuinely new or changed objects get reprocessed. Records
// without SID and DN cannot be keyed and always pass through.
func (c *ObjectCache) FilterChanged(records []*parsers.AttributeRecord) []*parsers.AttributeRecord {
	changed := make([]*parsers.AttributeRecord, 0, len(records))

	c.db.View(func(tx *bbolt.Tx) error {
		objects := tx.Bucket(bucketObjects)
		for _, record := range records {
			attrs := record.AsMap()
			sid := attrs["objectsid"]
			dn := attrs["distinguishedname"]
			if sid == "" && dn == "" {
				changed = append(changed, record)
				continue
			}
			stored := objects.Get(objectKey(sid, dn))
			if stored == nil {
				changed = append(changed, record)
				continue
			}
			var cached cachedObject
			if err := decode(stored, &cached); err != nil {
				changed = append(changed, record)
				continue
			}
			if cached.Fingerprint != Fingerprint(attrs) {
				changed = append(changed, record)
			}
		}
		return nil
	})

	if skipped := len(records) - len(changed); skipped > 0 {
		ui.Info().Msgf("Cache skipped %v unchanged objects", skipped)
	}
	return changed
}

// StoreObjects persists the processed objects keyed by SID and DN,
// each with the fingerprint of the attributes it was built from.
func (c *ObjectCache) StoreObjects(objects []*activedirectory.DirectoryObject, sourceFile string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketObjects)
		for _, obj := range objects {
			sid := obj.SourceAttributes["objectsid"]
			dn := obj.SourceAttributes["distinguishedname"]
			if sid == "" && dn == "" {
				continue
			}
			payload, err := encode(obj)
			if err != nil {
				return errors.Wrapf(err, "serializing %v", obj.ObjectIdentifier)
			}
			compressed, err := compress(payload)
			if err != nil {
				return errors.Wrapf(err, "compressing %v", obj.ObjectIdentifier)
			}
			entry, err := encode(cachedObject{
				Type:        string(obj.Type),
				Fingerprint: Fingerprint(obj.SourceAttributes),
				SourceFile:  sourceFile,
				StoredAt:    time.Now(),
				Payload:     compressed,
			})
			if err != nil {
				return err
			}
			if err := bucket.Put(objectKey(sid, dn), entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetObject loads one cached object back, mostly useful for
// inspection and tests.
func (c *ObjectCache) GetObject(sid, dn string) (*activedirectory.DirectoryObject, bool, error) {
	var obj activedirectory.DirectoryObject
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		stored := tx.Bucket(bucketObjects).Get(objectKey(sid, dn))
		if stored == nil {
			return nil
		}
		var cached cachedObject
		if err := decode(stored, &cached); err != nil {
			return err
		}
		payload, err := decompress(cached.Payload)
		if err != nil {
			return err
		}
		if err := decode(payload, &obj); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &obj, true, nil
}

// StoreContext saves the lookup tables so a later run can resolve
// principals this run discovered.
func (c *ObjectCache) StoreContext(ctx *acl.LookupContext, dnmap map[string]string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		sids := tx.Bucket(bucketSIDMap)
		for sid, entrytype := range ctx.SIDTypes {
			entry, err := encode(cachedPrincipal{Type: entrytype})
			if err != nil {
				return err
			}
			if err := sids.Put([]byte(sid), entry); err != nil {
				return err
			}
		}
		domains := tx.Bucket(bucketDomainMap)
		for path, sid := range ctx.DomainSIDs {
			if err := domains.Put([]byte(path), []byte(sid)); err != nil {
				return err
			}
		}
		schemas := tx.Bucket(bucketSchemaGUIDs)
		for name, guid := range ctx.SchemaGUIDs {
			if err := schemas.Put([]byte(name), []byte(guid)); err != nil {
				return err
			}
		}
		dns := tx.Bucket(bucketDNMap)
		for dn, id := range dnmap {
			if err := dns.Put([]byte(dn), []byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExportContext loads the saved lookup tables. An empty SID table gets
// a warning, ACL resolution will be mostly blind without it.
func (c *ObjectCache) ExportContext() (*acl.LookupContext, error) {
	ctx := acl.NewLookupContext()
	err := c.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketSIDMap).ForEach(func(key, value []byte) error {
			var principal cachedPrincipal
			if err := decode(value, &principal); err != nil {
				return err
			}
			ctx.SIDTypes[string(key)] = principal.Type
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketDomainMap).ForEach(func(key, value []byte) error {
			ctx.DomainSIDs[string(key)] = string(value)
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSchemaGUIDs).ForEach(func(key, value []byte) error {
			ctx.SchemaGUIDs[string(key)] = string(value)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(ctx.SIDTypes) == 0 {
		ui.Warn().Msgf("Cache %v holds no SID mappings, principal resolution will be degraded", c.path)
	}
	return ctx, nil
}

type Statistics struct {
	Objects       int
	ObjectsByType map[string]int
	SIDMappings   int
	DNMappings    int
	DomainSIDs    int
	SchemaGUIDs   int
	Version       string
}

func (c *ObjectCache) Statistics() (Statistics, error) {
	stats := Statistics{ObjectsByType: make(map[string]int)}
	err := c.db.View(func(tx *bbolt.Tx) error {
		stats.Version = string(tx.Bucket(bucketMetadata).Get(keyVersion))
		err := tx.Bucket(bucketObjects).ForEach(func(key, value []byte) error {
			stats.Objects++
			var cached cachedObject
			if err := decode(value, &cached); err == nil {
				stats.ObjectsByType[cached.Type]++
			}
			return nil
		})
		if err != nil {
			return err
		}
		stats.SIDMappings = tx.Bucket(bucketSIDMap).Stats().KeyN
		stats.DNMappings = tx.Bucket(bucketDNMap).Stats().KeyN
		stats.DomainSIDs = tx.Bucket(bucketDomainMap).Stats().KeyN
		stats.SchemaGUIDs = tx.Bucket(bucketSchemaGUIDs).Stats().KeyN
		return nil
	})
	return stats, err
}

var jsonHandle codec.JsonHandle

func encode(v any) ([]byte, error) {
	var out []byte
	err := codec.NewEncoderBytes(&out, &jsonHandle).Encode(v)
	return out, err
}

func decode(data []byte, v any) error {
	return codec.NewDecoderBytes(data, &jsonHandle).Decode(v)
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
