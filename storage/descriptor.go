package storage

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Kind identifies a storage driver.
type Kind int

const (
	// KindFile stores records in a single file on the filesystem.
	KindFile Kind = iota

	// KindKeyValue stores records under namespaced keys in a
	// key-value table.
	KindKeyValue

	// KindObjectStore stores records as items in an object store
	// (DynamoDB) partition.
	KindObjectStore
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindKeyValue:
		return "kv"
	case KindObjectStore:
		return "object"
	default:
		return "unknown"
	}
}

// ParseKind parses a driver kind name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "file", "fs":
		return KindFile, nil
	case "kv", "keyvalue":
		return KindKeyValue, nil
	case "object", "objectstore":
		return KindObjectStore, nil
	default:
		return KindFile, errors.Newf("strata: unknown driver kind %q", s)
	}
}

// Format names a serialization format.
type Format string

const (
	// FormatJSON is a single JSON array document.
	FormatJSON Format = "json"

	// FormatJSONL is line-delimited JSON, one object per line.
	FormatJSONL Format = "jsonl"

	// FormatCSV is a header row followed by quote-escaped rows.
	FormatCSV Format = "csv"

	// FormatTree is an indented tree-text document (YAML by default;
	// the serializer pair is caller-suppliable via Descriptor.Tree).
	FormatTree Format = "tree"
)

// Descriptor is the resolved storage location and format for an entity.
type Descriptor struct {
	// Driver selects the storage medium.
	Driver Kind

	// Path is the directory for file storage.
	Path string

	// File is the file name for file storage.
	File string

	// Format selects the serialization codec. Default: json.
	Format Format

	// Headers declares the CSV column order. Required for csv.
	Headers []string

	// KeyField names the record identity field. Default: "id".
	KeyField string

	// Tree optionally overrides the tree-format serializer pair.
	Tree *TreeCodec
}

// Normalize fills descriptor defaults.
func (d Descriptor) Normalize() Descriptor {
	if d.Format == "" {
		d.Format = FormatJSON
	}
	if d.KeyField == "" {
		d.KeyField = "id"
	}
	return d
}

// Location is the concrete file path or synthetic key prefix records
// for the entity live under.
func (d Descriptor) Location(entity string) string {
	switch d.Driver {
	case KindFile:
		return filepath.Join(d.Path, d.File)
	case KindKeyValue:
		return "kv:" + entity
	case KindObjectStore:
		return "obj:" + entity
	default:
		return entity
	}
}

// Override carries request-level storage overrides. Zero-valued fields
// leave the entity's static descriptor untouched.
type Override struct {
	Driver   string   `json:"driver,omitempty" yaml:"driver,omitempty"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Format   string   `json:"format,omitempty" yaml:"format,omitempty"`
	KeyField string   `json:"keyField,omitempty" yaml:"keyField,omitempty"`
	Headers  []string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Apply merges an override over the descriptor and renormalizes.
func (d Descriptor) Apply(o *Override) (Descriptor, error) {
	if o == nil {
		return d.Normalize(), nil
	}
	if o.Driver != "" {
		kind, err := ParseKind(o.Driver)
		if err != nil {
			return d, err
		}
		d.Driver = kind
	}
	if o.Path != "" {
		d.Path = o.Path
	}
	if o.File != "" {
		d.File = o.File
	}
	if o.Format != "" {
		d.Format = Format(o.Format)
	}
	if o.KeyField != "" {
		d.KeyField = o.KeyField
	}
	if len(o.Headers) > 0 {
		d.Headers = o.Headers
	}
	return d.Normalize(), nil
}
