package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// FileDriver persists records to a single file per entity.
type FileDriver struct{}

// NewFileDriver creates a filesystem-backed driver.
func NewFileDriver() *FileDriver {
	return &FileDriver{}
}

func (f *FileDriver) Kind() Kind { return KindFile }

func (f *FileDriver) Read(_ context.Context, t Target) ([]map[string]any, error) {
	data, err := os.ReadFile(t.Location())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t.Codec.Decode(data)
}

func (f *FileDriver) Append(_ context.Context, t Target, record map[string]any) error {
	lc, ok := t.Codec.(LineCodec)
	if !ok {
		return f.appendDocument(t, record)
	}

	line, err := lc.EncodeLine(record)
	if err != nil {
		return err
	}
	path := t.Location()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	header := lc.Header()
	if header != nil {
		return f.appendWithHeader(t, path, header, line)
	}

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = fh.Write(line)
	return err
}

// appendWithHeader appends a row to a headered line format. An empty
// file gets the header first; a headerless file has the header
// prepended; a file with a divergent header row is an error.
func (f *FileDriver) appendWithHeader(t Target, path string, header, line []byte) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if len(bytes.TrimSpace(existing)) == 0 {
		return os.WriteFile(path, append(append([]byte{}, header...), line...), 0o644)
	}

	headerLine := string(bytes.TrimRight(header, "\r\n"))
	firstLine := existing
	if i := bytes.IndexByte(existing, '\n'); i >= 0 {
		firstLine = existing[:i]
	}
	if string(bytes.TrimRight(firstLine, "\r")) == headerLine {
		fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer fh.Close()
		_, err = fh.Write(line)
		return err
	}

	declared := parseCSVLine(headerLine)
	actual := parseCSVLine(string(bytes.TrimRight(firstLine, "\r")))
	if looksLikeHeader(actual, declared) {
		return &HeaderMismatchError{Location: path, Declared: declared, Actual: actual}
	}

	// Headerless data file: prepend the header rather than fail.
	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(existing)
	if !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.Write(line)
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// appendDocument handles whole-document formats (json, tree) by
// rewriting the document with the record added.
func (f *FileDriver) appendDocument(t Target, record map[string]any) error {
	records, err := f.Read(context.Background(), t)
	if err != nil {
		return err
	}
	return f.Replace(context.Background(), t, append(records, record))
}

func (f *FileDriver) Replace(_ context.Context, t Target, records []map[string]any) error {
	data, err := t.Codec.Encode(records)
	if err != nil {
		return err
	}
	path := t.Location()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *FileDriver) Snapshot(_ context.Context, t Target) (*Snapshot, error) {
	data, err := os.ReadFile(t.Location())
	if errors.Is(err, os.ErrNotExist) {
		return &Snapshot{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Snapshot{Raw: data, Exists: true}, nil
}

func (f *FileDriver) Restore(_ context.Context, t Target, snap *Snapshot) error {
	path := t.Location()
	if snap == nil || !snap.Exists {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, snap.Raw, 0o644)
}

func parseCSVLine(line string) []string {
	r := csv.NewReader(bytes.NewReader([]byte(line)))
	fields, err := r.Read()
	if err != nil {
		return []string{line}
	}
	return fields
}
