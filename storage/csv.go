package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const metaColumnPrefix = "meta_"

// CSVCodec stores records as a header row followed by quote-escaped
// rows. Nested meta fields flatten to meta_* columns; array and object
// cells hold embedded JSON.
type CSVCodec struct {
	Headers []string
	Types   map[string]string
}

func (c *CSVCodec) Header() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(c.Headers)
	w.Flush()
	return buf.Bytes()
}

func (c *CSVCodec) EncodeLine(record map[string]any) ([]byte, error) {
	row := make([]string, len(c.Headers))
	for i, h := range c.Headers {
		v, ok := c.lookup(record, h)
		if !ok {
			continue
		}
		cell, err := encodeCell(v)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", h)
		}
		row[i] = cell
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// lookup resolves a header name to a record value, descending into the
// meta sub-object for meta_* columns.
func (c *CSVCodec) lookup(record map[string]any, header string) (any, bool) {
	if strings.HasPrefix(header, metaColumnPrefix) {
		meta, ok := record["meta"].(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := meta[strings.TrimPrefix(header, metaColumnPrefix)]
		return v, ok
	}
	v, ok := record[header]
	return v, ok
}

func (c *CSVCodec) Encode(records []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(c.Header())
	for _, r := range records {
		line, err := c.EncodeLine(r)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

func (c *CSVCodec) Decode(data []byte) ([]map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	if !headersEqual(header, c.Headers) {
		return nil, &HeaderMismatchError{Declared: c.Headers, Actual: header}
	}

	var records []map[string]any
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv row")
		}
		records = append(records, c.decodeRow(row))
	}
	return records, nil
}

func (c *CSVCodec) decodeRow(row []string) map[string]any {
	record := make(map[string]any, len(c.Headers))
	for i, h := range c.Headers {
		if i >= len(row) || row[i] == "" {
			continue
		}
		var value any = row[i]
		if !strings.HasPrefix(h, metaColumnPrefix) {
			value = castValue(value, c.Types[h])
			record[h] = value
			continue
		}
		meta, _ := record["meta"].(map[string]any)
		if meta == nil {
			meta = make(map[string]any)
			record["meta"] = meta
		}
		meta[strings.TrimPrefix(h, metaColumnPrefix)] = value
	}
	return record
}

// encodeCell renders a record value as a CSV cell. Arrays and objects
// become embedded JSON; everything else uses its canonical string form.
func encodeCell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case []any, map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return fmt.Sprintf("%v", t), nil
	}
}

// headersEqual demands an exact, order-preserving match.
func headersEqual(actual, declared []string) bool {
	if len(actual) != len(declared) {
		return false
	}
	for i := range actual {
		if actual[i] != declared[i] {
			return false
		}
	}
	return true
}

// looksLikeHeader reports whether a parsed first row consists solely of
// declared header names. Used to distinguish a divergent header row
// (an error) from a headerless data file (repairable).
func looksLikeHeader(row, declared []string) bool {
	names := make(map[string]bool, len(declared))
	for _, h := range declared {
		names[h] = true
	}
	for _, cell := range row {
		if !names[cell] {
			return false
		}
	}
	return len(row) > 0
}
