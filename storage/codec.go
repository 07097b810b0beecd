package storage

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Codec serializes a full record set to and from bytes.
type Codec interface {
	Encode(records []map[string]any) ([]byte, error)
	Decode(data []byte) ([]map[string]any, error)
}

// LineCodec is a Codec whose documents grow by appending lines, which
// lets drivers append a record without rewriting the document.
type LineCodec interface {
	Codec

	// EncodeLine serializes one record including its trailing newline.
	EncodeLine(record map[string]any) ([]byte, error)

	// Header returns the leading header line including its trailing
	// newline, or nil when the format has none.
	Header() []byte
}

// codecFor selects the codec for a descriptor. types maps field names
// to declared schema types for read-side casting.
func codecFor(desc Descriptor, types map[string]string) (Codec, error) {
	switch desc.Format {
	case FormatJSON:
		return &JSONCodec{Types: types}, nil
	case FormatJSONL:
		return &JSONLCodec{Types: types}, nil
	case FormatCSV:
		return &CSVCodec{Headers: desc.Headers, Types: types}, nil
	case FormatTree:
		if desc.Tree != nil {
			return desc.Tree, nil
		}
		return NewTreeCodec(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", desc.Format)
	}
}

// JSONCodec stores the record set as a single JSON array document.
type JSONCodec struct {
	Types map[string]string
}

func (c *JSONCodec) Encode(records []map[string]any) ([]byte, error) {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (c *JSONCodec) Decode(data []byte) ([]map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode json document")
	}
	for _, r := range records {
		CastRecord(r, c.Types)
	}
	return records, nil
}

// JSONLCodec stores one JSON object per line.
type JSONLCodec struct {
	Types map[string]string
}

func (c *JSONLCodec) Encode(records []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := c.EncodeLine(r)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

func (c *JSONLCodec) EncodeLine(record map[string]any) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (c *JSONLCodec) Header() []byte { return nil }

func (c *JSONLCodec) Decode(data []byte) ([]map[string]any, error) {
	var records []map[string]any
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r map[string]any
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errors.Wrapf(err, "decode jsonl line %d", i+1)
		}
		CastRecord(r, c.Types)
		records = append(records, r)
	}
	return records, nil
}

// CastRecord coerces record values toward their declared schema types.
// Unknown fields and unconvertible values are left untouched.
func CastRecord(record map[string]any, types map[string]string) {
	if len(types) == 0 {
		return
	}
	for field, typ := range types {
		v, ok := record[field]
		if !ok {
			continue
		}
		record[field] = castValue(v, typ)
	}
}

func castValue(v any, typ string) any {
	switch typ {
	case "integer":
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int:
			return int64(n)
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i
			}
		}
	case "number":
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
	case "array":
		if s, ok := v.(string); ok {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
		}
	case "object":
		if s, ok := v.(string); ok {
			var obj map[string]any
			if err := json.Unmarshal([]byte(s), &obj); err == nil {
				return obj
			}
		}
	}
	return v
}
