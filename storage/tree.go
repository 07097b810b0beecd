package storage

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// TreeCodec stores records as an indented tree-text document. The
// default serializer pair is YAML; callers may supply their own.
type TreeCodec struct {
	Marshal   func(records []map[string]any) ([]byte, error)
	Unmarshal func(data []byte) ([]map[string]any, error)
}

// NewTreeCodec returns a tree codec with the YAML default serializers.
func NewTreeCodec() *TreeCodec {
	return &TreeCodec{}
}

func (c *TreeCodec) Encode(records []map[string]any) ([]byte, error) {
	if c.Marshal != nil {
		return c.Marshal(records)
	}
	if records == nil {
		records = []map[string]any{}
	}
	return yaml.Marshal(records)
}

func (c *TreeCodec) Decode(data []byte) ([]map[string]any, error) {
	if c.Unmarshal != nil {
		return c.Unmarshal(data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode tree document")
	}
	return records, nil
}
