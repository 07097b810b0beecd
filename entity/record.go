package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// The pipeline's stage types. Each stage holds its own copy of the
// record so stage boundaries stay auditable: mutating one stage never
// reaches back into an earlier one.
type (
	// RawPayload is the caller's payload as normalized by the request
	// layer.
	RawPayload map[string]any

	// BuiltRecord has defaults layered under the payload, an identity
	// value, and a composed meta sub-object.
	BuiltRecord map[string]any

	// SanitizedRecord has every string value scrubbed.
	SanitizedRecord map[string]any

	// ValidatedRecord passed structural and business validation.
	ValidatedRecord map[string]any
)

// buildRecord layers config defaults under the payload, ensures the
// identity field, and composes meta from system-injected fields, the
// config's meta defaults, and the payload's own meta, in ascending
// priority.
func (e *Engine) buildRecord(cfg *EntityConfig, req *Request) BuiltRecord {
	record := copyMap(cfg.Defaults)
	if record == nil {
		record = map[string]any{}
	}
	for k, v := range req.Payload {
		record[k] = deepCopy(v)
	}

	keyField := cfg.Storage.Normalize().KeyField
	if isBlank(record[keyField]) {
		record[keyField] = uuid.NewString()
	}

	meta := map[string]any{
		"source":    e.source,
		"createdAt": e.clock().UTC().Format(time.RFC3339),
		"createdBy": actorOrSystem(req.Actor),
	}
	for k, v := range cfg.MetaDefaults {
		meta[k] = deepCopy(v)
	}
	if payloadMeta, ok := record["meta"].(map[string]any); ok {
		for k, v := range payloadMeta {
			meta[k] = v
		}
	}
	record["meta"] = meta

	return BuiltRecord(record)
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// keyString renders a record's key value for comparison and storage
// addressing.
func keyString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// deepCopy clones nested maps and slices; scalars pass through.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}
