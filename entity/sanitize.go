package entity

import (
	"github.com/jacentio/strata/internal/scrub"
)

// Sanitize scrubs every string value in the record, including values
// nested in maps and arrays. The passes run in a fixed order: tag
// stripping, entity escaping, SQL-keyword blanking, traversal removal,
// then truncation, each toggled by the config. Any scrub pass that ran
// gets its leading/trailing residue trimmed. Pure transform: the input
// stage is never mutated.
func Sanitize(record BuiltRecord, cfg *SanitizeConfig) SanitizedRecord {
	if cfg == nil {
		cfg = DefaultSanitizeConfig()
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = sanitizeValue(v, cfg)
	}
	return SanitizedRecord(out)
}

func sanitizeValue(v any, cfg *SanitizeConfig) any {
	switch t := v.(type) {
	case string:
		return sanitizeString(t, cfg)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = sanitizeValue(item, cfg)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitizeValue(item, cfg)
		}
		return out
	default:
		return v
	}
}

func sanitizeString(s string, cfg *SanitizeConfig) string {
	scrubbed := false
	if cfg.StripTags {
		s = scrub.StripTags(s)
		scrubbed = true
	}
	if cfg.EscapeEntities {
		s = scrub.EscapeEntities(s)
		scrubbed = true
	}
	if cfg.BlankSQL {
		s = scrub.BlankSQLKeywords(s)
		scrubbed = true
	}
	if cfg.StripTraversal {
		s = scrub.StripTraversal(s)
		scrubbed = true
	}
	// Scrubbing can leave whitespace behind where a keyword or tag
	// used to be. Disabled passes leave the string untouched.
	if scrubbed {
		s = scrub.Collapse(s)
	}
	return scrub.Truncate(s, cfg.MaxLength)
}
