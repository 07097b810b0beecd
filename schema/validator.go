package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// formatChecker backs format validations (email). validator.Validate
// instances are safe for concurrent use and cache struct metadata, so
// one package-level instance suffices.
var formatChecker = validator.New()

// Validate checks a record against the schema and returns a
// *ValidationError aggregating every violation found, or nil.
func Validate(record map[string]any, s Schema) error {
	var violations []Violation

	for name, field := range s {
		value := record[name]
		if isEmpty(value) {
			if field.Required {
				violations = append(violations, Violation{
					Field:   name,
					Code:    "required",
					Message: fmt.Sprintf("field %q is required", name),
				})
			}
			continue
		}

		if v, ok := checkType(value, field.Type); !ok {
			violations = append(violations, v.withField(name))
			continue
		}
		violations = append(violations, checkConstraints(name, value, field)...)
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (v Violation) withField(name string) Violation {
	v.Field = name
	return v
}

// isEmpty treats missing, nil, "" and empty composites as absent.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func checkType(value any, t FieldType) (Violation, bool) {
	ok := true
	switch t {
	case TypeString:
		_, ok = value.(string)
	case TypeNumber:
		ok = isNumeric(value)
	case TypeInteger:
		ok = isInteger(value)
	case TypeBoolean:
		_, ok = value.(bool)
	case TypeArray:
		_, ok = value.([]any)
	case TypeObject:
		_, ok = value.(map[string]any)
	case "":
		// Untyped fields accept anything.
	default:
		return Violation{
			Code:    "unknown_type",
			Message: fmt.Sprintf("unknown declared type %q", t),
		}, false
	}
	if !ok {
		return Violation{
			Code:    "type",
			Message: fmt.Sprintf("expected %s, got %T", t, value),
		}, false
	}
	return Violation{}, true
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch t := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return t == float64(int64(t))
	}
	return false
}

func checkConstraints(name string, value any, field Field) []Violation {
	var violations []Violation

	length, hasLength := valueLength(value)
	if hasLength {
		if field.MinLength > 0 && length < field.MinLength {
			violations = append(violations, Violation{
				Field:   name,
				Code:    "min_length",
				Message: fmt.Sprintf("field %q is shorter than %d", name, field.MinLength),
			})
		}
		if field.MaxLength > 0 && length > field.MaxLength {
			violations = append(violations, Violation{
				Field:   name,
				Code:    "max_length",
				Message: fmt.Sprintf("field %q is longer than %d", name, field.MaxLength),
			})
		}
	}

	if field.Pattern != "" {
		if s, ok := value.(string); ok {
			re, err := regexp.Compile(field.Pattern)
			if err != nil {
				violations = append(violations, Violation{
					Field:   name,
					Code:    "pattern_invalid",
					Message: fmt.Sprintf("field %q has an invalid pattern: %v", name, err),
				})
			} else if !re.MatchString(s) {
				violations = append(violations, Violation{
					Field:   name,
					Code:    "pattern",
					Message: fmt.Sprintf("field %q does not match pattern %s", name, field.Pattern),
				})
			}
		}
	}

	if field.Format == "email" {
		if s, ok := value.(string); ok {
			if err := formatChecker.Var(s, "email"); err != nil {
				violations = append(violations, Violation{
					Field:   name,
					Code:    "format",
					Message: fmt.Sprintf("field %q is not a valid email", name),
				})
			}
		}
	}

	if len(field.Enum) > 0 && !enumContains(field.Enum, value) {
		violations = append(violations, Violation{
			Field:   name,
			Code:    "enum",
			Message: fmt.Sprintf("field %q must be one of the allowed values", name),
		})
	}

	return violations
}

func valueLength(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return len([]rune(t)), true
	case []any:
		return len(t), true
	default:
		return 0, false
	}
}

func enumContains(enum []any, value any) bool {
	for _, allowed := range enum {
		if equalValue(allowed, value) {
			return true
		}
	}
	return false
}

// equalValue compares with numeric coercion so an enum declared as
// [1, 2] matches a decoded float64(1).
func equalValue(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// ValidateCSVHeaders enforces the CSV-specific schema rules: headers
// must be unique, every required field must have a column, and every
// non-meta column must be a declared field.
func ValidateCSVHeaders(headers []string, s Schema) error {
	var violations []Violation

	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if seen[h] {
			violations = append(violations, Violation{
				Field:   h,
				Code:    "duplicate_header",
				Message: fmt.Sprintf("duplicate csv header %q", h),
			})
		}
		seen[h] = true
	}

	for name, field := range s {
		if field.Required && !seen[name] {
			violations = append(violations, Violation{
				Field:   name,
				Code:    "missing_header",
				Message: fmt.Sprintf("required field %q has no csv header", name),
			})
		}
	}

	for _, h := range headers {
		if strings.HasPrefix(h, "meta_") {
			continue
		}
		if _, ok := s[h]; !ok {
			violations = append(violations, Violation{
				Field:   h,
				Code:    "unknown_header",
				Message: fmt.Sprintf("csv header %q is not a schema field", h),
			})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
