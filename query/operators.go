package query

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// Op names a filter operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpText     Op = "text"
	OpRange    Op = "range"
	OpBetween  Op = "between"
	OpIn       Op = "in"
	OpNotIn    Op = "notin"
	OpRegex    Op = "regex"
)

// ErrUnknownOperator is returned for an operator Execute cannot apply.
var ErrUnknownOperator = errors.New("strata: unknown query operator")

// apply evaluates one operator against a record's field value.
func apply(op Op, fieldValue, arg any) (bool, error) {
	switch op {
	case OpEq:
		return equal(fieldValue, arg), nil
	case OpNeq:
		return !equal(fieldValue, arg), nil
	case OpGt, OpGte, OpLt, OpLte:
		cmp, ok := compare(fieldValue, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case OpGt:
			return cmp > 0, nil
		case OpGte:
			return cmp >= 0, nil
		case OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case OpContains:
		return contains(fieldValue, arg), nil
	case OpText:
		fs, ok1 := fieldValue.(string)
		as, ok2 := arg.(string)
		return ok1 && ok2 && strings.Contains(strings.ToLower(fs), strings.ToLower(as)), nil
	case OpRange, OpBetween:
		bounds, ok := asSlice(arg)
		if !ok || len(bounds) != 2 {
			return false, errors.Newf("strata: %s expects a two-element bound", op)
		}
		lo, okLo := compare(fieldValue, bounds[0])
		hi, okHi := compare(fieldValue, bounds[1])
		return okLo && okHi && lo >= 0 && hi <= 0, nil
	case OpIn:
		values, ok := asSlice(arg)
		if !ok {
			return false, errors.New("strata: in expects a list")
		}
		return memberOf(values, fieldValue), nil
	case OpNotIn:
		values, ok := asSlice(arg)
		if !ok {
			return false, errors.New("strata: notin expects a list")
		}
		return !memberOf(values, fieldValue), nil
	case OpRegex:
		pattern, ok := arg.(string)
		if !ok {
			return false, errors.New("strata: regex expects a string pattern")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, errors.Wrap(err, "strata: bad regex")
		}
		s, ok := fieldValue.(string)
		return ok && re.MatchString(s), nil
	default:
		return false, errors.Wrapf(ErrUnknownOperator, "%q", op)
	}
}

// equal compares with numeric coercion so decoded float64 values match
// integer arguments.
func equal(a, b any) bool {
	if af, ok1 := asFloat(a); ok1 {
		if bf, ok2 := asFloat(b); ok2 {
			return af == bf
		}
	}
	return a == b
}

// compare returns -1/0/1 and whether the values were comparable.
func compare(a, b any) (int, bool) {
	if af, ok1 := asFloat(a); ok1 {
		if bf, ok2 := asFloat(b); ok2 {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, ok1 := a.(string)
	bs, ok2 := b.(string)
	if ok1 && ok2 {
		return strings.Compare(as, bs), true
	}
	ab, ok1 := a.(bool)
	bb, ok2 := b.(bool)
	if ok1 && ok2 {
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// contains matches substring for strings and membership for arrays.
func contains(fieldValue, arg any) bool {
	switch t := fieldValue.(type) {
	case string:
		s, ok := arg.(string)
		return ok && strings.Contains(t, s)
	case []any:
		return memberOf(t, arg)
	default:
		return false
	}
}

func memberOf(values []any, v any) bool {
	for _, candidate := range values {
		if equal(candidate, v) {
			return true
		}
	}
	return false
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
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
