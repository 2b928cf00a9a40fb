package validate

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"time"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Accepted dateTime layouts: UTC with Z suffix, explicit offset, and
// millisecond fraction before Z. Parsing also rejects impossible
// calendar dates (e.g. February 30th).
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05.000Z",
}

var hexRe = regexp.MustCompile(`^[0-9A-Fa-f]*$`)

// checkTypedValue validates a value against the declared data type.
// Unknown types get no value check; the caller has already flagged them.
func checkTypedValue(typ model.DataType, value any, result *model.ValidationResult) {
	switch typ.Normalized() {
	case model.DataTypeString:
		if _, ok := value.(string); !ok {
			result.AddError(fmt.Sprintf("value %v is not a string", value))
		}
	case model.DataTypeInt, model.DataTypeLong:
		if !isIntegral(value) {
			result.AddError(fmt.Sprintf("value %v is not integral", value))
		}
	case model.DataTypeUnsignedInt, model.DataTypeUnsignedLong:
		if !isIntegral(value) {
			result.AddError(fmt.Sprintf("value %v is not integral", value))
		} else if isNegative(value) {
			result.AddError(fmt.Sprintf("value %v is negative for unsigned type %s", value, typ))
		}
	case model.DataTypeFloat, model.DataTypeDouble:
		if _, ok := toFloat64(value); !ok {
			result.AddError(fmt.Sprintf("value %v is not numeric", value))
		}
	case model.DataTypeBoolean:
		// Strict: truthy/falsy surrogates ("1", "true") are not booleans.
		if _, ok := value.(bool); !ok {
			result.AddError(fmt.Sprintf("value %v is not a boolean", value))
		}
	case model.DataTypeDateTime:
		checkDateTime(value, result)
	case model.DataTypeBase64:
		checkBase64(value, result)
	case model.DataTypeHexBinary:
		checkHexBinary(value, result)
	}
}

func checkDateTime(value any, result *model.ValidationResult) {
	s, ok := value.(string)
	if !ok {
		result.AddError(fmt.Sprintf("dateTime value %v is not a string", value))
		return
	}
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return
		}
	}
	result.AddError(fmt.Sprintf("value %q is not a valid dateTime", s))
}

func checkBase64(value any, result *model.ValidationResult) {
	s, ok := value.(string)
	if !ok {
		result.AddError(fmt.Sprintf("base64 value %v is not a string", value))
		return
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		result.AddError(fmt.Sprintf("value %q is not valid base64", s))
	}
}

func checkHexBinary(value any, result *model.ValidationResult) {
	s, ok := value.(string)
	if !ok {
		result.AddError(fmt.Sprintf("hexBinary value %v is not a string", value))
		return
	}
	if !hexRe.MatchString(s) {
		result.AddError(fmt.Sprintf("value %q contains non-hex characters", s))
	}
	if len(s)%2 != 0 {
		result.AddError(fmt.Sprintf("value %q has odd length for hexBinary", s))
	}
}

// checkRangeSpec validates the range specification itself, independent
// of any value.
func checkRangeSpec(r *model.ValueRange, result *model.ValidationResult) {
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		result.AddError(fmt.Sprintf("range minimum %v exceeds maximum %v", *r.Min, *r.Max))
	}
	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			result.AddError(fmt.Sprintf("range pattern %q does not compile: %v", r.Pattern, err))
		}
	}
	if r.MaxLength != nil && *r.MaxLength <= 0 {
		result.AddError(fmt.Sprintf("range maxLength %d is not positive", *r.MaxLength))
	}
}

// checkRangeValue validates a value against the range constraints.
// AllowedValues membership takes precedence over every other check.
func checkRangeValue(r *model.ValueRange, value any, result *model.ValidationResult) {
	if len(r.AllowedValues) > 0 {
		s := stringify(value)
		for _, allowed := range r.AllowedValues {
			if s == allowed {
				return
			}
		}
		result.AddError(fmt.Sprintf("value %v is not among the allowed values %v", value, r.AllowedValues))
		return
	}

	if r.Min != nil || r.Max != nil {
		if v, ok := toFloat64(value); ok {
			if r.Min != nil && v < *r.Min {
				result.AddError(fmt.Sprintf("value %v is below the minimum %v", value, *r.Min))
			}
			if r.Max != nil && v > *r.Max {
				result.AddError(fmt.Sprintf("value %v is above the maximum %v", value, *r.Max))
			}
		} else {
			result.AddWarning(fmt.Sprintf("value %v is not comparable to numeric bounds", value))
		}
	}

	if r.MaxLength != nil && *r.MaxLength > 0 {
		if s, ok := value.(string); ok {
			if len(s) > *r.MaxLength {
				result.AddError(fmt.Sprintf("value length %d exceeds maxLength %d", len(s), *r.MaxLength))
			}
		} else {
			result.AddWarning(fmt.Sprintf("value %v is not a string for maxLength check", value))
		}
	}

	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			// Reported by the specification self-check.
			return
		}
		if s, ok := value.(string); ok {
			if !re.MatchString(s) {
				result.AddError(fmt.Sprintf("value %q does not match pattern %q", s, r.Pattern))
			}
		} else {
			result.AddWarning(fmt.Sprintf("value %v is not a string for pattern check", value))
		}
	}
}

func isIntegral(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isNegative(v any) bool {
	switch n := v.(type) {
	case int:
		return n < 0
	case int8:
		return n < 0
	case int16:
		return n < 0
	case int32:
		return n < 0
	case int64:
		return n < 0
	default:
		return false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
