package reqlog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"unicode/utf8"
)

const (
	// DefaultMaskPattern replaces the value of every sensitive field.
	DefaultMaskPattern = "[REDACTED]"
	// DefaultMaxBodyLength bounds serialized bodies, params and responses.
	DefaultMaxBodyLength = 2048

	circularMarker       = "[Circular]"
	unserializableMarker = "[Unserializable]"
	truncatedSuffix      = "...[TRUNCATED]"
)

var defaultSensitiveFields = []string{
	"password",
	"token",
	"secret",
	"authorization",
	"apiKey",
	"api_key",
	"accessToken",
	"access_token",
	"refreshToken",
	"refresh_token",
	"credential",
	"credentials",
	"private_key",
	"privateKey",
}

// DefaultSensitiveFields returns a copy of the field names masked when no
// list is configured.
func DefaultSensitiveFields() []string {
	return slices.Clone(defaultSensitiveFields)
}

// SanitizerOptions controls SanitizePayload. The zero value selects the
// defaults. A non-nil empty SensitiveFields disables masking.
type SanitizerOptions struct {
	MaxLength       int
	SensitiveFields []string
	MaskPattern     string
}

func (o SanitizerOptions) resolved() SanitizerOptions {
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxBodyLength
	}
	if o.SensitiveFields == nil {
		o.SensitiveFields = defaultSensitiveFields
	}
	if o.MaskPattern == "" {
		o.MaskPattern = DefaultMaskPattern
	}
	return o
}

// MaskSensitiveData returns a masked copy of data. Objects and arrays (maps,
// slices, arrays, structs and pointers to them, or a *Value) come back as a
// *Value of the same shape in which every member whose key contains one of
// sensitiveFields, compared case-insensitively, holds maskPattern instead.
// Any other input is returned unchanged. data itself is never modified.
//
// A nil sensitiveFields selects DefaultSensitiveFields and an empty
// maskPattern selects DefaultMaskPattern.
func MaskSensitiveData(data any, sensitiveFields []string, maskPattern string) any {
	if sensitiveFields == nil {
		sensitiveFields = defaultSensitiveFields
	}
	if maskPattern == "" {
		maskPattern = DefaultMaskPattern
	}
	if !isContainer(data) {
		return data
	}
	out, err := newWalker(sensitiveFields, maskPattern).walk(data)
	if err != nil {
		return StringValue(unserializableMarker)
	}
	return out
}

// SafeStringify serializes value as compact JSON. nil and null produce "".
// Repeated references serialize as "[Circular]" and values that cannot be
// serialized produce "[Unserializable]". When maxLength is positive the
// output is cut to maxLength characters followed by "...[TRUNCATED]".
func SafeStringify(value any, maxLength int) string {
	out, err := newWalker(nil, "").walk(value)
	if err != nil {
		return unserializableMarker
	}
	if out.IsNull() {
		return ""
	}
	return truncate(out.String(), maxLength)
}

// SanitizePayload turns an arbitrary request or response payload into a
// bounded, masked string suitable for a log record.
//
// Text (string, []byte, json.RawMessage) is decoded as JSON when possible and
// then masked; text that is not JSON is kept verbatim and only truncated.
// Objects and arrays are masked and serialized. Other scalars use their fmt
// representation and are never truncated.
func SanitizePayload(payload any, opts SanitizerOptions) string {
	opts = opts.resolved()

	switch p := payload.(type) {
	case nil:
		return ""
	case string:
		return sanitizeText(p, opts)
	case []byte:
		return sanitizeText(string(p), opts)
	case json.RawMessage:
		return sanitizeText(string(p), opts)
	case Value:
		return SanitizePayload(&p, opts)
	case *Value:
		switch p.Kind() {
		case KindNull:
			return ""
		case KindString:
			return sanitizeText(p.s, opts)
		case KindBool, KindNumber:
			return p.String()
		}
	}

	if isContainer(payload) {
		out, err := newWalker(opts.SensitiveFields, opts.MaskPattern).walk(payload)
		if err != nil {
			return unserializableMarker
		}
		if out.IsNull() {
			return ""
		}
		return truncate(out.String(), opts.MaxLength)
	}

	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return sanitizeText(rv.String(), opts)
	}
	if rv.CanInterface() {
		return fmt.Sprint(rv.Interface())
	}
	return fmt.Sprint(payload)
}

func sanitizeText(text string, opts SanitizerOptions) string {
	parsed, err := parseJSON(text)
	if err != nil {
		return truncate(text, opts.MaxLength)
	}
	out, err := newWalker(opts.SensitiveFields, opts.MaskPattern).walk(parsed)
	if err != nil {
		return unserializableMarker
	}
	if out.IsNull() {
		return ""
	}
	return truncate(out.String(), opts.MaxLength)
}

// truncate cuts s to maxLength characters and appends the truncation marker.
// A non-positive maxLength disables truncation.
func truncate(s string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLength {
			return s[:i] + truncatedSuffix
		}
		n++
	}
	return s
}

// isContainer reports whether data serializes as a JSON object or array.
func isContainer(data any) bool {
	switch v := data.(type) {
	case nil:
		return false
	case *Value:
		k := v.Kind()
		return k == KindArray || k == KindObject
	case Value:
		k := v.Kind()
		return k == KindArray || k == KindObject
	case json.RawMessage:
		return false
	}

	rv := reflect.ValueOf(data)
	for {
		if _, ok := asInterface[json.Marshaler](rv); ok {
			return false
		}
		if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface {
			break
		}
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	if hasMarshaler(rv.Type()) {
		return false
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Array:
		return true
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}
