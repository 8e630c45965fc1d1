package reqlog

import (
	"math"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member is a single key/value pair of an object Value.
type Member struct {
	Key   string
	Value *Value
}

// Value is a decoded JSON-like payload. Object members keep their insertion
// order so that serialized output matches the order they were produced in.
//
// A nil *Value behaves as null.
type Value struct {
	kind    Kind
	b       bool
	s       string // string contents or number literal
	items   []*Value
	members []Member
}

var nullValue = &Value{kind: KindNull}

func NullValue() *Value { return nullValue }

func BoolValue(b bool) *Value { return &Value{kind: KindBool, b: b} }

func StringValue(s string) *Value { return &Value{kind: KindString, s: s} }

// NumberValue returns a number Value. NaN and infinities become null.
func NumberValue(f float64) *Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nullValue
	}
	return &Value{kind: KindNumber, s: string(appendFloat(nil, f, 64))}
}

func IntValue(i int64) *Value { return &Value{kind: KindNumber, s: strconv.FormatInt(i, 10)} }

func UintValue(u uint64) *Value { return &Value{kind: KindNumber, s: strconv.FormatUint(u, 10)} }

// rawNumber keeps a number literal exactly as it appeared in decoded input.
func rawNumber(lit string) *Value { return &Value{kind: KindNumber, s: lit} }

func ArrayValue(items ...*Value) *Value {
	return &Value{kind: KindArray, items: items}
}

func ObjectValue(members ...Member) *Value {
	v := &Value{kind: KindObject, members: make([]Member, 0, len(members))}
	for _, m := range members {
		v.Set(m.Key, m.Value)
	}
	return v
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

func (v *Value) IsNull() bool { return v.Kind() == KindNull }

// Str returns the contents of a string Value or the literal of a number
// Value. Other kinds return "".
func (v *Value) Str() string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case KindString, KindNumber:
		return v.s
	default:
		return ""
	}
}

func (v *Value) Bool() bool { return v != nil && v.kind == KindBool && v.b }

// Float returns the numeric value of a number Value, or 0.
func (v *Value) Float() float64 {
	if v.Kind() != KindNumber {
		return 0
	}
	f, _ := strconv.ParseFloat(v.s, 64)
	return f
}

// Len returns the number of items of an array or members of an object.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	default:
		return 0
	}
}

func (v *Value) Index(i int) *Value {
	if v.Kind() != KindArray || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// Get returns the member stored under key, or nil.
func (v *Value) Get(key string) *Value {
	if v.Kind() != KindObject {
		return nil
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Set replaces the member stored under key, or appends it. Set is a no-op
// on non-object values.
func (v *Value) Set(key string, val *Value) {
	if v.Kind() != KindObject {
		return
	}
	for i := range v.members {
		if v.members[i].Key == key {
			v.members[i].Value = val
			return
		}
	}
	v.members = append(v.members, Member{Key: key, Value: val})
}

func (v *Value) Members() []Member {
	if v.Kind() != KindObject {
		return nil
	}
	return v.members
}

func (v *Value) Items() []*Value {
	if v.Kind() != KindArray {
		return nil
	}
	return v.items
}

// Interface converts v into the plain Go values encoding/json would decode
// the same document into.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindBool:
		return v.b
	case KindNumber:
		return v.Float()
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v *Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil), nil
}

// String returns the compact JSON encoding of v.
func (v *Value) String() string {
	return string(v.AppendJSON(nil))
}

// AppendJSON appends the compact JSON encoding of v to dst. Strings are
// escaped the way JSON.stringify does it: no HTML escaping, lower-case
// \u00XX for control characters.
func (v *Value) AppendJSON(dst []byte) []byte {
	switch v.Kind() {
	case KindBool:
		if v.b {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case KindNumber:
		return append(dst, v.s...)
	case KindString:
		return appendQuoted(dst, v.s)
	case KindArray:
		dst = append(dst, '[')
		for i, it := range v.items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = it.AppendJSON(dst)
		}
		return append(dst, ']')
	case KindObject:
		dst = append(dst, '{')
		for i, m := range v.members {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendQuoted(dst, m.Key)
			dst = append(dst, ':')
			dst = m.Value.AppendJSON(dst)
		}
		return append(dst, '}')
	default:
		return append(dst, "null"...)
	}
}

// clone returns a deep copy of v.
func (v *Value) clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{kind: v.kind, b: v.b, s: v.s}
	if v.items != nil {
		c.items = make([]*Value, len(v.items))
		for i, it := range v.items {
			c.items[i] = it.clone()
		}
	}
	if v.members != nil {
		c.members = make([]Member, len(v.members))
		for i, m := range v.members {
			c.members[i] = Member{Key: m.Key, Value: m.Value.clone()}
		}
	}
	return c
}

const hexDigits = "0123456789abcdef"

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, `\ufffd`...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}

// appendFloat formats f the way encoding/json does, which for finite values
// matches the shortest round-trip form used by JavaScript.
func appendFloat(dst []byte, f float64, bits int) []byte {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	dst = strconv.AppendFloat(dst, f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(dst)
		if n >= 4 && dst[n-4] == 'e' && dst[n-3] == '-' && dst[n-2] == '0' {
			dst[n-2] = dst[n-1]
			dst = dst[:n-1]
		}
	}
	return dst
}
