package reqlog

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	stderrs "errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

var (
	errUnsupportedType = stderrs.New("unsupported type")
	errMaxDepth        = stderrs.New("maximum nesting depth exceeded")
)

// Maximum nesting depth before a value is considered unserializable.
const maxWalkDepth = 128

var (
	valueType      = reflect.TypeFor[Value]()
	valuePtrType   = reflect.TypeFor[*Value]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
)

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

// walker converts arbitrary Go values into a Value tree, replacing the values
// of sensitive keys on the way. Every reference is expanded at most once per
// walk; later visits of the same pointer, map or slice become "[Circular]".
// A walker must not be reused.
type walker struct {
	fields  []string
	mask    string
	visited map[visitKey]struct{}
}

func newWalker(fields []string, mask string) *walker {
	w := &walker{mask: mask, visited: make(map[visitKey]struct{})}
	for _, f := range fields {
		if f = strings.ToLower(f); f != "" {
			w.fields = append(w.fields, f)
		}
	}
	return w
}

func (w *walker) sensitive(key string) bool {
	if len(w.fields) == 0 {
		return false
	}
	k := strings.ToLower(key)
	for _, f := range w.fields {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

// enter records a reference and reports whether it was seen for the first time.
func (w *walker) enter(key visitKey) bool {
	if _, ok := w.visited[key]; ok {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

func (w *walker) walk(v any) (out *Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("walk: %v", r)
		}
	}()
	if v == nil {
		return NullValue(), nil
	}
	return w.value(reflect.ValueOf(v), 0)
}

func (w *walker) value(rv reflect.Value, depth int) (*Value, error) {
	if depth > maxWalkDepth {
		return nil, errMaxDepth
	}
	if !rv.IsValid() {
		return NullValue(), nil
	}
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return NullValue(), nil
		}
		rv = rv.Elem()
	}

	if rv.CanInterface() {
		switch rv.Type() {
		case valuePtrType:
			if rv.IsNil() {
				return NullValue(), nil
			}
			if !w.enter(visitKey{ptr: rv.Pointer(), typ: valuePtrType}) {
				return StringValue(circularMarker), nil
			}
			return w.tree(rv.Interface().(*Value), depth)
		case valueType:
			val := rv.Interface().(Value)
			return w.tree(&val, depth)
		case rawMessageType:
			if rv.Len() == 0 {
				return NullValue(), nil
			}
			return w.decoded(rv.Bytes(), depth)
		}
	}

	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return NullValue(), nil
	}
	if m, ok := asInterface[json.Marshaler](rv); ok {
		b, err := m.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return w.decoded(b, depth)
	}
	if m, ok := asInterface[encoding.TextMarshaler](rv); ok {
		b, err := m.MarshalText()
		if err != nil {
			return nil, err
		}
		return StringValue(string(b)), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return BoolValue(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return UintValue(rv.Uint()), nil
	case reflect.Float32:
		f := rv.Float()
		if v := NumberValue(f); v.IsNull() {
			return v, nil
		}
		return rawNumber(string(appendFloat(nil, f, 32))), nil
	case reflect.Float64:
		return NumberValue(rv.Float()), nil
	case reflect.String:
		return StringValue(rv.String()), nil
	case reflect.Pointer:
		if !w.enter(visitKey{ptr: rv.Pointer(), typ: rv.Type()}) {
			return StringValue(circularMarker), nil
		}
		return w.value(rv.Elem(), depth+1)
	case reflect.Map:
		if rv.IsNil() {
			return NullValue(), nil
		}
		if !w.enter(visitKey{ptr: rv.Pointer(), typ: rv.Type()}) {
			return StringValue(circularMarker), nil
		}
		return w.mapValue(rv, depth)
	case reflect.Slice:
		if rv.IsNil() {
			return NullValue(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return StringValue(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
		if rv.Len() > 0 && !w.enter(visitKey{ptr: rv.Pointer(), typ: rv.Type(), n: rv.Len()}) {
			return StringValue(circularMarker), nil
		}
		return w.list(rv, depth)
	case reflect.Array:
		return w.list(rv, depth)
	case reflect.Struct:
		out := &Value{kind: KindObject}
		if err := w.structFields(out, rv, depth, 0, map[string]int{}); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedType, rv.Type())
	}
}

// decoded parses the output of a json.Marshaler and masks the result.
func (w *walker) decoded(b []byte, depth int) (*Value, error) {
	v, err := parseJSON(string(b))
	if err != nil {
		return nil, err
	}
	return w.tree(v, depth)
}

// tree copies an existing Value tree, masking sensitive members.
func (w *walker) tree(v *Value, depth int) (*Value, error) {
	if depth > maxWalkDepth {
		return nil, errMaxDepth
	}
	switch v.Kind() {
	case KindArray:
		items := make([]*Value, len(v.items))
		for i, it := range v.items {
			c, err := w.child(it, depth)
			if err != nil {
				return nil, err
			}
			items[i] = c
		}
		return ArrayValue(items...), nil
	case KindObject:
		out := &Value{kind: KindObject, members: make([]Member, 0, len(v.members))}
		for _, m := range v.members {
			if w.sensitive(m.Key) {
				out.members = append(out.members, Member{Key: m.Key, Value: StringValue(w.mask)})
				continue
			}
			c, err := w.child(m.Value, depth)
			if err != nil {
				return nil, err
			}
			out.members = append(out.members, Member{Key: m.Key, Value: c})
		}
		return out, nil
	case KindNull:
		return NullValue(), nil
	default:
		return v.clone(), nil
	}
}

func (w *walker) child(v *Value, depth int) (*Value, error) {
	switch v.Kind() {
	case KindArray, KindObject:
		if !w.enter(visitKey{ptr: reflect.ValueOf(v).Pointer(), typ: valuePtrType}) {
			return StringValue(circularMarker), nil
		}
		return w.tree(v, depth+1)
	case KindNull:
		return NullValue(), nil
	default:
		return v.clone(), nil
	}
}

func (w *walker) list(rv reflect.Value, depth int) (*Value, error) {
	n := rv.Len()
	items := make([]*Value, n)
	for i := 0; i < n; i++ {
		c, err := w.value(rv.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		items[i] = c
	}
	return ArrayValue(items...), nil
}

func (w *walker) mapValue(rv reflect.Value, depth int) (*Value, error) {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: k, val: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })

	out := &Value{kind: KindObject, members: make([]Member, 0, len(entries))}
	for _, e := range entries {
		if w.sensitive(e.key) {
			out.members = append(out.members, Member{Key: e.key, Value: StringValue(w.mask)})
			continue
		}
		c, err := w.value(e.val, depth+1)
		if err != nil {
			return nil, err
		}
		out.members = append(out.members, Member{Key: e.key, Value: c})
	}
	return out, nil
}

// structFields appends the JSON-visible fields of rv to out. Fields of
// untagged embedded structs are promoted; a shallower field wins over a
// deeper one with the same name.
func (w *walker) structFields(out *Value, rv reflect.Value, depth, level int, levels map[string]int) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !hasMarshaler(ft) {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				if err := w.structFields(out, fv, depth, level+1, levels); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		if prev, ok := levels[name]; ok && prev <= level {
			continue
		}
		levels[name] = level

		if w.sensitive(name) {
			out.Set(name, StringValue(w.mask))
			continue
		}
		c, err := w.value(fv, depth+1)
		if err != nil {
			return err
		}
		out.Set(name, c)
	}
	return nil
}

func mapKey(k reflect.Value) (string, error) {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := asInterface[encoding.TextMarshaler](k); ok {
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("%w: map key %s", errUnsupportedType, k.Type())
}

// asInterface reports whether rv, or its address when addressable,
// implements T.
func asInterface[T any](rv reflect.Value) (T, bool) {
	var zero T
	if !rv.CanInterface() {
		return zero, false
	}
	if m, ok := rv.Interface().(T); ok {
		return m, true
	}
	if rv.Kind() != reflect.Pointer && rv.CanAddr() {
		if m, ok := rv.Addr().Interface().(T); ok {
			return m, true
		}
	}
	return zero, false
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

func hasMarshaler(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}

func hasOption(opts, name string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == name {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
