package reqlog

import (
	"github.com/valyala/fastjson"
)

var parserPool fastjson.ParserPool

// parseJSON decodes any JSON document into a Value. Number literals are kept
// verbatim and object members keep their source order.
func parseJSON(data string) (*Value, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	// Values returned by the parser are only valid until it goes back to
	// the pool, so copy everything out first.
	return fromFastJSON(v), nil
}

func fromFastJSON(v *fastjson.Value) *Value {
	switch v.Type() {
	case fastjson.TypeTrue:
		return BoolValue(true)
	case fastjson.TypeFalse:
		return BoolValue(false)
	case fastjson.TypeNumber:
		return rawNumber(v.String())
	case fastjson.TypeString:
		sb, _ := v.StringBytes()
		return StringValue(string(sb))
	case fastjson.TypeArray:
		arr, _ := v.Array()
		items := make([]*Value, len(arr))
		for i, it := range arr {
			items[i] = fromFastJSON(it)
		}
		return ArrayValue(items...)
	case fastjson.TypeObject:
		o, _ := v.Object()
		out := &Value{kind: KindObject, members: make([]Member, 0, o.Len())}
		o.Visit(func(key []byte, val *fastjson.Value) {
			out.Set(string(key), fromFastJSON(val))
		})
		return out
	default:
		return NullValue()
	}
}
