package reqlog

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maskedJSON masks data with the default settings and serializes the result.
func maskedJSON(t *testing.T, data any, fields []string, mask string) string {
	t.Helper()
	out := MaskSensitiveData(data, fields, mask)
	v, ok := out.(*Value)
	require.True(t, ok, "expected *Value, got %T", out)
	return v.String()
}

func TestMaskSensitiveData_Password(t *testing.T) {
	data := map[string]any{"username": "john", "password": "secret123"}
	assert.Equal(t, `{"password":"[REDACTED]","username":"john"}`, maskedJSON(t, data, nil, ""))
	// input is left untouched
	assert.Equal(t, "secret123", data["password"])
}

func TestMaskSensitiveData_Nested(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"name":  "john",
			"token": "abc",
			"cards": []any{map[string]any{"number": "4111", "api_key": "k"}},
		},
	}
	assert.Equal(t,
		`{"user":{"cards":[{"api_key":"[REDACTED]","number":"4111"}],"name":"john","token":"[REDACTED]"}}`,
		maskedJSON(t, data, nil, ""))
}

func TestMaskSensitiveData_CaseInsensitiveSubstring(t *testing.T) {
	data := map[string]any{
		"userPassword":  "a",
		"API_KEY":       "b",
		"mySecretValue": "c",
		"Authorization": "Bearer x",
		"name":          "d",
	}
	got := MaskSensitiveData(data, nil, "").(*Value)
	assert.Equal(t, DefaultMaskPattern, got.Get("userPassword").Str())
	assert.Equal(t, DefaultMaskPattern, got.Get("API_KEY").Str())
	assert.Equal(t, DefaultMaskPattern, got.Get("mySecretValue").Str())
	assert.Equal(t, DefaultMaskPattern, got.Get("Authorization").Str())
	assert.Equal(t, "d", got.Get("name").Str())
}

func TestMaskSensitiveData_CustomFieldsAndMask(t *testing.T) {
	data := map[string]any{"pin": "1234", "password": "x"}
	assert.Equal(t, `{"password":"x","pin":"***"}`, maskedJSON(t, data, []string{"PIN"}, "***"))
}

func TestMaskSensitiveData_MaskedObjectValue(t *testing.T) {
	data := map[string]any{"credentials": map[string]any{"user": "u", "pass": "p"}}
	assert.Equal(t, `{"credentials":"[REDACTED]"}`, maskedJSON(t, data, nil, ""))
}

func TestMaskSensitiveData_NonContainers(t *testing.T) {
	assert.Nil(t, MaskSensitiveData(nil, nil, ""))
	assert.Equal(t, "password", MaskSensitiveData("password", nil, ""))
	assert.Equal(t, 42, MaskSensitiveData(42, nil, ""))
	assert.Equal(t, true, MaskSensitiveData(true, nil, ""))
}

func TestMaskSensitiveData_Structs(t *testing.T) {
	type Base struct {
		ID int `json:"id"`
	}
	type login struct {
		Base
		User     string `json:"user"`
		Password string `json:"password"`
		Note     string `json:"note,omitempty"`
		Ignored  string `json:"-"`
		internal string
	}
	in := &login{Base: Base{ID: 9}, User: "u", Password: "p", Ignored: "x", internal: "y"}
	assert.Equal(t, `{"id":9,"user":"u","password":"[REDACTED]"}`, maskedJSON(t, in, nil, ""))
}

func TestMaskSensitiveData_Circular(t *testing.T) {
	obj := map[string]any{"name": "circular"}
	obj["self"] = obj
	assert.Equal(t, `{"name":"circular","self":"[Circular]"}`, maskedJSON(t, obj, nil, ""))
}

func TestMaskSensitiveData_SharedReferenceIsCircular(t *testing.T) {
	shared := map[string]any{"v": 1}
	data := map[string]any{"a": shared, "b": shared}
	assert.Equal(t, `{"a":{"v":1},"b":"[Circular]"}`, maskedJSON(t, data, nil, ""))
}

func TestMaskSensitiveData_ValueTree(t *testing.T) {
	in, err := parseJSON(`{"token":"t","list":[{"secret":1},2]}`)
	require.NoError(t, err)

	out := MaskSensitiveData(in, nil, "").(*Value)
	assert.Equal(t, `{"token":"[REDACTED]","list":[{"secret":"[REDACTED]"},2]}`, out.String())
	assert.Equal(t, `{"token":"t","list":[{"secret":1},2]}`, in.String())
}

func TestMaskSensitiveData_Unserializable(t *testing.T) {
	data := map[string]any{"fn": func() {}}
	out := MaskSensitiveData(data, nil, "")
	assert.Equal(t, unserializableMarker, out.(*Value).Str())
}

func TestSafeStringify(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"null value", NullValue(), ""},
		{"object", map[string]any{"name": "test", "value": 123}, `{"name":"test","value":123}`},
		{"number", 123, "123"},
		{"bool", true, "true"},
		{"string", "hi", `"hi"`},
		{"empty object", map[string]any{}, "{}"},
		{"empty array", []any{}, "[]"},
		{"float", 1.5, "1.5"},
		{"channel", make(chan int), unserializableMarker},
		{"html is not escaped", map[string]string{"h": "<a&b>"}, `{"h":"<a&b>"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SafeStringify(tc.value, 0))
		})
	}
}

func TestSafeStringify_Circular(t *testing.T) {
	type node struct {
		Name string `json:"name"`
		Self *node  `json:"self"`
	}
	n := &node{Name: "circular"}
	n.Self = n
	assert.Equal(t, `{"name":"circular","self":"[Circular]"}`, SafeStringify(n, 0))
}

func TestSafeStringify_Truncates(t *testing.T) {
	value := map[string]any{"content": strings.Repeat("a", 100)}
	got := SafeStringify(value, 50)

	assert.True(t, strings.HasSuffix(got, truncatedSuffix))
	assert.LessOrEqual(t, len(got), 50+len(truncatedSuffix))
	assert.Equal(t, `{"content":"`, got[:12])
}

func TestSafeStringify_TruncatesRunes(t *testing.T) {
	got := SafeStringify(strings.Repeat("é", 20), 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, `"éééé`+truncatedSuffix, got)
}

func TestSanitizePayload_Primitives(t *testing.T) {
	opts := SanitizerOptions{}
	assert.Equal(t, "", SanitizePayload(nil, opts))
	assert.Equal(t, "123", SanitizePayload(123, opts))
	assert.Equal(t, "true", SanitizePayload(true, opts))
	assert.Equal(t, "1.25", SanitizePayload(1.25, opts))
	assert.Equal(t, "{}", SanitizePayload(map[string]any{}, opts))
	assert.Equal(t, "[]", SanitizePayload([]any{}, opts))

	var nilMap map[string]any
	assert.Equal(t, "", SanitizePayload(nilMap, opts))
	var nilPtr *struct{ A int }
	assert.Equal(t, "", SanitizePayload(nilPtr, opts))
}

func TestSanitizePayload_Object(t *testing.T) {
	got := SanitizePayload(map[string]any{"user": "john", "password": "pw"}, SanitizerOptions{})
	assert.Equal(t, `{"password":"[REDACTED]","user":"john"}`, got)
}

func TestSanitizePayload_JSONString(t *testing.T) {
	got := SanitizePayload(`{"user":"john","password":"pw","n":1.50}`, SanitizerOptions{})
	// member order and number literals are kept
	assert.Equal(t, `{"user":"john","password":"[REDACTED]","n":1.50}`, got)

	got = SanitizePayload([]byte(`[{"token":"t"}]`), SanitizerOptions{})
	assert.Equal(t, `[{"token":"[REDACTED]"}]`, got)

	got = SanitizePayload(json.RawMessage(`{"secret":"s"}`), SanitizerOptions{})
	assert.Equal(t, `{"secret":"[REDACTED]"}`, got)
}

func TestSanitizePayload_PlainText(t *testing.T) {
	form := "username=john&password=secret"
	assert.Equal(t, form, SanitizePayload(form, SanitizerOptions{}))

	long := strings.Repeat("b", 300)
	got := SanitizePayload(long, SanitizerOptions{MaxLength: 100})
	assert.Equal(t, strings.Repeat("b", 100)+truncatedSuffix, got)

	s := "not json"
	assert.Equal(t, s, SanitizePayload(&s, SanitizerOptions{}))
}

func TestSanitizePayload_LargeBodies(t *testing.T) {
	tests := []struct {
		name      string
		maxLength int
		size      int
		bound     int
	}{
		{"custom 500", 500, 1000, 515},
		{"custom 100", 100, 500, 115},
		{"default", 0, 5000, 2063},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := map[string]any{"content": strings.Repeat("a", tc.size)}
			got := SanitizePayload(payload, SanitizerOptions{MaxLength: tc.maxLength})
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tc.bound)
			assert.True(t, strings.HasSuffix(got, truncatedSuffix))
		})
	}
}

func TestSanitizePayload_MaskBeforeTruncate(t *testing.T) {
	payload := map[string]any{"a_password": strings.Repeat("p", 200), "z": strings.Repeat("z", 200)}
	got := SanitizePayload(payload, SanitizerOptions{MaxLength: 40})
	assert.True(t, strings.HasPrefix(got, `{"a_password":"[REDACTED]"`))
	assert.NotContains(t, got, "ppp")
}

func TestSanitizePayload_EmptyFieldListDisablesMasking(t *testing.T) {
	got := SanitizePayload(map[string]any{"password": "pw"}, SanitizerOptions{SensitiveFields: []string{}})
	assert.Equal(t, `{"password":"pw"}`, got)
}

func TestSanitizePayload_Unserializable(t *testing.T) {
	got := SanitizePayload([]any{make(chan int)}, SanitizerOptions{})
	assert.Equal(t, unserializableMarker, got)
}

type maskedMarshaler struct{}

func (maskedMarshaler) MarshalJSON() ([]byte, error) {
	return []byte(`{"token":"t","id":1}`), nil
}

func TestSanitizePayload_MarshalerOutputIsMasked(t *testing.T) {
	got := SanitizePayload(map[string]any{"m": maskedMarshaler{}}, SanitizerOptions{})
	assert.Equal(t, `{"m":{"token":"[REDACTED]","id":1}}`, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab"+truncatedSuffix, truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", -1))
}

func TestSanitizePayload_RoundTripWithoutSensitiveKeys(t *testing.T) {
	payloads := []any{
		map[string]any{
			"name":   "widget",
			"price":  12.5,
			"count":  float64(3),
			"tags":   []any{"a", "b", true, nil},
			"nested": map[string]any{"k": "v", "list": []any{map[string]any{"x": float64(1)}}},
		},
		[]any{"a", float64(2), map[string]any{}},
		map[string]any{},
	}
	for _, p := range payloads {
		out := SanitizePayload(p, SanitizerOptions{})
		require.False(t, strings.HasSuffix(out, truncatedSuffix))

		var back any
		require.NoError(t, json.Unmarshal([]byte(out), &back), out)
		assert.Equal(t, p, back)
	}
}

type maskAccount struct {
	User     string            `json:"user"`
	Password string            `json:"password"`
	Tokens   []string          `json:"tokens"`
	Meta     map[string]string `json:"meta"`
	Parent   *maskAccount      `json:"parent,omitempty"`
}

func maskInput() map[string]any {
	return map[string]any{
		"password": "top",
		"profile": map[string]any{
			"apiKey": "k",
			"cards":  []any{map[string]any{"number": "4111", "secret": "s"}, "plain"},
		},
		"accounts": []maskAccount{{
			User:     "u",
			Password: "p",
			Tokens:   []string{"t1", "t2"},
			Meta:     map[string]string{"access_token": "a", "note": "n"},
			Parent:   &maskAccount{User: "root", Password: "rp"},
		}},
	}
}

func TestMaskSensitiveData_DoesNotModifyInput(t *testing.T) {
	in := maskInput()
	want := maskInput()

	out := MaskSensitiveData(in, nil, "")
	masked, ok := out.(*Value)
	require.True(t, ok)

	assert.True(t, reflect.DeepEqual(want, in))
	assert.Equal(t, DefaultMaskPattern, masked.Get("password").Str())
	assert.Equal(t, DefaultMaskPattern, masked.Get("profile").Get("apiKey").Str())
	assert.Equal(t, DefaultMaskPattern, masked.Get("profile").Get("cards").Index(0).Get("secret").Str())
	account := masked.Get("accounts").Index(0)
	assert.Equal(t, DefaultMaskPattern, account.Get("password").Str())
	assert.Equal(t, DefaultMaskPattern, account.Get("meta").Get("access_token").Str())
	assert.Equal(t, DefaultMaskPattern, account.Get("parent").Get("password").Str())

	// masking a second time gives the same result
	again := MaskSensitiveData(in, nil, "").(*Value)
	assert.Equal(t, masked.String(), again.String())
}

func TestMaskSensitiveData_DoesNotModifyValueTree(t *testing.T) {
	doc := `{"token":"t","items":[{"password":"p","id":1}]}`
	in, err := parseJSON(doc)
	require.NoError(t, err)

	_ = MaskSensitiveData(in, nil, "")
	_ = SanitizePayload(in, SanitizerOptions{})
	assert.Equal(t, doc, in.String())
}

func TestSanitizePayload_Values(t *testing.T) {
	opts := SanitizerOptions{}
	assert.Equal(t, "x", SanitizePayload(*StringValue("x"), opts))
	assert.Equal(t, "x", SanitizePayload(StringValue("x"), opts))
	assert.Equal(t, "42", SanitizePayload(*IntValue(42), opts))
	assert.Equal(t, "true", SanitizePayload(*BoolValue(true), opts))
	assert.Equal(t, "", SanitizePayload(*NullValue(), opts))
	assert.Equal(t, `{"password":"[REDACTED]"}`, SanitizePayload(*StringValue(`{"password":"p"}`), opts))

	obj := ObjectValue(Member{Key: "token", Value: StringValue("t")}, Member{Key: "id", Value: IntValue(1)})
	assert.Equal(t, `{"token":"[REDACTED]","id":1}`, SanitizePayload(*obj, opts))
}
