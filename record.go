package reqlog

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Lines of ReadableFormat no longer than this are dropped.
const minReadableLineLen = 10

// Record is the structured result of a logging call. Body, Param and
// Response always hold sanitized, serialized text.
//
// A Record is read-only once returned, apart from OverrideMessage.
type Record struct {
	correlationID  string
	method         string
	endpoint       string
	userID         string
	body           string
	param          string
	message        string
	response       string
	errorStack     string
	statusCode     string
	httpStatusCode int
}

func (r *Record) CorrelationID() string {
	if r == nil {
		return ""
	}
	return r.correlationID
}

func (r *Record) Method() string {
	if r == nil {
		return ""
	}
	return r.method
}

func (r *Record) Endpoint() string {
	if r == nil {
		return ""
	}
	return r.endpoint
}

func (r *Record) UserID() string {
	if r == nil {
		return ""
	}
	return r.userID
}

func (r *Record) Body() string {
	if r == nil {
		return ""
	}
	return r.body
}

func (r *Record) Param() string {
	if r == nil {
		return ""
	}
	return r.param
}

func (r *Record) Message() string {
	if r == nil {
		return ""
	}
	return r.message
}

func (r *Record) Response() string {
	if r == nil {
		return ""
	}
	return r.response
}

func (r *Record) ErrorStack() string {
	if r == nil {
		return ""
	}
	return r.errorStack
}

func (r *Record) StatusCode() string {
	if r == nil {
		return ""
	}
	return r.statusCode
}

func (r *Record) HTTPStatusCode() int {
	if r == nil {
		return 0
	}
	return r.httpStatusCode
}

// OverrideMessage replaces the record's message. The exception handler uses
// it to carry the error's message on the request record.
func (r *Record) OverrideMessage(msg string) {
	if r != nil {
		r.message = msg
	}
}

// IsEmpty reports whether no field is set, as for skipped health checks.
func (r *Record) IsEmpty() bool {
	return r == nil || *r == Record{}
}

// ReadableFormat renders the record as short labeled lines for alerting.
// Lines of ten characters or fewer are left out.
func (r *Record) ReadableFormat() string {
	if r == nil {
		return ""
	}
	httpStatus := ""
	if r.httpStatusCode != 0 {
		httpStatus = strconv.Itoa(r.httpStatusCode)
	}
	lines := []string{
		"ENDPOINT: " + r.method + "| " + r.endpoint,
		"USERID: " + r.userID,
		"RID: " + r.correlationID,
		"MSG: " + r.message,
		"BODY: " + r.body,
		"STATUS: " + httpStatus + "," + r.statusCode,
	}
	kept := lines[:0]
	for _, l := range lines {
		if utf8.RuneCountInString(l) > minReadableLineLen {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// MarshalZerologObject writes the set fields of the record.
func (r *Record) MarshalZerologObject(e *zerolog.Event) {
	if r == nil {
		return
	}
	for _, f := range r.fields() {
		e.Str(f.key, f.val)
	}
	if r.httpStatusCode != 0 {
		e.Int(fieldHTTPStatusCode, r.httpStatusCode)
	}
}

type recordJSON struct {
	CorrelationID  string `json:"correlationId,omitempty"`
	Method         string `json:"method,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Body           string `json:"body,omitempty"`
	Param          string `json:"param,omitempty"`
	Message        string `json:"message,omitempty"`
	Response       string `json:"response,omitempty"`
	ErrorStack     string `json:"errorStack,omitempty"`
	StatusCode     string `json:"statusCode,omitempty"`
	HTTPStatusCode int    `json:"httpStatusCode,omitempty"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return json.Marshal(recordJSON{
		CorrelationID:  r.correlationID,
		Method:         r.method,
		Endpoint:       r.endpoint,
		UserID:         r.userID,
		Body:           r.body,
		Param:          r.param,
		Message:        r.message,
		Response:       r.response,
		ErrorStack:     r.errorStack,
		StatusCode:     r.statusCode,
		HTTPStatusCode: r.httpStatusCode,
	})
}

type recordField struct {
	key, val string
}

// fields lists the non-empty string fields in their canonical order.
func (r *Record) fields() []recordField {
	all := [...]recordField{
		{fieldCorrelationID, r.correlationID},
		{fieldMethod, r.method},
		{fieldEndpoint, r.endpoint},
		{fieldUserID, r.userID},
		{fieldBody, r.body},
		{fieldParam, r.param},
		{fieldMessage, r.message},
		{fieldResponse, r.response},
		{fieldErrorStack, r.errorStack},
		{fieldStatusCode, r.statusCode},
	}
	out := make([]recordField, 0, len(all))
	for _, f := range all {
		if f.val != "" {
			out = append(out, f)
		}
	}
	return out
}

// setField assigns a record field by its JSON name. It reports false for
// names that are not record fields.
func (r *Record) setField(key string, v any) bool {
	var dst *string
	switch key {
	case fieldCorrelationID:
		dst = &r.correlationID
	case fieldMethod:
		dst = &r.method
	case fieldEndpoint:
		dst = &r.endpoint
	case fieldUserID:
		dst = &r.userID
	case fieldBody:
		dst = &r.body
	case fieldParam:
		dst = &r.param
	case fieldMessage:
		dst = &r.message
	case fieldResponse:
		dst = &r.response
	case fieldErrorStack:
		dst = &r.errorStack
	case fieldStatusCode:
		dst = &r.statusCode
	case fieldHTTPStatusCode:
		switch n := v.(type) {
		case int:
			r.httpStatusCode = n
		case int64:
			r.httpStatusCode = int(n)
		case float64:
			r.httpStatusCode = int(n)
		case string:
			r.httpStatusCode, _ = strconv.Atoi(n)
		}
		return true
	default:
		return false
	}
	if s, ok := v.(string); ok {
		*dst = s
	} else {
		*dst = SafeStringify(v, 0)
	}
	return true
}
