package reqlog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRecord() *Record {
	return &Record{
		correlationID:  "cid-123",
		method:         "POST",
		endpoint:       "/orders?x=1",
		userID:         "user-42",
		body:           `{"a":1}`,
		param:          `{"x":"1"}`,
		message:        "order rejected",
		response:       `{"status":"8999"}`,
		errorStack:     "stack",
		statusCode:     "8999",
		httpStatusCode: 422,
	}
}

func TestRecord_ReadableFormat(t *testing.T) {
	want := "ENDPOINT: POST| /orders?x=1\n" +
		"USERID: user-42\n" +
		"RID: cid-123\n" +
		"MSG: order rejected\n" +
		"BODY: {\"a\":1}\n" +
		"STATUS: 422,8999"
	assert.Equal(t, want, fullRecord().ReadableFormat())
}

func TestRecord_ReadableFormatDropsShortLines(t *testing.T) {
	rec := &Record{
		method:         "GET",
		endpoint:       "/a",
		userID:         "u1",   // "USERID: u1" is exactly 10 characters
		correlationID:  "cid1", // "RID: cid1" is 9
		message:        "boom!!",
		httpStatusCode: 500,
	}
	assert.Equal(t, "ENDPOINT: GET| /a\nMSG: boom!!\nSTATUS: 500,", rec.ReadableFormat())

	assert.Equal(t, "ENDPOINT: | ", (&Record{}).ReadableFormat())
	assert.Equal(t, "", (*Record)(nil).ReadableFormat())
}

func TestRecord_ReadableFormatStatusWithoutHTTPCode(t *testing.T) {
	rec := &Record{statusCode: "9999", message: "something failed"}
	assert.Equal(t, "ENDPOINT: | \nMSG: something failed\nSTATUS: ,9999", rec.ReadableFormat())
}

func TestRecord_NilSafeAccessors(t *testing.T) {
	var rec *Record
	assert.Empty(t, rec.CorrelationID())
	assert.Empty(t, rec.Method())
	assert.Empty(t, rec.Endpoint())
	assert.Empty(t, rec.UserID())
	assert.Empty(t, rec.Body())
	assert.Empty(t, rec.Param())
	assert.Empty(t, rec.Message())
	assert.Empty(t, rec.Response())
	assert.Empty(t, rec.ErrorStack())
	assert.Empty(t, rec.StatusCode())
	assert.Zero(t, rec.HTTPStatusCode())
	assert.True(t, rec.IsEmpty())
	rec.OverrideMessage("no panic")
}

func TestRecord_OverrideMessage(t *testing.T) {
	rec := fullRecord()
	rec.OverrideMessage("replaced")
	assert.Equal(t, "replaced", rec.Message())
	assert.False(t, rec.IsEmpty())
	assert.True(t, (&Record{}).IsEmpty())
}

func TestRecord_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(&Record{correlationID: "c", httpStatusCode: 200, statusCode: "0000"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"correlationId":"c","statusCode":"0000","httpStatusCode":200}`, string(b))

	b, err = json.Marshal(fullRecord())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Len(t, m, 11)
	assert.Equal(t, "stack", m["errorStack"])
}

func TestRecord_MarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	zl.Info().EmbedObject(fullRecord()).Send()

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "cid-123", m[fieldCorrelationID])
	assert.Equal(t, "order rejected", m[fieldMessage])
	assert.Equal(t, float64(422), m[fieldHTTPStatusCode])
}

func TestRecord_SetField(t *testing.T) {
	rec := &Record{}
	assert.True(t, rec.setField(fieldUserID, "u"))
	assert.True(t, rec.setField(fieldResponse, map[string]int{"a": 1}))
	assert.True(t, rec.setField(fieldHTTPStatusCode, "404"))
	assert.False(t, rec.setField("unknown", "x"))

	assert.Equal(t, "u", rec.UserID())
	assert.Equal(t, `{"a":1}`, rec.Response())
	assert.Equal(t, 404, rec.HTTPStatusCode())

	rec.setField(fieldHTTPStatusCode, float64(201))
	assert.Equal(t, 201, rec.HTTPStatusCode())
}
