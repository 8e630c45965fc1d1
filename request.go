package reqlog

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/url"
	"unicode/utf8"
)

const (
	maxCapturedBodyBytes = 64 * 1024
	binaryBodyOmitted    = "<binary body omitted>"
)

// RequestInfo is what gets logged about a served request. Body and Query
// are raw; the Logger sanitizes them.
type RequestInfo struct {
	Method string
	// URL is the request URI as received, path and query.
	URL   string
	Body  any
	Query any
}

// CaptureRequest reads what LogAPIRequestResponse needs from r. Up to 64 KiB
// of the body are captured; the body stays fully readable by the handler.
// Form bodies are decoded so that their fields can be masked.
func CaptureRequest(r *http.Request) *RequestInfo {
	if r == nil {
		return &RequestInfo{}
	}
	info := &RequestInfo{Method: r.Method}
	if r.URL != nil {
		info.URL = r.URL.RequestURI()
		info.Query = valuesObject(r.URL.Query())
	}

	body, complete := peekRequestBody(r)
	info.Body = decodeBody(r.Header.Get("Content-Type"), body, complete)
	return info
}

// peekRequestBody returns up to maxCapturedBodyBytes of the body and restores
// it. complete is false when the body was longer than what was returned.
func peekRequestBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, true
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxCapturedBodyBytes+1))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil {
		return nil, false
	}
	return capped(buf)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// decodeBody turns a captured body into something the sanitizer can mask.
func decodeBody(contentType string, body []byte, complete bool) any {
	if len(body) == 0 {
		return nil
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/x-www-form-urlencoded" && complete {
		if values, err := url.ParseQuery(string(body)); err == nil {
			return valuesObject(values)
		}
	}
	if !complete {
		// the cut may have split the last rune
		for i := 0; i < utf8.UTFMax-1 && len(body) > 0 && !utf8.Valid(body); i++ {
			body = body[:len(body)-1]
		}
	}
	if !utf8.Valid(body) {
		return binaryBodyOmitted
	}
	return string(body)
}

// valuesObject flattens single-valued keys to strings.
func valuesObject(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}
