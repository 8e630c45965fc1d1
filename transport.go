package reqlog

import (
	"io"
	"mime"
	"net/http"
	"sync"
)

// OutboundRequest describes an outgoing call for LogHTTPResponse.
type OutboundRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   any
	Params any
}

// OutboundResponse is the outcome of an outgoing call. Err is set when no
// response was received.
type OutboundResponse struct {
	Request *OutboundRequest
	Status  int
	Data    any
	Err     error
}

// Transport is an http.RoundTripper that stamps the correlation id of the
// request context on outgoing requests and logs every call.
type Transport struct {
	Base   http.RoundTripper
	Logger RequestLogger
}

// NewHTTPClient returns a client whose calls go through a Transport over
// base (http.DefaultTransport when nil).
func NewHTTPClient(logger RequestLogger, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &Transport{Base: base, Logger: logger}}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	if cid := CorrelationID(ctx); cid != emptyString && out.Header.Get(HeaderCorrelationID) == emptyString {
		out.Header.Set(HeaderCorrelationID, cid)
	}

	info := &OutboundRequest{
		Method: out.Method,
		URL:    out.URL.String(),
		Header: out.Header,
		Params: valuesObject(out.URL.Query()),
	}
	info.Body = t.requestBody(out)

	res, err := t.base().RoundTrip(out)
	if t.Logger == nil {
		return res, err
	}
	if err != nil {
		t.Logger.LogHTTPResponse(ctx, &OutboundResponse{Request: info, Err: err})
		return res, err
	}

	if !teeable(res) {
		t.Logger.LogHTTPResponse(ctx, &OutboundResponse{Request: info, Status: res.StatusCode})
		return res, nil
	}
	res.Body = &loggedBody{
		rc: res.Body,
		done: func(body []byte, complete bool) {
			t.Logger.LogHTTPResponse(ctx, &OutboundResponse{
				Request: info,
				Status:  res.StatusCode,
				Data:    decodeBody(res.Header.Get("Content-Type"), body, complete),
			})
		},
	}
	return res, nil
}

// requestBody captures the outgoing body without consuming it.
func (t *Transport) requestBody(req *http.Request) any {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil
		}
		defer rc.Close()
		buf, _ := io.ReadAll(io.LimitReader(rc, maxCapturedBodyBytes+1))
		body, complete := capped(buf)
		return decodeBody(req.Header.Get("Content-Type"), body, complete)
	}
	body, complete := peekRequestBody(req)
	return decodeBody(req.Header.Get("Content-Type"), body, complete)
}

// teeable reports whether the response body is captured while the caller
// reads it. Event streams and protocol upgrades are logged without a body.
func teeable(res *http.Response) bool {
	if res.Body == nil || res.Body == http.NoBody || res.StatusCode == http.StatusSwitchingProtocols {
		return false
	}
	mt, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	return mt != "text/event-stream"
}

// loggedBody keeps the first maxCapturedBodyBytes the caller reads from a
// response body and calls done once, at EOF, on a read error or on Close.
// A body that is never read nor closed is never logged.
type loggedBody struct {
	rc   io.ReadCloser
	done func(body []byte, complete bool)

	mu   sync.Mutex
	buf  []byte
	over bool
	eof  bool
	once sync.Once
}

func (b *loggedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.mu.Lock()
	if n > 0 && !b.over {
		if room := maxCapturedBodyBytes - len(b.buf); n > room {
			b.buf = append(b.buf, p[:room]...)
			b.over = true
		} else {
			b.buf = append(b.buf, p[:n]...)
		}
	}
	if err == io.EOF {
		b.eof = true
	}
	b.mu.Unlock()
	if err != nil {
		b.finish()
	}
	return n, err
}

func (b *loggedBody) Close() error {
	err := b.rc.Close()
	b.finish()
	return err
}

func (b *loggedBody) finish() {
	b.once.Do(func() {
		b.mu.Lock()
		body, complete := b.buf, b.eof && !b.over
		b.mu.Unlock()
		b.done(body, complete)
	})
}

func capped(buf []byte) ([]byte, bool) {
	if len(buf) > maxCapturedBodyBytes {
		return buf[:maxCapturedBodyBytes], false
	}
	return buf, true
}
