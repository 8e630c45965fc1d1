package reqlog

import (
	"encoding/json"
	"io"
	"net/http"
)

// Domain status codes carried in every response envelope.
const (
	StatusSuccess           = "0000"
	StatusBusinessException = "8999"
	StatusUnknownException  = "9999"

	successMessage = "Success"
)

// Response is the envelope written for every JSON response.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(data any) Response {
	return Response{Status: StatusSuccess, Message: successMessage, Data: data}
}

// BusinessError reports a violated business rule. It is answered with
// 422 Unprocessable Entity and Code (StatusBusinessException when empty).
type BusinessError struct {
	Code    string
	Message string
}

func NewBusinessError(message, code string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}

func (e *BusinessError) Error() string { return e.Message }

// HTTPError is answered with Status. For 400 responses the first of Details,
// when present, is used as the response message.
type HTTPError struct {
	Status  int
	Message string
	Details []string
	Err     error
}

func NewHTTPError(status int, message string, details ...string) *HTTPError {
	return &HTTPError{Status: status, Message: message, Details: details}
}

func (e *HTTPError) Error() string {
	if e.Message != emptyString {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func (e *HTTPError) StatusCode() int { return e.Status }

// Stream is a handler result written as-is instead of being wrapped in a
// Response. Reader is closed afterwards when it is an io.Closer.
type Stream struct {
	ContentType string
	Status      int
	Reader      io.Reader
}

func (s *Stream) writeTo(w http.ResponseWriter) error {
	if c, ok := s.Reader.(io.Closer); ok {
		defer c.Close()
	}
	if s.ContentType != emptyString {
		w.Header().Set("Content-Type", s.ContentType)
	}
	status := s.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if s.Reader == nil {
		return nil
	}
	_, err := io.Copy(w, s.Reader)
	return err
}

func writeJSON(w http.ResponseWriter, data any, code int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
