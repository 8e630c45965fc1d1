package reqlog

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
)

// Notifier receives the readable form of every failed request.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// ExceptionHandler turns handler errors into logged, enveloped responses.
type ExceptionHandler struct {
	logger   RequestLogger
	notifier Notifier
}

// NewExceptionHandler returns a handler logging through logger. notifier may be nil.
func NewExceptionHandler(logger RequestLogger, notifier Notifier) *ExceptionHandler {
	return &ExceptionHandler{logger: logger, notifier: notifier}
}

// Resolve maps err to the HTTP status and envelope sent to the client.
func Resolve(err error) (int, Response) {
	var (
		be *BusinessError
		he *HTTPError
		pe *panicError
	)
	switch {
	case stderrs.As(err, &be):
		code := be.Code
		if code == emptyString {
			code = StatusBusinessException
		}
		return http.StatusUnprocessableEntity, Response{Status: code, Message: be.Message}
	case stderrs.As(err, &he):
		msg := he.Error()
		if he.Status == http.StatusBadRequest && len(he.Details) > 0 {
			msg = he.Details[0]
		}
		status := he.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, Response{Status: StatusUnknownException, Message: msg}
	case stderrs.As(err, &pe):
		return http.StatusInternalServerError, Response{
			Status:  StatusUnknownException,
			Message: http.StatusText(http.StatusInternalServerError),
		}
	case err == nil:
		return http.StatusInternalServerError, Response{Status: StatusUnknownException}
	default:
		return http.StatusInternalServerError, Response{Status: StatusUnknownException, Message: err.Error()}
	}
}

// Handle logs the failed request and err, carries the error message over to
// the request record, notifies and writes the error envelope. info may be
// nil, in which case it is captured from r.
func (h *ExceptionHandler) Handle(w http.ResponseWriter, r *http.Request, info *RequestInfo, err error) {
	ctx := r.Context()
	if info == nil {
		info = CaptureRequest(r)
	}
	httpStatus, body := Resolve(err)

	rec := h.logger.LogAPIRequestResponse(ctx, info, body.Status, httpStatus, nil)
	if errRec := h.logger.Error(ctx, err); errRec.Message() != emptyString {
		rec.OverrideMessage(errRec.Message())
	}
	h.notify(ctx, rec)

	if werr := writeJSON(w, body, httpStatus); werr != nil {
		h.logger.Warn(ctx, "failed to write error response", Fields{"cause": werr.Error()})
	}
}

func (h *ExceptionHandler) notify(ctx context.Context, rec *Record) {
	if h.notifier == nil {
		return
	}
	defer func() {
		if rv := recover(); rv != nil {
			h.logger.Warn(ctx, "exception notifier panicked", Fields{"panic": fmt.Sprint(rv)})
		}
	}()
	h.notifier.Notify(ctx, rec.ReadableFormat())
}

// panicError is a recovered handler panic. It carries the stack of the
// panicking goroutine.
type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func (e *panicError) Stack() string { return e.stack }

func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
