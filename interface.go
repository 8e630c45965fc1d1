package reqlog

import "context"

// RequestLogger is the part of Logger used by the HTTP integrations
// (Router, ExceptionHandler and Transport).
type RequestLogger interface {
	LogAPIRequestResponse(ctx context.Context, req *RequestInfo, statusCode string, httpStatusCode int, data any) *Record
	LogHTTPResponse(ctx context.Context, res *OutboundResponse) *Record
	Error(ctx context.Context, messageOrError any, meta ...Fields) *Record
	Warn(ctx context.Context, msg string, meta ...Fields)
}

var _ RequestLogger = (*Logger)(nil)
