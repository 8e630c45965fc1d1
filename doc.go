// Package reqlog adds request observability to net/http services on top of
// rs/zerolog: correlation ids, redacted request/response records and
// exception reporting.
//
// Key features
//   - Correlation: the Correlation middleware binds a request scope holding
//     the correlation id (and later the user id) to the request context;
//     CorrelationID, UserID and SetUserID read and write it from anywhere the
//     context reaches
//   - Sanitizing: MaskSensitiveData, SafeStringify and SanitizePayload mask
//     sensitive keys, survive cyclic values and bound payload size
//   - Logging: Logger writes leveled lines and Records for served requests
//     (LogAPIRequestResponse) and outgoing calls (LogHTTPResponse), with
//     child loggers, file rotation via lumberjack and path redaction
//   - Error history enrichment: errors are logged with the full error chain
//     (outermost -> root), the root cause and, for Station-Manager
//     DetailedError, the operations chain
//   - HTTP integration: Router (httprouter) wraps handler results in a
//     Response envelope, maps errors through ExceptionHandler and honours
//     per-route ExcludeResponseLogger flags; Transport logs outgoing calls
//
// Typical usage
//
//	logger, err := reqlog.New(reqlog.Options{ServiceName: "orders"})
//	if err != nil { panic(err) }
//	defer logger.Close()
//
//	router := reqlog.NewRouter(logger)
//	router.POST("/orders", createOrder)
//	client := reqlog.NewHTTPClient(logger, nil)
//	_ = http.ListenAndServe(":8080", router)
package reqlog
