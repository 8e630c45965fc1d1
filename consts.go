package reqlog

const (
	emptyString = ""

	defaultServiceName     = "app"
	defaultLogLevel        = "info"
	defaultEnvironment     = "production"
	localEnvironment       = "local"
	defaultShutdownTimeout = 5000 // milliseconds

	healthCheckPath = "/health-check"
	// Requests whose URL contains this are never logged.
	healthCheckMarker = "health-check"
)

// Message tags of emitted records.
const (
	tagAPILog     = "api-log"
	tagHTTPClient = "http-client"
	tagError      = "error"
	tagFatal      = "fatal"
)

// Field names of emitted log lines.
const (
	fieldService        = "service"
	fieldEnvironment    = "environment"
	fieldScope          = "scope"
	fieldTag            = "tag"
	fieldCorrelationID  = "correlationId"
	fieldMethod         = "method"
	fieldEndpoint       = "endpoint"
	fieldUserID         = "userId"
	fieldBody           = "body"
	fieldParam          = "param"
	fieldMessage        = "message"
	fieldResponse       = "response"
	fieldErrorStack     = "errorStack"
	fieldStatusCode     = "statusCode"
	fieldHTTPStatusCode = "httpStatusCode"
)

const (
	errMsgNilOptions      = "Logger options are nil."
	errMsgOptionsInvalid  = "Logger options are invalid."
	errMsgInvalidLevel    = "Log level is invalid."
	errMsgLogDir          = "Failed to create the log directory."
	errMsgExecName        = "Failed to resolve the executable name."
	errMsgCloseFile       = "Failed to close the log file."
	errMsgLoadConfigFile  = "Failed to load the configuration file."
	errMsgLoadConfigEnv   = "Failed to load the configuration environment."
	errMsgUnmarshalConfig = "Failed to decode the configuration."
)
