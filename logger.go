package reqlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logging facade. It reads correlation data from
// the context passed to each call, sanitizes payloads and writes one record
// per call. A Logger and its children are safe for concurrent use.
type Logger struct {
	root   *root
	logger atomic.Pointer[zerolog.Logger]
	scope  string
	// fields holds base metadata, scope and child extras, merged in that order.
	fields Fields
}

// root holds what a Logger shares with all of its children.
type root struct {
	opts       Options
	sanitizer  SanitizerOptions
	level      atomic.Int32
	fileWriter *lumberjack.Logger

	mu        sync.RWMutex
	closed    atomic.Bool
	wg        sync.WaitGroup
	activeOps atomic.Int64
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	const op errors.Op = "reqlog.New"

	opts = opts.withDefaults()
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}

	level, err := parseLevel(opts.LogLevel)
	if err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgInvalidLevel)
	}

	w, fileWriter, err := initializeWriters(opts)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(w).With().Timestamp().Logger()

	base := Fields{
		fieldService:     opts.ServiceName,
		fieldEnvironment: opts.Environment,
	}
	for k, v := range opts.BaseMetadata {
		base[k] = v
	}

	r := &root{
		opts:       opts,
		sanitizer:  opts.sanitizer(),
		fileWriter: fileWriter,
	}
	r.level.Store(int32(level))

	l := &Logger{root: r, fields: base}
	l.logger.Store(&logger)
	return l, nil
}

// Child returns a logger that attaches scope and extra to every line. A
// "scope" key in extra wins over scope. An empty scope keeps the parent's.
// The child shares sanitizer settings, level and outputs with l; l is not
// changed.
func (l *Logger) Child(scope string, extra Fields) *Logger {
	fields := make(Fields, len(l.fields)+len(extra)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	if scope != emptyString {
		fields[fieldScope] = scope
	}
	for k, v := range extra {
		fields[k] = v
	}

	child := &Logger{root: l.root, scope: scope, fields: fields}
	if child.scope == emptyString {
		child.scope = l.scope
	}
	child.logger.Store(l.logger.Load())
	return child
}

// Scope returns the label attached by Child.
func (l *Logger) Scope() string { return l.scope }

// Hook adds zerolog hooks to this logger and to children created afterwards.
func (l *Logger) Hook(hooks ...zerolog.Hook) {
	// Atomic compare-and-swap loop for thread-safe hook installation
	for {
		oldLogger := l.logger.Load()
		if oldLogger == nil {
			return
		}

		newLogger := oldLogger.Hook(hooks...)

		if l.logger.CompareAndSwap(oldLogger, &newLogger) {
			return
		}
	}
}

// SetLevel changes the minimum level of l and every logger sharing its outputs.
func (l *Logger) SetLevel(level string) error {
	const op errors.Op = "reqlog.Logger.SetLevel"
	lvl, err := parseLevel(level)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgInvalidLevel)
	}
	l.root.level.Store(int32(lvl))
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() zerolog.Level {
	return zerolog.Level(l.root.level.Load())
}

// SanitizerOptions returns the settings used for payloads.
func (l *Logger) SanitizerOptions() SanitizerOptions { return l.root.sanitizer }

// Close stops accepting new lines, waits for in-flight events up to the
// shutdown timeout and closes the log file. Calling Close more than once is
// safe.
func (l *Logger) Close() error {
	const op errors.Op = "reqlog.Logger.Close"
	r := l.root

	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return nil
	}
	r.closed.Store(true)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timeout := r.opts.shutdownTimeout()
	select {
	case <-done:
	case <-time.After(timeout):
		if logger := l.logger.Load(); logger != nil {
			logger.Warn().
				Int64("active_ops", r.activeOps.Load()).
				Dur("timeout", timeout).
				Msg("logger closed with events still in flight")
		}
	}

	if r.fileWriter != nil {
		if err := r.fileWriter.Close(); err != nil {
			return errors.New(op).Err(err).Msg(errMsgCloseFile)
		}
	}
	return nil
}

// acquire takes an in-flight slot. It fails once the logger is closed.
func (r *root) acquire() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return false
	}
	r.activeOps.Inc()
	r.wg.Add(1)
	return true
}

func (r *root) release() {
	r.activeOps.Dec()
	r.wg.Done()
}

func (r *root) enabled(level zerolog.Level) bool {
	return level >= zerolog.Level(r.level.Load())
}

// event starts a line at level. The caller must call l.root.release once the
// returned event has been sent. A nil event means the line is dropped.
func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	if l == nil || !l.root.enabled(level) {
		return nil
	}
	if !l.root.acquire() {
		return nil
	}
	logger := l.logger.Load()
	if logger == nil {
		l.root.release()
		return nil
	}
	// WithLevel so that fatal lines never exit the process.
	e := logger.WithLevel(level)
	if e == nil {
		l.root.release()
		return nil
	}
	return e
}

// lineFields merges the fields of one line into a single set, so that every
// key is written once. Later sources win: the request context, then the
// logger's own fields, then meta. Keys zerolog writes itself are dropped.
func (l *Logger) lineFields(ctx context.Context, meta []Fields) map[string]any {
	out := make(map[string]any, len(l.fields)+2)
	if cid := CorrelationID(ctx); cid != emptyString {
		out[fieldCorrelationID] = cid
	}
	if uid := UserID(ctx); uid != emptyString {
		out[fieldUserID] = uid
	}
	for k, v := range l.fields {
		out[k] = v
	}
	for _, m := range meta {
		for k, v := range m {
			out[k] = v
		}
	}
	delete(out, zerolog.LevelFieldName)
	delete(out, zerolog.TimestampFieldName)
	delete(out, zerolog.MessageFieldName)
	return out
}

// Info writes msg at info level with the request's correlation fields and meta.
func (l *Logger) Info(ctx context.Context, msg string, meta ...Fields) {
	l.write(ctx, zerolog.InfoLevel, msg, meta)
}

// Log is an alias of Info.
func (l *Logger) Log(ctx context.Context, msg string, meta ...Fields) {
	l.write(ctx, zerolog.InfoLevel, msg, meta)
}

func (l *Logger) Debug(ctx context.Context, msg string, meta ...Fields) {
	l.write(ctx, zerolog.DebugLevel, msg, meta)
}

func (l *Logger) Warn(ctx context.Context, msg string, meta ...Fields) {
	l.write(ctx, zerolog.WarnLevel, msg, meta)
}

// Verbose writes at trace level.
func (l *Logger) Verbose(ctx context.Context, msg string, meta ...Fields) {
	l.write(ctx, zerolog.TraceLevel, msg, meta)
}

func (l *Logger) write(ctx context.Context, level zerolog.Level, msg string, meta []Fields) {
	e := l.event(level)
	if e == nil {
		return
	}
	defer l.root.release()

	e.Fields(l.lineFields(ctx, meta)).Msg(msg)
}

// Error writes an error record and returns it. messageOrError may be a
// string or an error; an error adds its stack (or cause chain) and the
// error_* chain fields. Meta keys naming record fields set them; other keys
// are written as extra fields.
func (l *Logger) Error(ctx context.Context, messageOrError any, meta ...Fields) *Record {
	return l.failure(ctx, zerolog.ErrorLevel, tagError, messageOrError, meta)
}

// Fatal is Error at fatal level. It does not exit the process.
func (l *Logger) Fatal(ctx context.Context, messageOrError any, meta ...Fields) *Record {
	return l.failure(ctx, zerolog.FatalLevel, tagFatal, messageOrError, meta)
}

func (l *Logger) failure(ctx context.Context, level zerolog.Level, tag string, v any, meta []Fields) *Record {
	rec := &Record{correlationID: CorrelationID(ctx), userID: UserID(ctx)}

	var err error
	switch x := v.(type) {
	case nil:
	case error:
		err = x
		rec.message = x.Error()
		rec.errorStack = errorStack(x)
	case string:
		rec.message = x
	case fmt.Stringer:
		rec.message = x.String()
	default:
		rec.message = SafeStringify(x, l.root.sanitizer.MaxLength)
	}

	extra := l.applyMeta(rec, meta)
	l.emit(level, tag, rec, extra, err)
	return rec
}

// applyMeta assigns meta keys naming record fields and returns the rest.
// Payload fields are sanitized first.
func (l *Logger) applyMeta(rec *Record, meta []Fields) Fields {
	var extra Fields
	for _, m := range meta {
		for k, v := range m {
			switch k {
			case fieldBody, fieldParam, fieldResponse:
				v = SanitizePayload(v, l.root.sanitizer)
			}
			if rec.setField(k, v) {
				continue
			}
			if extra == nil {
				extra = Fields{}
			}
			extra[k] = v
		}
	}
	return extra
}

// emit writes rec. The line's message is the record message, or the tag
// when the record has none; the tag is always written under "tag".
func (l *Logger) emit(level zerolog.Level, tag string, rec *Record, extra Fields, err error) {
	e := l.event(level)
	if e == nil {
		return
	}
	defer l.root.release()

	e = e.Str(fieldTag, tag).EmbedObject(recordFields{rec})
	if err != nil {
		e = withErrorChain(e, zerolog.ErrorFieldName, err)
	}
	e = e.Fields(l.recordLineFields(rec, extra, err != nil))
	msg := rec.message
	if msg == emptyString {
		msg = tag
	}
	e.Msg(msg)
}

// recordLineFields returns the logger's fields and extra without the keys
// the record line already carries.
func (l *Logger) recordLineFields(rec *Record, extra Fields, withErr bool) map[string]any {
	out := l.lineFields(context.Background(), []Fields{extra})
	delete(out, fieldTag)
	for _, f := range rec.fields() {
		delete(out, f.key)
	}
	if rec.httpStatusCode != 0 {
		delete(out, fieldHTTPStatusCode)
	}
	if withErr {
		for _, suffix := range errorChainSuffixes {
			delete(out, zerolog.ErrorFieldName+suffix)
		}
	}
	return out
}

// recordFields writes every record field except the message, which becomes
// the line's message.
type recordFields struct{ rec *Record }

func (r recordFields) MarshalZerologObject(e *zerolog.Event) {
	for _, f := range r.rec.fields() {
		if f.key == fieldMessage {
			continue
		}
		e.Str(f.key, f.val)
	}
	if r.rec.httpStatusCode != 0 {
		e.Int(fieldHTTPStatusCode, r.rec.httpStatusCode)
	}
}

// LogAPIRequestResponse records one served request. Requests to the health
// check endpoint are skipped and yield an empty record.
func (l *Logger) LogAPIRequestResponse(ctx context.Context, req *RequestInfo, statusCode string, httpStatusCode int, data any) *Record {
	if req == nil {
		req = &RequestInfo{}
	}
	if strings.Contains(req.URL, healthCheckMarker) {
		return &Record{}
	}

	rec := &Record{
		correlationID:  CorrelationID(ctx),
		method:         req.Method,
		endpoint:       req.URL,
		userID:         UserID(ctx),
		body:           SanitizePayload(req.Body, l.root.sanitizer),
		param:          SanitizePayload(req.Query, l.root.sanitizer),
		response:       SanitizePayload(data, l.root.sanitizer),
		statusCode:     statusCode,
		httpStatusCode: httpStatusCode,
	}
	l.emit(zerolog.InfoLevel, tagAPILog, rec, nil, nil)
	return rec
}

// LogHTTPResponse records one outbound call. The correlation id is taken
// from the outgoing request headers, then from ctx. A nil res is logged as
// an empty call. Failed calls are written at error level.
func (l *Logger) LogHTTPResponse(ctx context.Context, res *OutboundResponse) *Record {
	var (
		req    OutboundRequest
		data   any
		status int
		err    error
	)
	if res != nil {
		if res.Request != nil {
			req = *res.Request
		}
		data, status, err = res.Data, res.Status, res.Err
	}

	cid := req.Header.Get(HeaderCorrelationID)
	if cid == emptyString {
		cid = CorrelationID(ctx)
	}

	rec := &Record{
		correlationID:  cid,
		method:         strings.ToUpper(req.Method),
		endpoint:       req.URL,
		userID:         UserID(ctx),
		body:           SanitizePayload(req.Body, l.root.sanitizer),
		param:          SanitizePayload(req.Params, l.root.sanitizer),
		response:       SanitizePayload(data, l.root.sanitizer),
		httpStatusCode: status,
	}

	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.ErrorLevel
		rec.message = err.Error()
	}
	l.emit(level, tagHTTPClient, rec, nil, err)
	return rec
}

// Structured logging methods

// InfoWith returns a LogEvent for structured Info-level logging, prefilled
// with the correlation fields of ctx.
// Example: logger.InfoWith(ctx).Str("user_id", id).Int("count", 5).Msg("User processed")
func (l *Logger) InfoWith(ctx context.Context) LogEvent { return l.with(ctx, zerolog.InfoLevel) }

func (l *Logger) DebugWith(ctx context.Context) LogEvent { return l.with(ctx, zerolog.DebugLevel) }

func (l *Logger) WarnWith(ctx context.Context) LogEvent { return l.with(ctx, zerolog.WarnLevel) }

// ErrorWith returns a LogEvent for structured Error-level logging.
// Example: logger.ErrorWith(ctx).Err(err).Str("operation", "database").Msg("Query failed")
func (l *Logger) ErrorWith(ctx context.Context) LogEvent { return l.with(ctx, zerolog.ErrorLevel) }

func (l *Logger) TraceWith(ctx context.Context) LogEvent { return l.with(ctx, zerolog.TraceLevel) }

func (l *Logger) with(ctx context.Context, level zerolog.Level) LogEvent {
	e := l.event(level)
	if e == nil {
		return newLogEvent(nil, SanitizerOptions{}, nil)
	}
	return newLogEvent(e.Fields(l.lineFields(ctx, nil)), l.root.sanitizer, l.root.release)
}
