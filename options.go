package reqlog

import (
	"io"
	"os"
	"slices"
	"time"
)

// Fields carries extra key/value pairs for a log line.
type Fields map[string]any

// FileOptions enables rotating file output next to the console output.
type FileOptions struct {
	// Dir defaults to the working directory.
	Dir string `koanf:"dir"`
	// Filename defaults to the executable name with a .log suffix.
	Filename   string `koanf:"filename"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
	Compress   bool   `koanf:"compress"`
}

// Options configures a Logger. Zero values select the documented defaults.
type Options struct {
	ServiceName string `koanf:"service_name"`
	LogLevel    string `koanf:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Environment string `koanf:"environment"`
	// PrettyPrint defaults to true when Environment is "local".
	PrettyPrint       *bool  `koanf:"pretty_print"`
	ConsoleNoColor    bool   `koanf:"console_no_color"`
	ConsoleTimeFormat string `koanf:"console_time_format"`

	MaxBodyLength   int      `koanf:"max_body_length" validate:"gte=0"`
	SensitiveFields []string `koanf:"sensitive_fields" validate:"omitempty,dive,required"`
	MaskPattern     string   `koanf:"mask_pattern"`

	BaseMetadata Fields `koanf:"base_metadata"`
	// RedactPaths lists dot separated paths into emitted lines whose values
	// are censored by the sink. "*" matches any key or index.
	RedactPaths []string `koanf:"redact_paths" validate:"omitempty,dive,required"`

	File              *FileOptions `koanf:"file"`
	ShutdownTimeoutMS int          `koanf:"shutdown_timeout_ms" validate:"gte=0"`

	// Output receives console lines. Defaults to os.Stdout.
	Output io.Writer `koanf:"-" validate:"-"`
}

func (o Options) withDefaults() Options {
	if o.ServiceName == emptyString {
		o.ServiceName = defaultServiceName
	}
	if o.LogLevel == emptyString {
		o.LogLevel = defaultLogLevel
	}
	if o.Environment == emptyString {
		o.Environment = defaultEnvironment
	}
	if o.PrettyPrint == nil {
		pretty := o.Environment == localEnvironment
		o.PrettyPrint = &pretty
	}
	if o.MaxBodyLength == 0 {
		o.MaxBodyLength = DefaultMaxBodyLength
	}
	if o.SensitiveFields == nil {
		o.SensitiveFields = DefaultSensitiveFields()
	} else {
		o.SensitiveFields = slices.Clone(o.SensitiveFields)
	}
	if o.MaskPattern == emptyString {
		o.MaskPattern = DefaultMaskPattern
	}
	if o.ShutdownTimeoutMS == 0 {
		o.ShutdownTimeoutMS = defaultShutdownTimeout
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	return o
}

func (o Options) sanitizer() SanitizerOptions {
	return SanitizerOptions{
		MaxLength:       o.MaxBodyLength,
		SensitiveFields: o.SensitiveFields,
		MaskPattern:     o.MaskPattern,
	}
}

func (o Options) shutdownTimeout() time.Duration {
	return time.Duration(o.ShutdownTimeoutMS) * time.Millisecond
}
