package reqlog

import (
	"strings"

	"github.com/Station-Manager/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "REQLOG_"

// Keys whose environment values are comma separated lists.
var listKeys = map[string]bool{
	"sensitive_fields": true,
	"redact_paths":     true,
}

type loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// LoadOption configures LoadOptions.
type LoadOption func(*loader)

// WithConfigFile reads a YAML file before the environment.
func WithConfigFile(path string) LoadOption {
	return func(l *loader) {
		l.filePath = path
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(l *loader) {
		l.envPrefix = prefix
	}
}

// LoadOptions builds Options from an optional YAML file overlaid with
// environment variables. Variable names drop the prefix, are lower-cased and
// use a double underscore for nesting: REQLOG_FILE__MAX_SIZE_MB sets
// file.max_size_mb. List values are comma separated.
//
// Defaults are applied by New, not here.
func LoadOptions(opts ...LoadOption) (Options, error) {
	const op errors.Op = "reqlog.LoadOptions"

	l := &loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.filePath != emptyString {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return Options{}, errors.New(op).Err(err).Msg(errMsgLoadConfigFile)
		}
	}

	provider := env.ProviderWithValue(l.envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(key, l.envPrefix)
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		if listKeys[key] {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != emptyString {
					out = append(out, p)
				}
			}
			return key, out
		}
		return key, value
	})
	if err := l.k.Load(provider, nil); err != nil {
		return Options{}, errors.New(op).Err(err).Msg(errMsgLoadConfigEnv)
	}

	var o Options
	if err := l.k.Unmarshal(emptyString, &o); err != nil {
		return Options{}, errors.New(op).Err(err).Msg(errMsgUnmarshalConfig)
	}
	return o, nil
}
