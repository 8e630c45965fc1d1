package reqlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOptions(t *testing.T) {
	require.Error(t, validateOptions(nil))

	valid := Options{}.withDefaults()
	require.NoError(t, validateOptions(&valid))

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"unknown level", func(o *Options) { o.LogLevel = "verbose" }},
		{"negative body length", func(o *Options) { o.MaxBodyLength = -10 }},
		{"empty sensitive field", func(o *Options) { o.SensitiveFields = []string{""} }},
		{"empty redact path", func(o *Options) { o.RedactPaths = []string{"a", ""} }},
		{"negative shutdown timeout", func(o *Options) { o.ShutdownTimeoutMS = -1 }},
		{"negative file backups", func(o *Options) { o.File = &FileOptions{MaxBackups: -1} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := Options{}.withDefaults()
			tc.mutate(&o)
			assert.Error(t, validateOptions(&o))
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{Environment: localEnvironment}.withDefaults()
	require.NotNil(t, o.PrettyPrint)
	assert.True(t, *o.PrettyPrint)
	assert.Equal(t, defaultServiceName, o.ServiceName)
	assert.Equal(t, defaultLogLevel, o.LogLevel)
	assert.Equal(t, DefaultMaxBodyLength, o.MaxBodyLength)
	assert.Equal(t, DefaultMaskPattern, o.MaskPattern)
	assert.Equal(t, defaultShutdownTimeout, o.ShutdownTimeoutMS)
	assert.NotNil(t, o.Output)

	fields := []string{"pin"}
	o = Options{SensitiveFields: fields}.withDefaults()
	assert.False(t, *o.PrettyPrint)
	o.SensitiveFields[0] = "changed"
	assert.Equal(t, "pin", fields[0])
}
