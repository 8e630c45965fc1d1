package reqlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
service_name: orders
log_level: debug
environment: staging
max_body_length: 512
sensitive_fields:
  - password
  - ssn
mask_pattern: "***"
base_metadata:
  region: eu-west-1
redact_paths:
  - headers.cookie
file:
  dir: /var/log/orders
  max_size_mb: 10
  compress: true
shutdown_timeout_ms: 1500
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reqlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOptions_File(t *testing.T) {
	opts, err := LoadOptions(WithConfigFile(writeConfig(t, sampleConfig)))
	require.NoError(t, err)

	assert.Equal(t, "orders", opts.ServiceName)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "staging", opts.Environment)
	assert.Equal(t, 512, opts.MaxBodyLength)
	assert.Equal(t, []string{"password", "ssn"}, opts.SensitiveFields)
	assert.Equal(t, "***", opts.MaskPattern)
	assert.Equal(t, "eu-west-1", opts.BaseMetadata["region"])
	assert.Equal(t, []string{"headers.cookie"}, opts.RedactPaths)
	require.NotNil(t, opts.File)
	assert.Equal(t, "/var/log/orders", opts.File.Dir)
	assert.Equal(t, 10, opts.File.MaxSizeMB)
	assert.True(t, opts.File.Compress)
	assert.Equal(t, 1500, opts.ShutdownTimeoutMS)
}

func TestLoadOptions_EnvOverridesFile(t *testing.T) {
	t.Setenv("REQLOG_LOG_LEVEL", "warn")
	t.Setenv("REQLOG_SENSITIVE_FIELDS", "pin, cvv,,")
	t.Setenv("REQLOG_FILE__MAX_SIZE_MB", "20")
	t.Setenv("REQLOG_PRETTY_PRINT", "true")

	opts, err := LoadOptions(WithConfigFile(writeConfig(t, sampleConfig)))
	require.NoError(t, err)

	assert.Equal(t, "warn", opts.LogLevel)
	assert.Equal(t, []string{"pin", "cvv"}, opts.SensitiveFields)
	require.NotNil(t, opts.File)
	assert.Equal(t, 20, opts.File.MaxSizeMB)
	assert.Equal(t, "/var/log/orders", opts.File.Dir)
	require.NotNil(t, opts.PrettyPrint)
	assert.True(t, *opts.PrettyPrint)
}

func TestLoadOptions_CustomPrefix(t *testing.T) {
	t.Setenv("ORDERS_LOG_SERVICE_NAME", "orders-api")
	t.Setenv("REQLOG_SERVICE_NAME", "ignored")

	opts, err := LoadOptions(WithEnvPrefix("ORDERS_LOG_"))
	require.NoError(t, err)
	assert.Equal(t, "orders-api", opts.ServiceName)
	assert.Nil(t, opts.File)
}

func TestLoadOptions_Errors(t *testing.T) {
	_, err := LoadOptions(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)

	_, err = LoadOptions(WithConfigFile(writeConfig(t, "service_name: [unclosed")))
	require.Error(t, err)
}

func TestLoadOptions_FeedsNew(t *testing.T) {
	t.Setenv("REQLOG_SERVICE_NAME", "from-env")
	opts, err := LoadOptions()
	require.NoError(t, err)

	l, buf := newTestLogger(t, opts)
	l.Info(t.Context(), "configured")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "from-env", entries[0][fieldService])
}
