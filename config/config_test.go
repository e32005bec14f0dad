package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twittex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
twitter:
  consumer_key: ck
  consumer_secret: cs
  token: tok
  token_secret: ts
  track: golang,elixir
nats:
  url: nats://broker:4222
bridge:
  subject: tweets.raw
  window: 32
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "ck", cfg.Twitter.ConsumerKey)
	assert.Equal(t, "golang,elixir", cfg.Twitter.Track)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "tweets.raw", cfg.Bridge.Subject)
	assert.Equal(t, 32, cfg.Bridge.Window)

	// Defaults survive where the file is silent.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Contains(t, cfg.Twitter.StreamURL, "stream.twitter.com")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TWITTEX_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, `
twitter:
  consumer_key: ck
  consumer_secret: ${TWITTEX_SECRET}
  token: tok
  token_secret: ts
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Twitter.ConsumerSecret)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "twitter: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Twitter.ConsumerKey = "ck"
		cfg.Twitter.ConsumerSecret = "cs"
		cfg.Twitter.Token = "tok"
		cfg.Twitter.TokenSecret = "ts"
		return cfg
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Twitter.ConsumerKey = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Bridge.Window = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Metrics.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.NATS.URL = ""
	assert.Error(t, cfg.Validate())
}
