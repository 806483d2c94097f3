package config

import (
	"os"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	conf := NewDefaultConfig()
	assert.Equal(t, 0, conf.Concurrency)
	assert.Equal(t, "info", conf.Log.Level)
	assert.NoError(t, conf.Validate())
}

func TestLogLevelFromEnv(t *testing.T) {
	old, had := os.LookupEnv("LOG_LEVEL")
	defer func() {
		if had {
			os.Setenv("LOG_LEVEL", old)
		} else {
			os.Unsetenv("LOG_LEVEL")
		}
	}()

	os.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, "debug", NewDefaultConfig().Log.Level)
}

func TestValidate(t *testing.T) {
	conf := NewDefaultConfig()
	conf.Concurrency = -1
	assert.Error(t, conf.Validate())

	conf.Concurrency = 8
	assert.NoError(t, conf.Validate())
}

func TestDecodeTOML(t *testing.T) {
	input := `
concurrency = 16

[log]
level = "warn"
`
	conf := NewDefaultConfig()
	_, err := toml.Decode(input, conf)
	require.NoError(t, err)
	assert.Equal(t, 16, conf.Concurrency)
	assert.Equal(t, "warn", conf.Log.Level)
	assert.NoError(t, conf.Validate())
}
