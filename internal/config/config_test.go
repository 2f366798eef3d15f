package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Export: ExportConfig{ImageProxyURL: "https://images.weserv.nl/?url=%s"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	cfg := validConfig()

	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		cfg.Logger.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}

	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	assert.Error(t, cfg.Validate())
}

func TestValidate_ImageProxyURLNeedsPlaceholder(t *testing.T) {
	cfg := validConfig()
	cfg.Export.ImageProxyURL = "https://images.weserv.nl/?url="

	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", got)

	got, err = expandPath("/explicit", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/explicit", got)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("KIDOBRA_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "KIDOBRA_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "KIDOBRA_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "KIDOBRA_UNSET_KEY", "default"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("true", "KIDOBRA_UNSET_KEY", false))
	assert.True(t, getBoolConfigValue("YES", "KIDOBRA_UNSET_KEY", false))
	assert.False(t, getBoolConfigValue("no", "KIDOBRA_UNSET_KEY", true))
	assert.True(t, getBoolConfigValue("", "KIDOBRA_UNSET_KEY", true))
}
