package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// ErrCredentialsNotConfigured is returned when the login name and password are
// missing or still set to the sample values
var ErrCredentialsNotConfigured = errors.New("credentials not configured")

// CredentialsNotConfiguredMessage is shown to the user when the credential gate fails
const CredentialsNotConfiguredMessage = "LOGINNAMEとPASSWORDを設定してください"

// Config represents the application configuration
type Config struct {
	Credentials models.Credentials `toml:"credentials"`
	HTTP        HTTPConfig         `toml:"http"`
	Avatars     AvatarsConfig      `toml:"avatars"`
	Logging     LoggingConfig      `toml:"logging"`
}

// HTTPConfig controls the outbound HTTP client
type HTTPConfig struct {
	Timeout         string `toml:"timeout"`          // Per-request timeout, e.g. "30s"
	UserAgent       string `toml:"user_agent"`       // User-Agent header sent on every request
	RequestInterval string `toml:"request_interval"` // Minimum gap between requests, "0s" disables pacing
}

// AvatarsConfig controls the local avatar cache
type AvatarsConfig struct {
	Dir    string `toml:"dir" validate:"required"` // Directory avatars are written to (default: ".")
	Strict bool   `toml:"strict"`                  // Abort the run when an avatar download fails
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=file console stdout"` // "file", "console"; console shares stdout with the JSON document
	TimeFormat string   `toml:"time_format"`
}

// NewDefaultConfig returns the configuration used when no file or env override is present
func NewDefaultConfig() *Config {
	return &Config{
		Credentials: models.Credentials{
			LoginName: models.PlaceholderLoginName,
			Password:  models.PlaceholderPassword,
		},
		HTTP: HTTPConfig{
			Timeout:         "30s",
			UserAgent:       "bootcamp-reports/" + GetVersion(),
			RequestInterval: "0s",
		},
		Avatars: AvatarsConfig{
			Dir:    ".",
			Strict: false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"file"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// The credential variables keep the lower-case names existing launcher setups export.
func applyEnvOverrides(config *Config) {
	if loginName := os.Getenv("loginname"); loginName != "" {
		config.Credentials.LoginName = loginName
	}
	if password := os.Getenv("password"); password != "" {
		config.Credentials.Password = password
	}

	if level := os.Getenv("BOOTCAMP_REPORTS_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("BOOTCAMP_REPORTS_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	if timeout := os.Getenv("BOOTCAMP_REPORTS_HTTP_TIMEOUT"); timeout != "" {
		config.HTTP.Timeout = timeout
	}

	if dir := os.Getenv("BOOTCAMP_REPORTS_AVATAR_DIR"); dir != "" {
		config.Avatars.Dir = dir
	}
	if strict := os.Getenv("BOOTCAMP_REPORTS_AVATAR_STRICT"); strict != "" {
		if s, err := strconv.ParseBool(strict); err == nil {
			config.Avatars.Strict = s
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, logLevel string) {
	if logLevel != "" {
		config.Logging.Level = strings.ToLower(logLevel)
	}
}

// Validate checks struct constraints and duration fields
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.HTTP.TimeoutDuration(); err != nil {
		return fmt.Errorf("invalid http.timeout: %w", err)
	}
	if _, err := c.HTTP.RequestIntervalDuration(); err != nil {
		return fmt.Errorf("invalid http.request_interval: %w", err)
	}

	return nil
}

// CheckCredentials implements the credential gate. It must run before any network call.
func (c *Config) CheckCredentials() error {
	if c.Credentials.IsPlaceholder() {
		return ErrCredentialsNotConfigured
	}
	return nil
}

// TimeoutDuration parses Timeout. An empty value disables the timeout.
func (h HTTPConfig) TimeoutDuration() (time.Duration, error) {
	return parseNonNegativeDuration(h.Timeout)
}

// RequestIntervalDuration parses RequestInterval. An empty value disables pacing.
func (h HTTPConfig) RequestIntervalDuration() (time.Duration, error) {
	return parseNonNegativeDuration(h.RequestInterval)
}

func parseNonNegativeDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", value)
	}
	return d, nil
}
