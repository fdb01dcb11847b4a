package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation constants define acceptable bounds for configuration values
const (
	// Token validation
	minTokenLength = 50 // Discord tokens are typically 50+ characters

	// Snowflake IDs are 17-20 decimal digits
	minSnowflakeLength = 17
	maxSnowflakeLength = 20

	minStartupTimeout = 1 * time.Second
	maxStartupTimeout = 5 * time.Minute

	minVoiceConnectTimeout = 1 * time.Second
	maxVoiceConnectTimeout = 2 * time.Minute
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks if the configuration values are valid and within acceptable ranges.
// It returns all validation errors at once using errors.Join.
//
// Validated fields:
//   - Token: Must be at least 50 characters (Discord token format)
//   - OperatorID: Must be a 17-20 digit snowflake
//   - MusicDir, ServersFile, FFmpegPath: Must not be empty
//   - StartupTimeout: Must be between 1s and 5m
//   - VoiceConnectTimeout: Must be between 1s and 2m
//   - LogLevel, LogFormat: Must be a known value
func (c *Config) Validate() error {
	var errs []error

	if err := c.validateToken(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateOperatorID(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validatePaths(); err != nil {
		errs = append(errs, err)
	}

	if err := validateRange("STARTUP_TIMEOUT", c.StartupTimeout, minStartupTimeout, maxStartupTimeout); err != nil {
		errs = append(errs, err)
	}

	if err := validateRange("VOICE_CONNECT_TIMEOUT", c.VoiceConnectTimeout, minVoiceConnectTimeout, maxVoiceConnectTimeout); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateLogging(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %w", errors.Join(errs...))
	}

	return nil
}

// validateToken ensures the Discord token is present and has valid length
func (c *Config) validateToken() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required but not set")
	}

	if len(c.Token) < minTokenLength {
		return fmt.Errorf(
			"DISCORD_TOKEN appears invalid (too short: %d chars, expected %d+)",
			len(c.Token), minTokenLength,
		)
	}

	return nil
}

func (c *Config) validateOperatorID() error {
	if c.OperatorID == "" {
		return fmt.Errorf("ALLOWED_USER_ID is required but not set")
	}

	if len(c.OperatorID) < minSnowflakeLength || len(c.OperatorID) > maxSnowflakeLength {
		return fmt.Errorf(
			"ALLOWED_USER_ID must be %d-%d digits, got %d",
			minSnowflakeLength, maxSnowflakeLength, len(c.OperatorID),
		)
	}

	for _, r := range c.OperatorID {
		if r < '0' || r > '9' {
			return fmt.Errorf("ALLOWED_USER_ID must contain only digits, got %q", c.OperatorID)
		}
	}

	return nil
}

func (c *Config) validatePaths() error {
	var errs []error

	if strings.TrimSpace(c.MusicDir) == "" {
		errs = append(errs, fmt.Errorf("MUSIC_DIR cannot be empty"))
	}
	if strings.TrimSpace(c.ServersFile) == "" {
		errs = append(errs, fmt.Errorf("SERVERS_FILE cannot be empty"))
	}
	if strings.TrimSpace(c.FFmpegPath) == "" {
		errs = append(errs, fmt.Errorf("FFMPEG_PATH cannot be empty"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func validateRange(field string, value, lower, upper time.Duration) error {
	if value < lower {
		return fmt.Errorf("%s must be at least %v, got %v", field, lower, value)
	}

	if value > upper {
		return fmt.Errorf("%s must be at most %v, got %v", field, upper, value)
	}

	return nil
}

func (c *Config) validateLogging() error {
	var errs []error

	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of %v, got %q", validLogLevels, c.LogLevel))
	}

	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of %v, got %q", validLogFormats, c.LogFormat))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
