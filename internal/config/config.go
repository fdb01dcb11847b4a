package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Token               string
	OperatorID          string
	MusicDir            string
	ServersFile         string
	FFmpegPath          string
	MetricsAddr         string
	StartupTimeout      time.Duration
	VoiceConnectTimeout time.Duration
	ConsoleEnabled      bool
	LogLevel            string
	LogFormat           string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	token := readSecret("discord_token")
	if token == "" {
		token = os.Getenv("DISCORD_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set (via secret or env var)")
	}

	operatorID := readSecret("allowed_user_id")
	if operatorID == "" {
		operatorID = os.Getenv("ALLOWED_USER_ID")
	}
	if operatorID == "" {
		return nil, fmt.Errorf("ALLOWED_USER_ID is not set (via secret or env var)")
	}

	cfg := &Config{
		Token:               token,
		OperatorID:          operatorID,
		MusicDir:            envString("MUSIC_DIR", "music"),
		ServersFile:         envString("SERVERS_FILE", "servers.txt"),
		FFmpegPath:          envString("FFMPEG_PATH", "ffmpeg"),
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
		StartupTimeout:      envDuration("STARTUP_TIMEOUT", 15*time.Second),
		VoiceConnectTimeout: envDuration("VOICE_CONNECT_TIMEOUT", 10*time.Second),
		ConsoleEnabled:      envBool("CONSOLE_ENABLED", true),
		LogLevel:            envString("LOG_LEVEL", "info"),
		LogFormat:           envString("LOG_FORMAT", "text"),
	}
	if _, set := os.LookupEnv("METRICS_ADDR"); !set {
		cfg.MetricsAddr = ":9090"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var secretsDir = "/run/secrets/"

func readSecret(name string) string {
	data, err := os.ReadFile(secretsDir + name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
