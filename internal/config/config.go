package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/scim-mock-server/internal/resource"
)

// Config holds runtime configuration values for the mock server. It is
// built once at startup and passed explicitly to every component.
type Config struct {
	AppName         string `validate:"required"`
	AppEnv          string `validate:"required"`
	AppPort         string `validate:"required"`
	TLSCertFile     string `validate:"required_with=TLSKeyFile"`
	TLSKeyFile      string `validate:"required_with=TLSCertFile"`
	BasePath        string
	Resources       []resource.Kind `validate:"min=1,dive,required"`
	LogDir          string          `validate:"required"`
	LogLevel        string
	LogFormat       string `validate:"omitempty,oneof=json console"`
	RedisURL        string
	NATSURL         string
	ChannelBase     string
	FailWith        int `validate:"omitempty,min=100,max=599"`
	StrictMediaType bool
	RateLimitMax    int           `validate:"gte=0"`
	RateLimitWindow time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// TLSEnabled reports whether a certificate/key pair is configured.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MOCKSCIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SCIM Mock Server")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "9876")
	v.SetDefault("log.dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("channel_base", "mockscim")
	v.SetDefault("fail_with", 0)
	v.SetDefault("strict_media_type", false)
	v.SetDefault("rate_limit.max", 0)
	v.SetDefault("rate_limit.window", "1s")
	v.SetDefault("shutdown_timeout", "5s")

	timeout, err := time.ParseDuration(v.GetString("shutdown_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	window, err := time.ParseDuration(v.GetString("rate_limit.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	resources := resource.ParseList(strings.Split(v.GetString("resources"), ","))
	if len(resources) == 0 {
		resources = resource.Defaults()
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		TLSCertFile:     strings.TrimSpace(v.GetString("tls.cert_file")),
		TLSKeyFile:      strings.TrimSpace(v.GetString("tls.key_file")),
		BasePath:        strings.TrimSpace(v.GetString("base_path")),
		Resources:       resources,
		LogDir:          strings.TrimSpace(v.GetString("log.dir")),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		LogFormat:       strings.ToLower(v.GetString("log.format")),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		ChannelBase:     v.GetString("channel_base"),
		FailWith:        v.GetInt("fail_with"),
		StrictMediaType: v.GetBool("strict_media_type"),
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		ShutdownTimeout: timeout,
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
