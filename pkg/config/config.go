package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. VAKYA_GEMINI_API_KEY.
const EnvPrefix = "VAKYA"

// Config is the server configuration, loaded from defaults, an optional
// config file, an env file, VAKYA_* variables and flags.
type Config struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	// GRPCPort 0 disables the gRPC server.
	GRPCPort    int    `mapstructure:"grpc_port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	// LogFormat is text or json.
	LogFormat   string `mapstructure:"log_format"`
	Python      string `mapstructure:"python"`
	// ScratchDir holds generated model scripts while they run.
	ScratchDir  string `mapstructure:"scratch_dir"`

	Models     ModelsConfig     `mapstructure:"models"`
	Subprocess SubprocessConfig `mapstructure:"subprocess"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
}

// ModelsConfig locates the installed local models.
type ModelsConfig struct {
	LocalDir   string `mapstructure:"local_dir"`
	ModelV3Dir string `mapstructure:"modelv3_dir"`
}

// SubprocessConfig bounds local model processes.
type SubprocessConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// GeminiConfig configures the hosted model. An empty APIKey disables it.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// CORSConfig lists the allowed browser origins; "*" allows any.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// UploadsConfig caps files posted to the chat route.
type UploadsConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// JobsConfig tunes asynchronous translation jobs.
type JobsConfig struct {
	Workers     int           `mapstructure:"workers"`
	// ChunkTokens is the estimated token budget per local model call.
	ChunkTokens int           `mapstructure:"chunk_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// MaxAge is how long finished jobs are kept.
	MaxAge      time.Duration `mapstructure:"max_age"`
}

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("environment", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("python", "python")
	v.SetDefault("scratch_dir", "./temp")

	v.SetDefault("models.local_dir", "./modelv2")
	v.SetDefault("models.modelv3_dir", "./modelv3")

	v.SetDefault("subprocess.timeout", 5*time.Minute)
	v.SetDefault("subprocess.max_concurrent", 2)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("uploads.max_bytes", int64(10<<20))

	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.chunk_tokens", 200)
	v.SetDefault("jobs.timeout", 10*time.Minute)
	v.SetDefault("jobs.max_age", time.Hour)
}

// BindEnv makes VAKYA_* variables visible to v. The Gemini key is also
// read from GEMINI_API_KEY, the name the Google SDKs use.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`,
		`.`, `_`,
	))
	v.AutomaticEnv()

	return v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")
}

// LoadEnvAndConfigFiles loads the env file and config file named by the
// env_file and config_file keys. Without an explicit env file, ./.env is
// loaded when present.
func LoadEnvAndConfigFiles(v *viper.Viper) error {
	envFile := v.GetString("env_file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	configFile := v.GetString("config_file")
	if configFile == "" {
		return nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	return nil
}

// Load unmarshals and validates v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid grpc_port %d", c.GRPCPort))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log_format %q, use \"text\" or \"json\"", c.LogFormat))
	}
	if c.Python == "" {
		errs = append(errs, errors.New("python interpreter must be set"))
	}
	if c.Subprocess.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("subprocess.max_concurrent must be positive, got %d", c.Subprocess.MaxConcurrent))
	}
	if c.Uploads.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("uploads.max_bytes must be positive, got %d", c.Uploads.MaxBytes))
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger. An unknown level falls back to info.
func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}
