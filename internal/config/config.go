package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

const DefaultEnvFile = ".env"

type Config struct {
	APIKey       string        `env:"FX_API_KEY" env-description:"API key for the FX rate provider"`
	Provider     string        `env:"FX_PROVIDER" env-default:"exchangeratehost" env-description:"rate provider (exchangeratehost, apilayer)"`
	APIURL       string        `env:"FX_API_URL" env-description:"override the provider base URL"`
	BaseCurrency string        `env:"FX_BASE_CURRENCY" env-default:"EUR"`
	HTTPTimeout  time.Duration `env:"FX_HTTP_TIMEOUT" env-default:"15s"`

	DBPath    string `env:"DB_PATH" env-default:"fx.db"`
	LogPath   string `env:"LOG_PATH" env-default:"fx.log"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogStderr bool   `env:"LOG_STDERR" env-default:"false"`

	MetricsTextfile string `env:"METRICS_TEXTFILE" env-description:"write prometheus textfile metrics here after each run"`
	Port            string `env:"PORT" env-default:"8080"`
}

// Load reads envFile into the process environment (existing variables win)
// and then decodes the environment into a Config. A missing default .env is
// not an error; a missing explicitly named file is.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || envFile != DefaultEnvFile {
			return Config{}, apperror.Wrap(apperror.Configuration, err, "load env file "+envFile)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, apperror.Wrap(apperror.Configuration, err, "read environment")
	}
	cfg.BaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.BaseCurrency))
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return cfg, nil
}

// RequireAPIKey fails when no credential is configured. It must be checked
// before a fetcher is constructed.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return apperror.New(apperror.Configuration, "missing FX_API_KEY, check your environment or .env file")
	}
	return nil
}

// Usage describes the supported environment variables.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
