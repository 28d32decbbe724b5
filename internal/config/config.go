package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the PostGIS database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`

	// Connection retries on transient errors; the delay doubles per attempt
	// up to ConnectMaxDelay.
	ConnectAttempts int           `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	ConnectDelay    time.Duration `yaml:"connect_delay" mapstructure:"connect_delay"`
	ConnectMaxDelay time.Duration `yaml:"connect_max_delay" mapstructure:"connect_max_delay"`
}

// IngestConfig configures dataset loading.
type IngestConfig struct {
	// DatasetDir holds the default dataset files. Paths given on the command line are used as is.
	DatasetDir string `yaml:"dataset_dir" mapstructure:"dataset_dir"`
	// CountriesFile and StatesFile are used when no path argument is given.
	CountriesFile string `yaml:"countries_file" mapstructure:"countries_file"`
	StatesFile    string `yaml:"states_file" mapstructure:"states_file"`
	// MaxFailures caps how many per-feature failures are printed after a run.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOREF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("store.connect_delay", "500ms")
	v.SetDefault("store.connect_max_delay", "10s")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("ingest.dataset_dir", ".")
	v.SetDefault("ingest.countries_file", "ne_110m_admin_0_countries.geojson")
	v.SetDefault("ingest.states_file", "ne_10m_admin_1_states_provinces.geojson")
	v.SetDefault("ingest.max_failures", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that settings needed to reach the database are present.
func (c *Config) Validate() error {
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required (GEOREF_STORE_DATABASE_URL)")
	}
	if c.Store.ConnectAttempts < 1 {
		return eris.Errorf("config: store.connect_attempts must be >= 1, got %d", c.Store.ConnectAttempts)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
