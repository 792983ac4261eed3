package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rpattn/catalog-export/internal/db"
)

// Config is the full service configuration.
type Config struct {
	Database db.Config    `mapstructure:"database"`
	Server   ServerConfig `mapstructure:"server"`
	Export   ExportConfig `mapstructure:"export"`
	Log      LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// AdminToken guards the preview and field routes. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`
}

// ExportConfig tunes export runs.
type ExportConfig struct {
	ChunkSize       int    `mapstructure:"chunk_size"`
	PreviewLimit    int    `mapstructure:"preview_limit"`
	DefaultCurrency string `mapstructure:"default_currency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from configPath (if present) and EXPORT_* env vars.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath == "" {
		configPath = "."
	}
	v.AddConfigPath(configPath)

	// EXPORT_DATABASE_HOST, EXPORT_SERVER_ADMIN_TOKEN, ...
	v.SetEnvPrefix("EXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := db.DefaultConfig()
	v.SetDefault("database.host", defaults.Host)
	v.SetDefault("database.port", defaults.Port)
	v.SetDefault("database.user", defaults.User)
	v.SetDefault("database.password", defaults.Password)
	v.SetDefault("database.dbname", defaults.DBName)
	v.SetDefault("database.sslmode", defaults.SSLMode)
	v.SetDefault("database.max_conns", defaults.MaxConns)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.admin_token", "")
	v.SetDefault("export.chunk_size", 500)
	v.SetDefault("export.preview_limit", 20)
	v.SetDefault("export.default_currency", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return eris.Errorf("config: server.port %d is out of range", c.Server.Port)
	case c.Export.ChunkSize <= 0:
		return eris.Errorf("config: export.chunk_size must be positive, got %d", c.Export.ChunkSize)
	case c.Export.PreviewLimit <= 0:
		return eris.Errorf("config: export.preview_limit must be positive, got %d", c.Export.PreviewLimit)
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
