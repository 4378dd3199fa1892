package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Loader     LoaderConfig
	Mail       MailConfig
	Monitoring MonitoringConfig
	Worker     WorkerConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	StationRefreshInterval      time.Duration
	PhotographerRefreshInterval time.Duration
	StatsCacheTTL               time.Duration
}

// CountrySource describes one upstream per-country data provider. Mapper
// selects the field mapping used for its station listing.
type CountrySource struct {
	Code        string
	Name        string
	StationsURL string
	PhotosURL   string
	Mapper      string
}

type LoaderConfig struct {
	Countries        []CountrySource
	PhotographersURL string
	PhotoBaseURL     string
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	// AnonymousNickname replaces the submitter identity when a photo
	// carries the anonymization flag.
	AnonymousNickname string
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type MonitoringConfig struct {
	WebhookURL string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	RefreshSchedule   string
	NotifyInterval    time.Duration
	UpstreamImportURL string
	MaxRetries        int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			StationRefreshInterval:      time.Duration(viper.GetInt("STATION_REFRESH_INTERVAL")) * time.Second,
			PhotographerRefreshInterval: time.Duration(viper.GetInt("PHOTOGRAPHER_REFRESH_INTERVAL")) * time.Second,
			StatsCacheTTL:               time.Duration(viper.GetInt("STATS_CACHE_TTL")) * time.Second,
		},
		Loader: LoaderConfig{
			Countries:         parseCountrySources(viper.GetString("LOADER_COUNTRIES")),
			PhotographersURL:  viper.GetString("LOADER_PHOTOGRAPHERS_URL"),
			PhotoBaseURL:      viper.GetString("LOADER_PHOTO_BASE_URL"),
			ConnectTimeout:    time.Duration(viper.GetInt("LOADER_CONNECT_TIMEOUT")) * time.Second,
			ReadTimeout:       time.Duration(viper.GetInt("LOADER_READ_TIMEOUT")) * time.Second,
			AnonymousNickname: viper.GetString("LOADER_ANONYMOUS_NICKNAME"),
		},
		Mail: MailConfig{
			Host:     viper.GetString("MAIL_HOST"),
			Port:     viper.GetInt("MAIL_PORT"),
			User:     viper.GetString("MAIL_USER"),
			Password: viper.GetString("MAIL_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
		},
		Monitoring: MonitoringConfig{
			WebhookURL: viper.GetString("MONITORING_WEBHOOK_URL"),
		},
		Worker: WorkerConfig{
			Enabled:           viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     viper.GetString("WORKER_CONSUMER_GROUP"),
			RefreshSchedule:   viper.GetString("WORKER_REFRESH_SCHEDULE"),
			NotifyInterval:    time.Duration(viper.GetInt("WORKER_NOTIFY_INTERVAL")) * time.Second,
			UpstreamImportURL: viper.GetString("WORKER_UPSTREAM_IMPORT_URL"),
			MaxRetries:        viper.GetInt("WORKER_MAX_RETRIES"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	// Set default values if not provided
	if cfg.Cache.StationRefreshInterval == 0 {
		cfg.Cache.StationRefreshInterval = 5 * time.Minute
	}
	if cfg.Cache.PhotographerRefreshInterval == 0 {
		cfg.Cache.PhotographerRefreshInterval = 60 * time.Minute
	}
	if cfg.Cache.StatsCacheTTL == 0 {
		cfg.Cache.StatsCacheTTL = 5 * time.Minute
	}
	if cfg.Loader.ConnectTimeout == 0 {
		cfg.Loader.ConnectTimeout = 5 * time.Second
	}
	if cfg.Loader.ReadTimeout == 0 {
		cfg.Loader.ReadTimeout = 5 * time.Second
	}
	if cfg.Loader.AnonymousNickname == "" {
		cfg.Loader.AnonymousNickname = "@anonym"
	}
	if cfg.Worker.ConsumerGroup == "" {
		cfg.Worker.ConsumerGroup = "photo-import-workers"
	}
	if cfg.Worker.RefreshSchedule == "" {
		cfg.Worker.RefreshSchedule = "@every 5m"
	}
	if cfg.Worker.NotifyInterval == 0 {
		cfg.Worker.NotifyInterval = 60 * time.Second
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}

	return cfg, nil
}

// parseCountrySources parses "de=Germany|stationsURL|photosURL|mapper,..."
// into the per-country source list.
func parseCountrySources(s string) []CountrySource {
	if s == "" {
		return nil
	}
	var result []CountrySource
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, rest, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		fields := strings.Split(rest, "|")
		if len(fields) < 4 {
			continue
		}
		result = append(result, CountrySource{
			Code:        strings.TrimSpace(code),
			Name:        strings.TrimSpace(fields[0]),
			StationsURL: strings.TrimSpace(fields[1]),
			PhotosURL:   strings.TrimSpace(fields[2]),
			Mapper:      strings.TrimSpace(fields[3]),
		})
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
