package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
	APIKey       string
}

type RetentionConfig struct {
	MaxRecords int
	StaleDays  int
}

type PushoverConfig struct {
	Enabled  bool
	AppToken string
	UserKey  string
	Priority int
	Sound    string
	Title    string
}

type MQTTConfig struct {
	Broker string
	Topic  string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Retention   RetentionConfig
	Pushover    PushoverConfig
	MQTT        MQTTConfig
}

func Load() (*Config, error) {
	cfg := read(newViper())

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return v
}

func read(v *viper.Viper) *Config {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			APIKey:       v.GetString("INGEST_API_KEY"),
		},
		Retention: RetentionConfig{
			MaxRecords: v.GetInt("MAX_RECORDS"),
			StaleDays:  v.GetInt("UI_STALE_DAYS"),
		},
		Pushover: PushoverConfig{
			Enabled:  v.GetBool("PUSHOVER_ENABLED"),
			AppToken: v.GetString("PUSHOVER_APP_TOKEN"),
			UserKey:  v.GetString("PUSHOVER_USER_KEY"),
			Priority: v.GetInt("PUSHOVER_PRIORITY"),
			Sound:    v.GetString("PUSHOVER_SOUND"),
			Title:    v.GetString("PUSHOVER_TITLE"),
		},
		MQTT: MQTTConfig{
			Broker: v.GetString("MQTT_BROKER"),
			Topic:  v.GetString("MQTT_TOPIC"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Retention.MaxRecords == 0 {
		cfg.Retention.MaxRecords = 2000
	}
	if cfg.Retention.StaleDays == 0 {
		cfg.Retention.StaleDays = 15
	}
	if cfg.Pushover.Title == "" {
		cfg.Pushover.Title = "ALPR Alert"
	}
	if cfg.Pushover.Sound == "" {
		cfg.Pushover.Sound = "pushover"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "alpr/plates"
	}

	return cfg
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Auth.APIKey == "" {
		return fmt.Errorf("INGEST_API_KEY is required")
	}
	return nil
}

// Settings re-reads the retention knobs on every call so edits to the config
// file take effect without a restart. The rest of the config is a startup
// snapshot.
type Settings struct{}

func (Settings) Retention() RetentionConfig {
	return read(newViper()).Retention
}
