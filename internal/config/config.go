package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver   string
	DBURL      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	SessionStore  string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	SessionSecret string
	JWTSecret     string
	CORSOrigins   []string

	LogLevel  string
	LogFormat string
	SentryDSN string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnalysisWorkers   int
	AnalysisQueueSize int
	AnalysisTimeout   time.Duration

	StorageBackend   string
	StorageLocalDir  string
	StoragePublicURL string
	StorageHost      string
	StoragePort      int
	StorageUser      string
	StoragePassword  string
	StorageKeyFile   string
	// StorageKnownHosts is the known_hosts file that pins SFTP host keys
	StorageKnownHosts string
	StorageRemoteDir  string

	UploadMaxBytes     int64
	UploadMinFreeBytes uint64

	NotifyURLs        []string
	MQTTBroker        string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTTopicPrefix   string
	NotifyTimeout     time.Duration
	ShutdownTimeout   time.Duration
	DashboardCacheTTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_url", "")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "blokt")
	v.SetDefault("db_password", "blokt")
	v.SetDefault("db_name", "blokt")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("session_store", "cookie")
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("session_secret", "default-secret-key-change-me")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", "http://localhost:3000")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("sentry_dsn", "")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o")
	v.SetDefault("openai_base_url", "")

	v.SetDefault("analysis_workers", 2)
	v.SetDefault("analysis_queue_size", 32)
	v.SetDefault("analysis_timeout", "2m")

	v.SetDefault("storage_backend", "local")
	v.SetDefault("storage_local_dir", "uploads")
	v.SetDefault("storage_public_url", "/uploads")
	v.SetDefault("storage_host", "")
	v.SetDefault("storage_port", 0)
	v.SetDefault("storage_user", "")
	v.SetDefault("storage_password", "")
	v.SetDefault("storage_key_file", "")
	v.SetDefault("storage_known_hosts", "")
	v.SetDefault("storage_remote_dir", "/blokt")

	v.SetDefault("upload_max_bytes", int64(10<<30))
	v.SetDefault("upload_min_free_bytes", uint64(1<<30))

	v.SetDefault("notify_urls", "")
	v.SetDefault("mqtt_broker", "")
	v.SetDefault("mqtt_client_id", "blokt-api")
	v.SetDefault("mqtt_username", "")
	v.SetDefault("mqtt_password", "")
	v.SetDefault("mqtt_topic_prefix", "blokt")
	v.SetDefault("notify_timeout", "10s")
	v.SetDefault("shutdown_timeout", "15s")
	v.SetDefault("dashboard_cache_ttl", "30s")
}

// Load reads configuration from .env, an optional config.yaml and the
// environment, in increasing order of precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/blokt")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("Ignoring unreadable config file: %v", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:    v.GetString("port"),
		GinMode: v.GetString("gin_mode"),

		DBDriver:   strings.ToLower(v.GetString("db_driver")),
		DBURL:      v.GetString("db_url"),
		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetString("db_port"),
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBSSLMode:  v.GetString("db_sslmode"),

		SessionStore:  strings.ToLower(v.GetString("session_store")),
		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetString("redis_port"),
		RedisPassword: v.GetString("redis_password"),
		SessionSecret: v.GetString("session_secret"),
		JWTSecret:     v.GetString("jwt_secret"),
		CORSOrigins:   splitList(v.GetString("cors_origins")),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		SentryDSN: v.GetString("sentry_dsn"),

		OpenAIAPIKey:  v.GetString("openai_api_key"),
		OpenAIModel:   v.GetString("openai_model"),
		OpenAIBaseURL: v.GetString("openai_base_url"),

		AnalysisWorkers:   v.GetInt("analysis_workers"),
		AnalysisQueueSize: v.GetInt("analysis_queue_size"),
		AnalysisTimeout:   v.GetDuration("analysis_timeout"),

		StorageBackend:    strings.ToLower(v.GetString("storage_backend")),
		StorageLocalDir:   v.GetString("storage_local_dir"),
		StoragePublicURL:  v.GetString("storage_public_url"),
		StorageHost:       v.GetString("storage_host"),
		StoragePort:       v.GetInt("storage_port"),
		StorageUser:       v.GetString("storage_user"),
		StoragePassword:   v.GetString("storage_password"),
		StorageKeyFile:    v.GetString("storage_key_file"),
		StorageKnownHosts: v.GetString("storage_known_hosts"),
		StorageRemoteDir:  v.GetString("storage_remote_dir"),

		UploadMaxBytes:     v.GetInt64("upload_max_bytes"),
		UploadMinFreeBytes: v.GetUint64("upload_min_free_bytes"),

		NotifyURLs:        splitList(v.GetString("notify_urls")),
		MQTTBroker:        v.GetString("mqtt_broker"),
		MQTTClientID:      v.GetString("mqtt_client_id"),
		MQTTUsername:      v.GetString("mqtt_username"),
		MQTTPassword:      v.GetString("mqtt_password"),
		MQTTTopicPrefix:   v.GetString("mqtt_topic_prefix"),
		NotifyTimeout:     v.GetDuration("notify_timeout"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		DashboardCacheTTL: v.GetDuration("dashboard_cache_ttl"),
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionStore {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	switch c.StorageBackend {
	case "local", "sftp", "ftp":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "sftp" && c.StorageKnownHosts == "" {
		return errors.New("STORAGE_KNOWN_HOSTS must be set for sftp storage")
	}
	if c.GinMode == "release" && c.SessionSecret == "default-secret-key-change-me" {
		return errors.New("SESSION_SECRET must be set in release mode")
	}
	if c.AnalysisWorkers < 1 {
		return errors.New("ANALYSIS_WORKERS must be at least 1")
	}
	return nil
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
