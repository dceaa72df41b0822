package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"-"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"sslmode"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// MinIOConfig holds object storage settings for the S3 content store backend.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Content store backends.
const (
	BackendIPFS = "ipfs"
	BackendS3   = "s3"
)

// ContentStoreConfig holds settings for the content-addressable backing store.
// It is handed to the store client at construction and lives as long as that client.
type ContentStoreConfig struct {
	Backend        string        `yaml:"backend"`
	IPFSAPIURL     string        `yaml:"ipfs_api_url"`
	GatewayURL     string        `yaml:"gateway_url"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`
	TempDir        string        `yaml:"temp_dir"`
}

// Validate reports configuration errors that would make the store unusable.
func (c ContentStoreConfig) Validate() error {
	switch c.Backend {
	case BackendIPFS:
		if c.IPFSAPIURL == "" {
			return fmt.Errorf("ipfs api url is required")
		}
	case BackendS3:
	default:
		return fmt.Errorf("unsupported content store backend %q", c.Backend)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("content store call timeout must be positive")
	}
	return nil
}

// DefaultMaxUploadSize is the request body cap when MAX_UPLOAD_SIZE is unset.
const DefaultMaxUploadSize = 512 << 20

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"-"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost string `yaml:"app_host"`
	Port    string `yaml:"port"`
	// MaxUploadSize caps request bodies in bytes, multipart overhead included.
	MaxUploadSize int                `yaml:"max_upload_size"`
	Database      DatabaseConfig     `yaml:"database"`
	MinIO         MinIOConfig        `yaml:"minio"`
	ContentStore  ContentStoreConfig `yaml:"content_store"`
	Auth          AuthConfig         `yaml:"-"`
	Log           LogConfig          `yaml:"log"`
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          getEnv("PORT", "8080"),
		MaxUploadSize: getEnvInt("MAX_UPLOAD_SIZE", DefaultMaxUploadSize),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		ContentStore: ContentStoreConfig{
			Backend:        getEnv("CONTENT_STORE_BACKEND", BackendIPFS),
			IPFSAPIURL:     getEnv("IPFS_API_URL", "http://127.0.0.1:5001"),
			GatewayURL:     getEnv("IPFS_GATEWAY_URL", "https://ipfs.io"),
			CallTimeout:    getEnvDuration("CONTENT_STORE_CALL_TIMEOUT", 30*time.Second),
			GatewayTimeout: getEnvDuration("IPFS_GATEWAY_TIMEOUT", 30*time.Second),
			TempDir:        getEnv("CONTENT_STORE_TEMP_DIR", os.TempDir()),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET_KEY", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// LoadFile reads a YAML config file and overlays environment variables on top of it.
// Secrets (passwords, keys) are only ever read from the environment.
func LoadFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fileCfg AppConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Load()
	overlay(cfg, &fileCfg)
	return cfg, nil
}

// overlay copies values from the file into cfg unless the corresponding env var is set.
func overlay(cfg, file *AppConfig) {
	setString(&cfg.AppHost, file.AppHost, "APP_HOST")
	setString(&cfg.Port, file.Port, "PORT")
	setInt(&cfg.MaxUploadSize, file.MaxUploadSize, "MAX_UPLOAD_SIZE")

	setString(&cfg.Database.Host, file.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, file.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, file.Database.User, "DB_USER")
	setString(&cfg.Database.Name, file.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, file.Database.SSLMode, "DB_SSLMODE")
	setInt(&cfg.Database.MaxOpenConns, file.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	setInt(&cfg.Database.MaxIdleConns, file.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS")
	setInt(&cfg.Database.ConnMaxLifetimeSec, file.Database.ConnMaxLifetimeSec, "DB_CONN_MAX_LIFETIME_SEC")

	setString(&cfg.MinIO.Endpoint, file.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinIO.Bucket, file.MinIO.Bucket, "MINIO_BUCKET")
	if file.MinIO.UseSSL && os.Getenv("MINIO_USE_SSL") == "" {
		cfg.MinIO.UseSSL = true
	}

	setString(&cfg.ContentStore.Backend, file.ContentStore.Backend, "CONTENT_STORE_BACKEND")
	setString(&cfg.ContentStore.IPFSAPIURL, file.ContentStore.IPFSAPIURL, "IPFS_API_URL")
	setString(&cfg.ContentStore.GatewayURL, file.ContentStore.GatewayURL, "IPFS_GATEWAY_URL")
	setString(&cfg.ContentStore.TempDir, file.ContentStore.TempDir, "CONTENT_STORE_TEMP_DIR")
	setDuration(&cfg.ContentStore.CallTimeout, file.ContentStore.CallTimeout, "CONTENT_STORE_CALL_TIMEOUT")
	setDuration(&cfg.ContentStore.GatewayTimeout, file.ContentStore.GatewayTimeout, "IPFS_GATEWAY_TIMEOUT")

	setString(&cfg.Log.Level, file.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, file.Log.Format, "LOG_FORMAT")
}

func setString(dst *string, v, envKey string) {
	if v != "" && os.Getenv(envKey) == "" {
		*dst = v
	}
}

func setInt(dst *int, v int, envKey string) {
	if v != 0 && os.Getenv(envKey) == "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration, envKey string) {
	if v != 0 && os.Getenv(envKey) == "" {
		*dst = v
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
