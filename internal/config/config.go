package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rpggio/saraban/internal/domain/registry"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Blob      BlobConfig      `yaml:"blob"`
	Directory DirectoryConfig `yaml:"directory"`
	Registry  RegistryConfig  `yaml:"registry"`
	Engine    EngineConfig    `yaml:"engine"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TransportConfig selects between the streamable HTTP and stdio MCP transports.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RedisConfig enables the Redis sequence store when URL is set.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// BlobConfig selects where attachments and signatures are stored.
type BlobConfig struct {
	Backend string   `yaml:"backend"` // sqlite or s3
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// DirectoryConfig points at the personnel and policy YAML files. Empty
// paths fall back to built-in defaults.
type DirectoryConfig struct {
	PersonnelPath string `yaml:"personnel_path"`
	PoliciesPath  string `yaml:"policies_path"`
}

type RegistryConfig struct {
	Calendar  registry.Calendar            `yaml:"calendar"`
	Templates map[string]registry.Template `yaml:"templates"`
}

type EngineConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("SARABAN_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MetricsPath: "/metrics",
		},
		DB: DBConfig{
			Path: "saraban.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Redis: RedisConfig{
			Prefix: "saraban",
		},
		Blob: BlobConfig{
			Backend: "sqlite",
		},
		Registry: RegistryConfig{
			Calendar: registry.CalendarFiscalBE,
		},
		Engine: EngineConfig{
			MaxRetries: 5,
		},
	}
}

// Validate checks values that cannot be corrected silently.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Blob.Backend {
	case "sqlite":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob backend s3 requires a bucket")
		}
	default:
		return fmt.Errorf("invalid blob backend %q", c.Blob.Backend)
	}
	if !c.Registry.Calendar.Valid() {
		return fmt.Errorf("invalid registry calendar %q", c.Registry.Calendar)
	}
	if c.Engine.MaxRetries < 1 {
		return fmt.Errorf("engine max_retries must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("SARABAN_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("SARABAN_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid SARABAN_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("SARABAN_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("SARABAN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("SARABAN_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if v := os.Getenv("SARABAN_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SARABAN_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if url := os.Getenv("SARABAN_REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if url := os.Getenv("SARABAN_NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}
	if backend := os.Getenv("SARABAN_BLOB_BACKEND"); backend != "" {
		cfg.Blob.Backend = backend
	}
	if bucket := os.Getenv("SARABAN_S3_BUCKET"); bucket != "" {
		cfg.Blob.S3.Bucket = bucket
	}
	if region := os.Getenv("SARABAN_S3_REGION"); region != "" {
		cfg.Blob.S3.Region = region
	}
	if endpoint := os.Getenv("SARABAN_S3_ENDPOINT"); endpoint != "" {
		cfg.Blob.S3.Endpoint = endpoint
		cfg.Blob.S3.UsePathStyle = true
	}
	if path := os.Getenv("SARABAN_PERSONNEL_PATH"); path != "" {
		cfg.Directory.PersonnelPath = path
	}
	if path := os.Getenv("SARABAN_POLICIES_PATH"); path != "" {
		cfg.Directory.PoliciesPath = path
	}
	if cal := os.Getenv("SARABAN_SCOPE_CALENDAR"); cal != "" {
		cfg.Registry.Calendar = registry.Calendar(cal)
	}
	if v := os.Getenv("SARABAN_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SARABAN_MAX_RETRIES: %w", err)
		}
		cfg.Engine.MaxRetries = n
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
