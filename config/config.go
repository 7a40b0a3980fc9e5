package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	AWS      AWSConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// StorageConfig selects where the key-value slots live.
type StorageConfig struct {
	Driver    string // memory | redis | postgres
	KeyPrefix string // prepended to keys on the redis driver
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/comunidad?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// RedisConfig holds Redis connection settings. Addr empty disables Redis (no pub/sub, no job queue).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AuthConfig decides who may sign in as admin.
type AuthConfig struct {
	AdminNames        []string
	AdminPasscodeHash string // bcrypt; empty disables the passcode check
}

// AWSConfig holds AWS credentials and the snapshots bucket. An empty bucket disables snapshots.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	SnapshotsBucket      string
	PresignExpireMinutes int
	// Endpoint points the client at an S3-compatible server such as MinIO.
	Endpoint string
}

// WorkerConfig controls snapshot scheduling.
type WorkerConfig struct {
	SnapshotOnChange bool // enqueue a snapshot job after every write
	InProcess        bool // run the snapshot processor inside the API server
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", "comunidad:"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "comunidad"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Auth: AuthConfig{
			AdminNames:        splitTrim(getEnv("AUTH_ADMIN_NAMES", "kevin,admin"), ","),
			AdminPasscodeHash: getEnv("AUTH_ADMIN_PASSCODE_HASH", ""),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SnapshotsBucket:      getEnv("AWS_S3_SNAPSHOTS_BUCKET", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Worker: WorkerConfig{
			SnapshotOnChange: getEnvBool("SNAPSHOT_ON_CHANGE", false),
			InProcess:        getEnvBool("WORKER_IN_PROCESS", false),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the binaries cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("STORAGE_DRIVER=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want memory, redis or postgres)", c.Storage.Driver)
	}
	if c.Worker.SnapshotOnChange && c.Redis.Addr == "" {
		return fmt.Errorf("SNAPSHOT_ON_CHANGE requires REDIS_ADDR")
	}
	if c.JWT.ExpireHours <= 0 {
		return fmt.Errorf("JWT_EXPIRE_HOURS must be positive")
	}
	return nil
}

// SnapshotsEnabled reports whether an S3 bucket is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.AWS.SnapshotsBucket != ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
