package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by STORE_BACKEND and BLOB_BACKEND.
const (
	BackendFirebase = "firebase"
	BackendMongo    = "mongo"
	BackendFile     = "file"
	BackendDisk     = "disk"
)

// Auth modes accepted by AUTH_MODE.
const (
	AuthFirebase = "firebase"
	AuthLocal    = "local"
)

type Config struct {
	ServerAddress  string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	AuthMode      string
	JWTSecret     string
	JWTExpiration time.Duration
	AccountsFile  string

	StoreBackend string
	BlobBackend  string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	StorageBucket           string

	MongoURI string
	MongoDB  string

	DataDir         string
	UploadDir       string
	PublicBaseURL   string
	MaxUploadSizeMB int64

	SessionIdleTimeout time.Duration
	EmptyStateImageURL string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS"),

		AuthMode:      strings.ToLower(getEnv("AUTH_MODE", AuthFirebase)),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiration: getDuration("JWT_EXPIRATION", 24*time.Hour),
		AccountsFile:  getEnv("ACCOUNTS_FILE", "./accounts.yaml"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendFirebase)),
		BlobBackend:  strings.ToLower(getEnv("BLOB_BACKEND", BackendFirebase)),

		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		StorageBucket:           os.Getenv("FIREBASE_STORAGE_BUCKET"),

		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getEnv("MONGO_DB", "twee"),

		DataDir:         getEnv("DATA_DIR", "./data"),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		MaxUploadSizeMB: getInt64("MAX_UPLOAD_SIZE_MB", 10),

		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		EmptyStateImageURL: getEnv("EMPTY_STATE_IMAGE_URL",
			"https://www.solidbackgrounds.com/images/851x315/851x315-white-solid-color-background.jpg"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AuthMode {
	case AuthFirebase:
	case AuthLocal:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=local")
		}
		if c.JWTExpiration <= 0 {
			return fmt.Errorf("JWT_EXPIRATION must be positive when AUTH_MODE=local, got %s", c.JWTExpiration)
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	switch c.StoreBackend {
	case BackendFirebase, BackendFile:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.BlobBackend {
	case BackendFirebase:
		if c.StorageBucket == "" {
			return fmt.Errorf("FIREBASE_STORAGE_BUCKET is required when BLOB_BACKEND=firebase")
		}
	case BackendDisk:
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// UsesFirebase reports whether any component needs a Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.AuthMode == AuthFirebase || c.StoreBackend == BackendFirebase || c.BlobBackend == BackendFirebase
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getList splits a comma separated variable, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getInt64(key string, defaultValue int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
