package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	DBDriver string
	DSN      string

	SessionSecret string
	SecureCookies bool
	AuthDisabled  bool

	GoogleKey         string
	GoogleSecret      string
	GoogleCallbackURL string

	MediaBackend string
	MediaFolder  string

	// Cloudflare R2
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	PublicURL       string

	// MinIO
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioPublicHost string
	MinioSecure     bool

	ImageNormalize    bool
	ImageMaxDimension int

	LogLevel  string
	LogFormat string
}

// Load reads .env files when present, then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	maxDim, err := intEnv("IMAGE_MAX_DIMENSION", 1024)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     env("PORT", "3000"),
		DBDriver: env("DB_DRIVER", "postgres"),
		DSN:      os.Getenv("DSN"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SecureCookies: boolEnv("SECURE_COOKIES"),
		AuthDisabled:  boolEnv("AUTH_DISABLED"),

		GoogleKey:         os.Getenv("GOOGLE_KEY"),
		GoogleSecret:      os.Getenv("GOOGLE_SECRET"),
		GoogleCallbackURL: env("GOOGLE_CALLBACK_URL", "http://localhost:3000/auth/google/callback"),

		MediaBackend: env("MEDIA_BACKEND", "r2"),
		MediaFolder:  env("MEDIA_FOLDER", "notes-app"),

		AccountID:       os.Getenv("ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("ACCESS_KEY_ID"),
		AccessKeySecret: os.Getenv("ACCESS_KEY_SECRET"),
		BucketName:      os.Getenv("BUCKET_NAME"),
		PublicURL:       os.Getenv("PUBLIC_URL"),

		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioPublicHost: os.Getenv("MINIO_PUBLIC_HOST"),
		MinioSecure:     boolEnv("MINIO_SECURE"),

		ImageNormalize:    boolEnv("IMAGE_NORMALIZE"),
		ImageMaxDimension: maxDim,

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "text"),
	}, nil
}

// Validate reports every missing key needed by the selected backends.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	require("DSN", c.DSN)
	require("SESSION_SECRET", c.SessionSecret)
	if !c.AuthDisabled {
		require("GOOGLE_KEY", c.GoogleKey)
		require("GOOGLE_SECRET", c.GoogleSecret)
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.MediaBackend {
	case "r2":
		require("ACCOUNT_ID", c.AccountID)
		require("ACCESS_KEY_ID", c.AccessKeyID)
		require("ACCESS_KEY_SECRET", c.AccessKeySecret)
		require("BUCKET_NAME", c.BucketName)
		require("PUBLIC_URL", c.PublicURL)
	case "minio":
		require("MINIO_ENDPOINT", c.MinioEndpoint)
		require("MINIO_ACCESS_KEY", c.MinioAccessKey)
		require("MINIO_SECRET_KEY", c.MinioSecretKey)
		require("BUCKET_NAME", c.BucketName)
	default:
		return fmt.Errorf("unsupported MEDIA_BACKEND %q", c.MediaBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}
