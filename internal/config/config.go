package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single-user mode, every request acts as DefaultUserID
	AuthModeToken AuthMode = "token" // Bearer API tokens looked up in the users table
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Tasks
		Auth
		Storage
		Import
		Credentials
		Flickr
		Google
		Scheduler
	}

	HTTP struct {
		Port           int32
		Host           string
		PublicURL      string   // Base URL used to build OAuth callback URLs
		AllowedOrigins []string // CORS origins, empty disables CORS
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level      string // debug, info, warn, error
		Format     string // json, text
		File       string // Optional rotating log file
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
	Database struct {
		Driver   string // sqlite or postgres
		Path     string // SQLite file path
		DSN      string // PostgreSQL DSN
		LogLevel string // silent, error, warn, info

		MaxIdleConns    int
		MaxOpenConns    int
		ConnMaxLifetime time.Duration
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration // Running tasks older than this are handed to another worker
		CleanupInterval time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
	}
	Storage struct {
		Backend   string // local or s3
		LocalDir  string
		PublicURL string // URL prefix for serving stored objects

		S3Endpoint  string
		S3Region    string
		S3Bucket    string
		S3AccessKey string
		S3SecretKey string
		S3UseSSL    bool
	}
	Import struct {
		PhotoDelay       time.Duration // Minimum spacing between provider requests per (user, provider)
		MaxDownloadBytes int64
		TempDir          string
	}
	Credentials struct {
		EncryptionKey string // base64 32-byte key or passphrase
		KeyFilePath   string
	}
	Flickr struct {
		APIURL  string
		SiteURL string
	}
	Google struct {
		ClientID     string
		ClientSecret string
	}
	Scheduler struct {
		Enabled                   bool
		CredentialRefreshSchedule string        // Cron format: "*/30 * * * *" = every 30 minutes
		RefreshMargin             time.Duration // Refresh tokens expiring within this duration
		StaleImportSchedule       string        // Cron format
		StaleImportAfter          time.Duration // Pending imports older than this are re-enqueued
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("public_url", "http://localhost:8188")
	v.SetDefault("cors_allowed_origins", []string{})
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 100)
	v.SetDefault("log_max_backups", 5)
	v.SetDefault("log_max_age_days", 30)

	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("database_max_open_conns", 20)
	v.SetDefault("database_conn_max_lifetime", "1h")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_lifetime", "1h") // Only OAuth handshakes live in sessions
	v.SetDefault("auth_secure_cookies", true)

	// Storage defaults
	v.SetDefault("storage_backend", "local")
	v.SetDefault("storage_local_dir", DefaultStorageDir)
	v.SetDefault("storage_public_url", "/media")
	v.SetDefault("storage_s3_endpoint", "")
	v.SetDefault("storage_s3_region", "")
	v.SetDefault("storage_s3_bucket", "")
	v.SetDefault("storage_s3_access_key", "")
	v.SetDefault("storage_s3_secret_key", "")
	v.SetDefault("storage_s3_use_ssl", true)

	// Import defaults
	v.SetDefault("import_photo_delay", "500ms")
	v.SetDefault("import_max_download_bytes", int64(512<<20))
	v.SetDefault("import_temp_dir", "")

	v.SetDefault("credentials_encryption_key", "")
	v.SetDefault("credentials_key_file", "")

	v.SetDefault("flickr_api_url", DefaultFlickrAPIURL)
	v.SetDefault("flickr_site_url", DefaultFlickrSiteURL)
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")

	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("credential_refresh_schedule", "*/30 * * * *")
	v.SetDefault("credential_refresh_margin", "15m")
	v.SetDefault("stale_import_schedule", "*/15 * * * *")
	v.SetDefault("stale_import_after", "30m")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "3h")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port:           v.GetInt32("PORT"),
			Host:           v.GetString("HOST"),
			PublicURL:      v.GetString("PUBLIC_URL"),
			AllowedOrigins: v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Database: Database{
			Driver:          v.GetString("DATABASE_DRIVER"),
			Path:            v.GetString("DATABASE_PATH"),
			DSN:             v.GetString("DATABASE_DSN"),
			LogLevel:        v.GetString("DATABASE_LOG_LEVEL"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		Storage: Storage{
			Backend:     v.GetString("STORAGE_BACKEND"),
			LocalDir:    v.GetString("STORAGE_LOCAL_DIR"),
			PublicURL:   v.GetString("STORAGE_PUBLIC_URL"),
			S3Endpoint:  v.GetString("STORAGE_S3_ENDPOINT"),
			S3Region:    v.GetString("STORAGE_S3_REGION"),
			S3Bucket:    v.GetString("STORAGE_S3_BUCKET"),
			S3AccessKey: v.GetString("STORAGE_S3_ACCESS_KEY"),
			S3SecretKey: v.GetString("STORAGE_S3_SECRET_KEY"),
			S3UseSSL:    v.GetBool("STORAGE_S3_USE_SSL"),
		},
		Import: Import{
			PhotoDelay:       v.GetDuration("IMPORT_PHOTO_DELAY"),
			MaxDownloadBytes: v.GetInt64("IMPORT_MAX_DOWNLOAD_BYTES"),
			TempDir:          v.GetString("IMPORT_TEMP_DIR"),
		},
		Credentials: Credentials{
			EncryptionKey: v.GetString("CREDENTIALS_ENCRYPTION_KEY"),
			KeyFilePath:   v.GetString("CREDENTIALS_KEY_FILE"),
		},
		Flickr: Flickr{
			APIURL:  v.GetString("FLICKR_API_URL"),
			SiteURL: v.GetString("FLICKR_SITE_URL"),
		},
		Google: Google{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		},
		Scheduler: Scheduler{
			Enabled:                   v.GetBool("SCHEDULER_ENABLED"),
			CredentialRefreshSchedule: v.GetString("CREDENTIAL_REFRESH_SCHEDULE"),
			RefreshMargin:             v.GetDuration("CREDENTIAL_REFRESH_MARGIN"),
			StaleImportSchedule:       v.GetString("STALE_IMPORT_SCHEDULE"),
			StaleImportAfter:          v.GetDuration("STALE_IMPORT_AFTER"),
		},
	}
}
