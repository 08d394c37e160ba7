package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every runtime knob. Values resolve in three layers:
// built-in defaults, then the optional YAML file named by PLOTLINE_CONFIG,
// then environment variables.
type Config struct {
	Addr       string
	DataDir    string // project repositories root
	ScriptsDir string // template logic scripts
	BackupDir  string
	LockPath   string
	CORSOrigin string

	MeiliURL        string
	MeiliMasterKey  string
	SearchIndexPath string // sqlite fallback index

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	BackupPassphrase string

	EvalWindow      time.Duration
	EvalMaxAttempts int
	EvalTimeout     time.Duration

	WatchDebounce time.Duration
}

// fileConfig is the YAML shape. Durations are plain integers so the file
// stays editable without unit suffixes.
type fileConfig struct {
	Addr                string `yaml:"addr"`
	DataDir             string `yaml:"data_dir"`
	ScriptsDir          string `yaml:"scripts_dir"`
	BackupDir           string `yaml:"backup_dir"`
	LockPath            string `yaml:"lock_path"`
	CORSOrigin          string `yaml:"cors_origin"`
	MeiliURL            string `yaml:"meili_url"`
	MeiliMasterKey      string `yaml:"meili_master_key"`
	SearchIndexPath     string `yaml:"search_index_path"`
	MinioEndpoint       string `yaml:"minio_endpoint"`
	MinioAccessKey      string `yaml:"minio_access_key"`
	MinioSecretKey      string `yaml:"minio_secret_key"`
	MinioBucket         string `yaml:"minio_bucket"`
	MinioUseSSL         *bool  `yaml:"minio_use_ssl"`
	BackupPassphrase    string `yaml:"backup_passphrase"`
	EvalWindowSeconds   int    `yaml:"eval_window_seconds"`
	EvalMaxAttempts     int    `yaml:"eval_max_attempts"`
	EvalTimeoutSeconds  int    `yaml:"eval_timeout_seconds"`
	WatchDebounceMillis int    `yaml:"watch_debounce_ms"`
}

func Load() (Config, error) {
	cfg := Config{
		Addr:            ":8600",
		DataDir:         "./data/projects",
		ScriptsDir:      "./data/scripts",
		BackupDir:       "./data/backups",
		LockPath:        "./data/plotline.lock",
		CORSOrigin:      "*",
		MeiliURL:        "http://localhost:7700",
		MeiliMasterKey:  "plotline-meili-key",
		SearchIndexPath: "./data/search.db",
		MinioBucket:     "plotline-backups",
		EvalWindow:      10 * time.Minute,
		EvalMaxAttempts: 5,
		EvalTimeout:     5 * time.Second,
		WatchDebounce:   500 * time.Millisecond,
	}

	if path := os.Getenv("PLOTLINE_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Addr = getenv("PLOTLINE_ADDR", cfg.Addr)
	cfg.DataDir = getenv("PLOTLINE_DATA_DIR", cfg.DataDir)
	cfg.ScriptsDir = getenv("PLOTLINE_SCRIPTS_DIR", cfg.ScriptsDir)
	cfg.BackupDir = getenv("PLOTLINE_BACKUP_DIR", cfg.BackupDir)
	cfg.LockPath = getenv("PLOTLINE_LOCK_PATH", cfg.LockPath)
	cfg.CORSOrigin = getenv("PLOTLINE_CORS_ORIGIN", cfg.CORSOrigin)
	cfg.MeiliURL = getenv("MEILI_URL", cfg.MeiliURL)
	cfg.MeiliMasterKey = getenv("MEILI_MASTER_KEY", cfg.MeiliMasterKey)
	cfg.SearchIndexPath = getenv("PLOTLINE_SEARCH_INDEX", cfg.SearchIndexPath)
	cfg.MinioEndpoint = getenv("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioAccessKey = getenv("MINIO_ACCESS_KEY", cfg.MinioAccessKey)
	cfg.MinioSecretKey = getenv("MINIO_SECRET_KEY", cfg.MinioSecretKey)
	cfg.MinioBucket = getenv("PLOTLINE_BACKUP_BUCKET", cfg.MinioBucket)
	cfg.MinioUseSSL = getenvBool("MINIO_USE_SSL", cfg.MinioUseSSL)
	cfg.BackupPassphrase = getenv("PLOTLINE_BACKUP_PASSPHRASE", cfg.BackupPassphrase)
	cfg.EvalWindow = time.Duration(getenvInt("PLOTLINE_EVAL_WINDOW_SECONDS", int(cfg.EvalWindow/time.Second))) * time.Second
	cfg.EvalMaxAttempts = getenvInt("PLOTLINE_EVAL_MAX_ATTEMPTS", cfg.EvalMaxAttempts)
	cfg.EvalTimeout = time.Duration(getenvInt("PLOTLINE_EVAL_TIMEOUT_SECONDS", int(cfg.EvalTimeout/time.Second))) * time.Second
	cfg.WatchDebounce = time.Duration(getenvInt("PLOTLINE_WATCH_DEBOUNCE_MS", int(cfg.WatchDebounce/time.Millisecond))) * time.Millisecond

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if file.Addr != "" {
		cfg.Addr = file.Addr
	}
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
	}
	if file.ScriptsDir != "" {
		cfg.ScriptsDir = file.ScriptsDir
	}
	if file.BackupDir != "" {
		cfg.BackupDir = file.BackupDir
	}
	if file.LockPath != "" {
		cfg.LockPath = file.LockPath
	}
	if file.CORSOrigin != "" {
		cfg.CORSOrigin = file.CORSOrigin
	}
	if file.MeiliURL != "" {
		cfg.MeiliURL = file.MeiliURL
	}
	if file.MeiliMasterKey != "" {
		cfg.MeiliMasterKey = file.MeiliMasterKey
	}
	if file.SearchIndexPath != "" {
		cfg.SearchIndexPath = file.SearchIndexPath
	}
	if file.MinioEndpoint != "" {
		cfg.MinioEndpoint = file.MinioEndpoint
	}
	if file.MinioAccessKey != "" {
		cfg.MinioAccessKey = file.MinioAccessKey
	}
	if file.MinioSecretKey != "" {
		cfg.MinioSecretKey = file.MinioSecretKey
	}
	if file.MinioBucket != "" {
		cfg.MinioBucket = file.MinioBucket
	}
	if file.MinioUseSSL != nil {
		cfg.MinioUseSSL = *file.MinioUseSSL
	}
	if file.BackupPassphrase != "" {
		cfg.BackupPassphrase = file.BackupPassphrase
	}
	if file.EvalWindowSeconds > 0 {
		cfg.EvalWindow = time.Duration(file.EvalWindowSeconds) * time.Second
	}
	if file.EvalMaxAttempts > 0 {
		cfg.EvalMaxAttempts = file.EvalMaxAttempts
	}
	if file.EvalTimeoutSeconds > 0 {
		cfg.EvalTimeout = time.Duration(file.EvalTimeoutSeconds) * time.Second
	}
	if file.WatchDebounceMillis > 0 {
		cfg.WatchDebounce = time.Duration(file.WatchDebounceMillis) * time.Millisecond
	}
	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
