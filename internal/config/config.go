package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	UploadDir string `toml:"upload_dir"`
	LogDir    string `toml:"log_dir"`
}

// API contains HTTP server settings.
type API struct {
	Bind                   string   `toml:"bind"`
	Token                  string   `toml:"token"`
	JWTSecret              string   `toml:"jwt_secret"`
	Environment            string   `toml:"environment"`
	CORSOrigins            []string `toml:"cors_origins"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
}

// Storage selects the relational store.
type Storage struct {
	Driver         string `toml:"driver"`
	SQLitePath     string `toml:"sqlite_path"`
	PostgresDSN    string `toml:"postgres_dsn"`
	MaxOpenConns   int    `toml:"max_open_conns"`
	ConnectRetries int    `toml:"connect_retries"`
}

// Upload contains invoice upload limits.
type Upload struct {
	MaxFileSize       int64    `toml:"max_file_size"`
	AllowedTypes      []string `toml:"allowed_types"`
	RateLimit         int      `toml:"rate_limit"`
	RateWindowSeconds int      `toml:"rate_window_seconds"`
}

// Ollama contains vision model connection settings.
type Ollama struct {
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
	TopP           float64 `toml:"top_p"`
	RetryAttempts  int     `toml:"retry_attempts"`
}

// Extraction tunes the per-invoice pipeline.
type Extraction struct {
	// PageConcurrency bounds how many pages of one invoice are sent to the
	// model at once. 1 processes pages strictly in order.
	PageConcurrency int `toml:"page_concurrency"`
}

// Rasterize selects how PDF pages become images.
type Rasterize struct {
	Backend        string `toml:"backend"`
	PdftoppmBinary string `toml:"pdftoppm_binary"`
	DPI            int    `toml:"dpi"`
	MaxWidth       int    `toml:"max_width"`
	MaxHeight      int    `toml:"max_height"`
	Grayscale      bool   `toml:"grayscale"`
}

// Processing configures the background invoice workers.
type Processing struct {
	Workers   int    `toml:"workers"`
	QueueSize int    `toml:"queue_size"`
	Broker    string `toml:"broker"`
	AMQPURL   string `toml:"amqp_url"`
	AMQPQueue string `toml:"amqp_queue"`
}

// Archive configures the optional S3-compatible copy of uploaded invoices.
type Archive struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for WizQueue.
//
// Configuration sections by subsystem:
//   - Paths: data, upload and log directories
//   - API: HTTP bind address, auth and environment
//   - Storage: SQLite or PostgreSQL connection
//   - Upload: file size, MIME allow-list and rate limiting
//   - Ollama: vision model endpoint and sampling options
//   - Extraction / Rasterize: PDF to image conversion
//   - Processing: worker pool and optional AMQP broker
//   - Archive: optional object storage copy of uploads
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	API        API        `toml:"api"`
	Storage    Storage    `toml:"storage"`
	Upload     Upload     `toml:"upload"`
	Ollama     Ollama     `toml:"ollama"`
	Extraction Extraction `toml:"extraction"`
	Rasterize  Rasterize  `toml:"rasterize"`
	Processing Processing `toml:"processing"`
	Archive    Archive    `toml:"archive"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wizqueue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first; environment values replace defaults and the file replaces both.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if err := cfg.applyEnvironment(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wizqueue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "wizqueued.lock")
}

// IsProduction reports whether error details should be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.API.Environment == EnvironmentProduction
}

// OllamaTimeout returns the per-request timeout for the vision model.
func (c *Config) OllamaTimeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}

// RateWindow returns the upload rate limiting window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Upload.RateWindowSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.API.ShutdownTimeoutSeconds) * time.Second
}

// IsAllowedType reports whether the MIME type may be uploaded.
func (c *Config) IsAllowedType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	for _, allowed := range c.Upload.AllowedTypes {
		if allowed == mime {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
