package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// applyEnvironment layers the service's environment variables over defaults.
func (c *Config) applyEnvironment() error {
	if value, ok := lookupEnv("DATABASE_URL"); ok {
		lower := strings.ToLower(value)
		switch {
		case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
			c.Storage.Driver = DriverPostgres
			c.Storage.PostgresDSN = value
		default:
			c.Storage.Driver = DriverSQLite
			c.Storage.SQLitePath = strings.TrimPrefix(value, "sqlite://")
		}
	}
	if value, ok := lookupEnv("OLLAMA_BASE_URL"); ok {
		c.Ollama.BaseURL = value
	}
	if value, ok := lookupEnv("OLLAMA_MODEL"); ok {
		c.Ollama.Model = value
	}
	if value, ok := lookupEnv("UPLOAD_DIR"); ok {
		c.Paths.UploadDir = value
	}
	if value, ok := lookupEnv("MAX_FILE_SIZE"); ok {
		size, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		c.Upload.MaxFileSize = size
	}
	if value, ok := lookupEnv("ALLOWED_FILE_TYPES"); ok {
		c.Upload.AllowedTypes = strings.Split(value, ",")
	}
	if value, ok := lookupEnv("WIZQUEUE_ENV"); ok {
		c.API.Environment = value
	}
	if value, ok := lookupEnv("WIZQUEUE_API_BIND"); ok {
		c.API.Bind = value
	}
	if value, ok := lookupEnv("WIZQUEUE_API_TOKEN"); ok {
		c.API.Token = value
	}
	if value, ok := lookupEnv("WIZQUEUE_JWT_SECRET"); ok {
		c.API.JWTSecret = value
	}
	if value, ok := lookupEnv("AMQP_URL"); ok {
		c.Processing.AMQPURL = value
	}
	if value, ok := lookupEnv("MINIO_ACCESS_KEY"); ok {
		c.Archive.AccessKey = value
	}
	if value, ok := lookupEnv("MINIO_SECRET_KEY"); ok {
		c.Archive.SecretKey = value
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeUpload()
	c.normalizeOllama()
	c.normalizeRasterize()
	c.normalizeProcessing()
	c.normalizeArchive()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = filepath.Join(c.Paths.DataDir, "uploads")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.API.JWTSecret = strings.TrimSpace(c.API.JWTSecret)
	c.API.Environment = strings.ToLower(strings.TrimSpace(c.API.Environment))
	if c.API.Environment == "" {
		c.API.Environment = EnvironmentDevelopment
	}
	c.API.CORSOrigins = trimList(c.API.CORSOrigins, false)
	if c.API.ShutdownTimeoutSeconds <= 0 {
		c.API.ShutdownTimeoutSeconds = defaultShutdownTimeout
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	c.Storage.PostgresDSN = strings.TrimSpace(c.Storage.PostgresDSN)
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
	}
	var err error
	if c.Storage.SQLitePath, err = expandPath(c.Storage.SQLitePath); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	if c.Storage.MaxOpenConns <= 0 {
		c.Storage.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Storage.ConnectRetries <= 0 {
		c.Storage.ConnectRetries = defaultConnectRetries
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.AllowedTypes = trimList(c.Upload.AllowedTypes, true)
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = append([]string(nil), defaultAllowedTypes...)
	}
}

func (c *Config) normalizeOllama() {
	c.Ollama.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ollama.BaseURL), "/")
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = defaultOllamaBaseURL
	}
	c.Ollama.Model = strings.TrimSpace(c.Ollama.Model)
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaultOllamaModel
	}
}

func (c *Config) normalizeRasterize() {
	c.Rasterize.Backend = strings.ToLower(strings.TrimSpace(c.Rasterize.Backend))
	if c.Rasterize.Backend == "" {
		c.Rasterize.Backend = BackendPoppler
	}
	c.Rasterize.PdftoppmBinary = strings.TrimSpace(c.Rasterize.PdftoppmBinary)
	if c.Rasterize.PdftoppmBinary == "" {
		c.Rasterize.PdftoppmBinary = defaultPdftoppmBinary
	}
}

func (c *Config) normalizeProcessing() {
	c.Processing.Broker = strings.ToLower(strings.TrimSpace(c.Processing.Broker))
	if c.Processing.Broker == "" {
		c.Processing.Broker = BrokerMemory
	}
	c.Processing.AMQPURL = strings.TrimSpace(c.Processing.AMQPURL)
	c.Processing.AMQPQueue = strings.TrimSpace(c.Processing.AMQPQueue)
	if c.Processing.AMQPQueue == "" {
		c.Processing.AMQPQueue = defaultAMQPQueue
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	if c.Archive.Bucket == "" {
		c.Archive.Bucket = defaultArchiveBucket
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func trimList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if lower {
			value = strings.ToLower(value)
		}
		out = append(out, value)
	}
	return out
}
