package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateOllama(); err != nil {
		return err
	}
	if err := c.validateRasterize(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	switch c.API.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return fmt.Errorf("api.environment: unsupported value %q", c.API.Environment)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path must be set")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required when storage.driver is postgres (or set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("storage.driver: unsupported value %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxFileSize <= 0 {
		return errors.New("upload.max_file_size must be positive")
	}
	if c.Upload.RateLimit <= 0 {
		return errors.New("upload.rate_limit must be positive")
	}
	if c.Upload.RateWindowSeconds <= 0 {
		return errors.New("upload.rate_window_seconds must be positive")
	}
	return nil
}

func (c *Config) validateOllama() error {
	if c.Ollama.TimeoutSeconds <= 0 {
		return errors.New("ollama.timeout_seconds must be positive")
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		return errors.New("ollama.temperature must be between 0 and 2")
	}
	if c.Ollama.TopP <= 0 || c.Ollama.TopP > 1 {
		return errors.New("ollama.top_p must be in (0, 1]")
	}
	if c.Ollama.RetryAttempts < 1 {
		return errors.New("ollama.retry_attempts must be at least 1")
	}
	if c.Extraction.PageConcurrency < 1 {
		return errors.New("extraction.page_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateRasterize() error {
	switch c.Rasterize.Backend {
	case BackendPoppler, BackendPDFCPU:
	default:
		return fmt.Errorf("rasterize.backend: unsupported value %q", c.Rasterize.Backend)
	}
	if c.Rasterize.DPI < 36 || c.Rasterize.DPI > 600 {
		return errors.New("rasterize.dpi must be between 36 and 600")
	}
	if c.Rasterize.MaxWidth < 0 || c.Rasterize.MaxHeight < 0 {
		return errors.New("rasterize.max_width and rasterize.max_height must not be negative")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.Workers < 1 {
		return errors.New("processing.workers must be at least 1")
	}
	if c.Processing.QueueSize < 1 {
		return errors.New("processing.queue_size must be at least 1")
	}
	switch c.Processing.Broker {
	case BrokerMemory:
	case BrokerAMQP:
		if c.Processing.AMQPURL == "" {
			return errors.New("processing.amqp_url is required when processing.broker is amqp (or set AMQP_URL)")
		}
	default:
		return fmt.Errorf("processing.broker: unsupported value %q", c.Processing.Broker)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Endpoint == "" {
		return errors.New("archive.endpoint is required when archive is enabled")
	}
	if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
		return errors.New("archive.access_key and archive.secret_key are required when archive is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
