package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"wizqueue/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "OLLAMA_BASE_URL", "OLLAMA_MODEL", "UPLOAD_DIR", "MAX_FILE_SIZE",
		"ALLOWED_FILE_TYPES", "WIZQUEUE_ENV", "WIZQUEUE_API_BIND", "WIZQUEUE_API_TOKEN",
		"WIZQUEUE_JWT_SECRET", "AMQP_URL", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
	} {
		t.Setenv(key, "")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(home, ".local", "share", "wizqueue")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Storage.SQLitePath != filepath.Join(wantData, "wizqueue.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Storage.SQLitePath)
	}
	if cfg.Storage.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Upload.MaxFileSize != 10485760 {
		t.Fatalf("unexpected max file size: %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Upload.RateLimit != 10 || cfg.RateWindow().Minutes() != 15 {
		t.Fatalf("unexpected rate limit: %d per %s", cfg.Upload.RateLimit, cfg.RateWindow())
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" || cfg.Ollama.Model != "llava:latest" {
		t.Fatalf("unexpected ollama settings: %+v", cfg.Ollama)
	}
	if cfg.OllamaTimeout().Seconds() != 120 {
		t.Fatalf("unexpected ollama timeout: %s", cfg.OllamaTimeout())
	}
	if cfg.Rasterize.DPI != 144 {
		t.Fatalf("unexpected dpi: %d", cfg.Rasterize.DPI)
	}
	if cfg.IsProduction() {
		t.Fatal("expected development environment by default")
	}
}

func TestLoadAppliesEnvironmentFallbacks(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://wiz:secret@db:5432/wizqueue?sslmode=disable")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434/")
	t.Setenv("OLLAMA_MODEL", "llama3.2-vision")
	t.Setenv("MAX_FILE_SIZE", "2048")
	t.Setenv("ALLOWED_FILE_TYPES", "application/pdf, Image/PNG")
	t.Setenv("WIZQUEUE_ENV", "production")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Storage.Driver)
	}
	if !strings.HasPrefix(cfg.Storage.PostgresDSN, "postgres://wiz") {
		t.Fatalf("unexpected dsn: %q", cfg.Storage.PostgresDSN)
	}
	if cfg.Ollama.BaseURL != "http://ollama:11434" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "llama3.2-vision" {
		t.Fatalf("unexpected model: %q", cfg.Ollama.Model)
	}
	if cfg.Upload.MaxFileSize != 2048 {
		t.Fatalf("unexpected max file size: %d", cfg.Upload.MaxFileSize)
	}
	if !cfg.IsAllowedType("image/png") || !cfg.IsAllowedType("application/pdf; charset=binary") {
		t.Fatalf("expected allow-list from env, got %v", cfg.Upload.AllowedTypes)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production environment")
	}
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OLLAMA_MODEL", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "wizqueue.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"

[ollama]
model = "from-file"

[processing]
workers = 4
queue_size = 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Ollama.Model != "from-file" {
		t.Fatalf("expected file value to win, got %q", cfg.Ollama.Model)
	}
	if cfg.Paths.UploadDir != filepath.Join(dir, "data", "uploads") {
		t.Fatalf("unexpected upload dir: %q", cfg.Paths.UploadDir)
	}
	if cfg.Processing.Workers != 4 || cfg.Processing.QueueSize != 8 {
		t.Fatalf("unexpected processing settings: %+v", cfg.Processing)
	}
	if cfg.LockPath() != filepath.Join(dir, "data", "wizqueued.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"storage driver", func(c *config.Config) { c.Storage.Driver = "mysql" }, "storage.driver"},
		{"postgres dsn", func(c *config.Config) { c.Storage.Driver = config.DriverPostgres }, "storage.postgres_dsn"},
		{"file size", func(c *config.Config) { c.Upload.MaxFileSize = 0 }, "upload.max_file_size"},
		{"top_p", func(c *config.Config) { c.Ollama.TopP = 1.5 }, "ollama.top_p"},
		{"backend", func(c *config.Config) { c.Rasterize.Backend = "ghostscript" }, "rasterize.backend"},
		{"workers", func(c *config.Config) { c.Processing.Workers = 0 }, "processing.workers"},
		{"amqp url", func(c *config.Config) { c.Processing.Broker = config.BrokerAMQP }, "processing.amqp_url"},
		{"archive", func(c *config.Config) { c.Archive.Enabled = true }, "archive.endpoint"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"environment", func(c *config.Config) { c.API.Environment = "staging" }, "api.environment"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.SQLitePath = "/tmp/wizqueue.db"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Ollama.Model != "llava:latest" {
		t.Fatalf("unexpected sample model: %q", decoded.Ollama.Model)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
