package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"wizqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Storage points at a SQLite file inside the temp dir and the API binds to a
// random port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Driver = config.DriverSQLite
	cfgVal.Storage.SQLitePath = filepath.Join(base, "data", "wizqueue.db")
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithProduction switches the API environment to production.
func WithProduction() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Environment = config.EnvironmentProduction
	}
}

// WithUploadLimits overrides the upload size cap and rate limit.
func WithUploadLimits(maxSize int64, rateLimit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.MaxFileSize = maxSize
		b.cfg.Upload.RateLimit = rateLimit
	}
}

// WithStubbedBinaries writes executable shell scripts under a temp bin
// directory and prepends it to PATH. The map value is the script body; an
// empty body exits 0.
func WithStubbedBinaries(scripts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		for name, body := range scripts {
			WriteStubBinary(b.t, binDir, name, body)
		}
		prependPath(b.t, binDir)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
