package daemonrun_test

import (
	"context"
	"testing"

	"wizqueue/internal/config"
	"wizqueue/internal/daemonrun"
	"wizqueue/internal/logging"
	"wizqueue/internal/testsupport"
)

type stubModel struct{}

func (stubModel) Generate(context.Context, string, ...string) (string, error) {
	return "[]", nil
}

func TestNewPipelineBackends(t *testing.T) {
	for _, backend := range []string{config.BackendPoppler, config.BackendPDFCPU} {
		cfg := testsupport.NewConfig(t)
		cfg.Rasterize.Backend = backend
		pipeline, err := daemonrun.NewPipeline(cfg, stubModel{}, logging.NewNop())
		if err != nil {
			t.Fatalf("%s: NewPipeline: %v", backend, err)
		}
		if pipeline == nil {
			t.Fatalf("%s: expected pipeline", backend)
		}
	}
}

func TestNewPipelineRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Rasterize.Backend = "ghostscript"
	if _, err := daemonrun.NewPipeline(cfg, stubModel{}, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := daemonrun.Run(context.Background(), nil, daemonrun.Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
