package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := []byte("#!/bin/sh\n" + body + "\n")
	if err := os.WriteFile(path, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("blank command detail = %q", results[2].Detail)
	}
}

func TestCheckBinariesVersion(t *testing.T) {
	binDir := t.TempDir()
	stderr := writeStub(t, binDir, "pdftoppm", "echo '' >&2\necho 'pdftoppm version 24.02.0' >&2\nexit 0")
	failing := writeStub(t, binDir, "silent", "exit 3")

	results := CheckBinaries(context.Background(), []Requirement{
		{Name: "pdftoppm", Command: stderr, VersionArgs: []string{"-v"}},
		{Name: "silent", Command: failing, VersionArgs: []string{"--version"}},
	})
	if got := results[0].Version; got != "pdftoppm version 24.02.0" {
		t.Fatalf("version = %q", got)
	}
	if results[1].Version != "" || !results[1].Available {
		t.Fatalf("silent binary = %#v", results[1])
	}
}

func TestMissing(t *testing.T) {
	statuses := []Status{
		{Name: "ok", Available: true},
		{Name: "optional", Optional: true},
		{Name: "required"},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "required" {
		t.Fatalf("Missing = %#v", missing)
	}
}
