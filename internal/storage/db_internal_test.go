package storage

import "testing"

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{DialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{DialectPostgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tc := range tests {
		if got := rebind(tc.dialect, tc.in); got != tc.want {
			t.Fatalf("rebind(%s, %q) = %q, want %q", tc.dialect, tc.in, got, tc.want)
		}
	}
}

func TestRedactDSN(t *testing.T) {
	got := redactDSN("postgres://wiz:secret@db:5432/wizqueue")
	if got != "postgres://wiz:xxxxx@db:5432/wizqueue" {
		t.Fatalf("unexpected redacted dsn: %q", got)
	}
}
