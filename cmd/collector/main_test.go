package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestRunRejectedReturnsExitCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"REQUEST_NOT_PROCESSED","message":["daily threshold reached"],"Results":{}}`)
	}))
	defer server.Close()
	t.Setenv("BLS_BASE_URL", server.URL)
	t.Setenv("LABORDASH_DB", "")

	dir := t.TempDir()
	out := filepath.Join(dir, "bls_data.csv")
	previous := []byte("date,Unemployment Rate\n2020-01-01,3.5\n")
	if err := os.WriteFile(out, previous, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "labordash.toml")
	if err := os.WriteFile(cfg, []byte("[log]\nlevel = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	metricsFile := filepath.Join(dir, "labordash.prom")

	if code := run([]string{"-config", cfg, "-out", out, "-metrics-file", metricsFile}); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(previous) {
		t.Errorf("rejected run replaced the table:\n%s", data)
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}
}
