package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadDefaultsWhenFilesMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"), filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.DataDir != def.DataDir || cfg.Storage.Driver != "text" || cfg.Report.TTL != 30*time.Minute || !cfg.Seed || cfg.Trace != "none" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "dormcore.yaml", `
data_dir: /var/lib/dorm
seed: false
storage:
  driver: sqlite
  sqlite_path: /var/lib/dorm/state.db
report:
  ttl: 45m
  cache: redis
redis:
  addr: cache:6379
log:
  level: debug
  format: json
`)
	envPath := writeFile(t, dir, ".env", "DORMCORE_REDIS_DB=3\nDORMCORE_LOG_LEVEL=warn\n")
	t.Setenv("DORMCORE_LOG_LEVEL", "error")
	t.Setenv("DORMCORE_EXPORT_DRIVER", "s3")
	t.Setenv("DORMCORE_S3_BUCKET", "dorm-reports")
	t.Setenv("DORMCORE_S3_PATH_STYLE", "true")
	t.Cleanup(func() { _ = os.Unsetenv("DORMCORE_REDIS_DB") })

	cfg, err := Load(yamlPath, envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/dorm" || cfg.Seed || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.Report.TTL != 45*time.Minute || cfg.Report.Cache != "redis" || cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("report settings not applied: %+v", cfg.Report)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf(".env value must reach env overrides, got db %d", cfg.Redis.DB)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("process env must win over .env, got %s", cfg.Log.Level)
	}
	if cfg.Export.Driver != "s3" || cfg.S3.Bucket != "dorm-reports" || !cfg.S3.PathStyle {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Export, cfg.S3)
	}
	if cfg.Redis.Prefix != Default().Redis.Prefix {
		t.Fatalf("unset keys keep defaults")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "storage:\n  driver: mongo\n")
	if _, err := Load(bad, ""); err == nil || !strings.Contains(err.Error(), "storage.driver") {
		t.Fatalf("expected driver validation error, got %v", err)
	}
	broken := writeFile(t, dir, "broken.yaml", "storage: [")
	if _, err := Load(broken, ""); err == nil {
		t.Fatalf("expected parse error")
	}
	tracing := writeFile(t, dir, "trace.yaml", "trace: syslog\n")
	if _, err := Load(tracing, ""); err == nil || !strings.Contains(err.Error(), "trace") {
		t.Fatalf("expected trace validation error, got %v", err)
	}
	t.Setenv("DORMCORE_REPORT_TTL", "soon")
	if _, err := Load("", ""); err == nil || !strings.Contains(err.Error(), "DORMCORE_REPORT_TTL") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}
