package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "base_url: http://ml:9000\npoll_interval: 2s\ntimeout: 10s\nretrain_data_path: /upload_retrain_images\npreview_max_dim: 64\nmock:\n  labels: [a, b]\n  progress_step: 50\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.BaseURL != "http://ml:9000" || cfg.PollInterval.Std() != 2*time.Second || cfg.Timeout.Std() != 10*time.Second || cfg.RetrainDataPath != "/upload_retrain_images" || cfg.PreviewMaxDim != 64 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Mock.Labels) != 2 || cfg.Mock.ProgressStep != 50 {
		t.Fatalf("unexpected mock cfg: %+v", cfg.Mock)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"base_url":"http://ml:7070","poll_interval":"250ms","image_cache_ttl":"0s","log_level":"debug"}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.BaseURL != "http://ml:7070" || cfg.PollInterval.Std() != 250*time.Millisecond || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ImageCacheTTL == nil || cfg.ImageCacheTTL.Std() != 0 {
		t.Fatalf("expected explicit zero cache ttl, got %v", cfg.ImageCacheTTL)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "base_url=\"http://ml:8081\"\npoll_interval=\"1s\"\n[mock]\naddr=\":9999\"\ncors_origins=[\"*\"]\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.BaseURL != "http://ml:8081" || cfg.PollInterval.Std() != time.Second || cfg.Mock.Addr != ":9999" || len(cfg.Mock.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{BaseURL: "http://x"}.WithDefaults()
	if cfg.BaseURL != "http://x" { t.Fatalf("base url overwritten: %s", cfg.BaseURL) }
	if cfg.PollInterval.Std() != 5*time.Second { t.Fatalf("poll interval=%s", cfg.PollInterval.Std()) }
	if cfg.RetrainDataPath != "/upload_retrain_data" { t.Fatalf("retrain path=%s", cfg.RetrainDataPath) }
	if cfg.ImageCacheTTL == nil || cfg.ImageCacheTTL.Std() != 5*time.Minute { t.Fatalf("cache ttl=%v", cfg.ImageCacheTTL) }
	if len(cfg.Mock.Labels) == 0 || cfg.Mock.ProgressStep <= 0 { t.Fatalf("mock defaults missing: %+v", cfg.Mock) }
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IMGCLASS_BASE_URL", "http://env:1")
	t.Setenv("IMGCLASS_LOG_LEVEL", "warn")
	cfg := Default().ApplyEnv()
	if cfg.BaseURL != "http://env:1" || cfg.LogLevel != "warn" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}
