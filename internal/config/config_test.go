package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.UpstreamURL != "http://localhost:11434" || cfg.DefaultModel != "llama3.2" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := FromEnv(Default(), envMap(map[string]string{
		"OLLAMA_URL":                 "http://gpu-box:11434/",
		"MODEL_NAME":                 "mistral",
		"RELAYD_ADDR":                ":9090",
		"RELAYD_LINE_MODE":           "chunk",
		"RELAYD_REQUEST_TIMEOUT_SEC": "12",
	}))
	if cfg.UpstreamURL != "http://gpu-box:11434/" || cfg.DefaultModel != "mistral" || cfg.Addr != ":9090" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.LineMode != LineModeChunk || cfg.RequestTimeout() != 12*time.Second {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.UpstreamBase() != "http://gpu-box:11434" {
		t.Fatalf("UpstreamBase=%q", cfg.UpstreamBase())
	}
}

func TestFromEnv_UnsetKeepsFallbacks(t *testing.T) {
	cfg := FromEnv(Default(), envMap(nil))
	def := Default()
	if cfg.UpstreamURL != def.UpstreamURL || cfg.DefaultModel != def.DefaultModel || cfg.Addr != def.Addr || cfg.LineMode != def.LineMode {
		t.Fatalf("unexpected change: %+v", cfg)
	}
}

func TestFromEnv_BadTimeoutIgnored(t *testing.T) {
	cfg := FromEnv(Default(), envMap(map[string]string{"RELAYD_REQUEST_TIMEOUT_SEC": "soon"}))
	if cfg.RequestTimeoutSec != Default().RequestTimeoutSec {
		t.Fatalf("timeout=%d", cfg.RequestTimeoutSec)
	}
}

func TestOverlay(t *testing.T) {
	base := Default()
	got := Overlay(base, Config{DefaultModel: "qwen", ReadBufferBytes: 16, CORS: CORS{Enabled: true, AllowedOrigins: []string{"*"}}})
	if got.DefaultModel != "qwen" || got.ReadBufferBytes != 16 {
		t.Fatalf("overlay not applied: %+v", got)
	}
	if got.UpstreamURL != base.UpstreamURL || got.Addr != base.Addr {
		t.Fatalf("overlay clobbered unset fields: %+v", got)
	}
	if !got.CORS.Enabled || got.CORS.AllowedOrigins[0] != "*" {
		t.Fatalf("cors=%+v", got.CORS)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"scheme":   func(c *Config) { c.UpstreamURL = "ftp://host" },
		"host":     func(c *Config) { c.UpstreamURL = "http://" },
		"parse":    func(c *Config) { c.UpstreamURL = "http://[::1" },
		"model":    func(c *Config) { c.DefaultModel = "  " },
		"linemode": func(c *Config) { c.LineMode = "sideways" },
		"timeout":  func(c *Config) { c.RequestTimeoutSec = -1 },
		"size":     func(c *Config) { c.MaxLineBytes = -1 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg := Default()
	cfg.LineMode = "sideways"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("err=%v", err)
	}
}
