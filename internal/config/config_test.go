package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Config{
		DefaultProfile: "work",
		Endpoint:       Endpoint{URL: "wss://relay.example/ws", PingInterval: 15 * time.Second},
		Conversations:  []Conversation{{ID: "9", Name: "Ops Bot"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Endpoint.PingInterval != 15*time.Second {
		t.Errorf("PingInterval = %v, want 15s", loaded.Endpoint.PingInterval)
	}
	if len(loaded.Conversations) != 1 || loaded.Conversations[0].Name != "Ops Bot" {
		t.Errorf("Conversations = %+v", loaded.Conversations)
	}
}

func TestLoadDurationsFromText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[network]\nprobe_addr = \"1.1.1.1:443\"\nprobe_interval = \"250ms\"\n\n[delivery]\nredial = false\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.ApplyDefaults()
	if cfg.Network.ProbeInterval != 250*time.Millisecond {
		t.Errorf("ProbeInterval = %v, want 250ms", cfg.Network.ProbeInterval)
	}
	if cfg.RedialEnabled() {
		t.Error("RedialEnabled() = true, want false from file")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Endpoint.PingInterval != 30*time.Second {
		t.Errorf("PingInterval = %v, want 30s", cfg.Endpoint.PingInterval)
	}
	if !cfg.AutoConnect() || !cfg.RedialEnabled() || !cfg.JournalEnabled() {
		t.Error("switches should default to on")
	}
	seeds := cfg.Seeds()
	if len(seeds) != 3 || seeds[0].Name != "Support Bot" || seeds[2].Name != "Feedback Bot" {
		t.Errorf("Seeds() = %+v, want the three default bots", seeds)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BOTCHAT_ENDPOINT_URL", "wss://env.example/ws")
	t.Setenv("BOTCHAT_API_KEY", "secret")
	t.Setenv("BOTCHAT_PROBE_INTERVAL", "3s")
	t.Setenv("BOTCHAT_JOURNAL_ENABLED", "false")

	cfg := &Config{Endpoint: Endpoint{URL: "ws://file/ws"}}
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Endpoint.URL != "wss://env.example/ws" {
		t.Errorf("URL = %q, want env override", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.APIKey != "secret" {
		t.Errorf("APIKey = %q, want secret", cfg.Endpoint.APIKey)
	}
	if cfg.Network.ProbeInterval != 3*time.Second {
		t.Errorf("ProbeInterval = %v, want 3s", cfg.Network.ProbeInterval)
	}
	if cfg.JournalEnabled() {
		t.Error("JournalEnabled() = true, want false from env")
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("BOTCHAT_LOG_LEVEL=debug\nBOTCHAT_PROFILE=fromfile\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOTCHAT_PROFILE", "fromenv")
	t.Setenv("BOTCHAT_LOG_LEVEL", "")
	os.Unsetenv("BOTCHAT_LOG_LEVEL")

	if err := LoadDotEnv(file); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("BOTCHAT_LOG_LEVEL"); got != "debug" {
		t.Errorf("BOTCHAT_LOG_LEVEL = %q, want debug", got)
	}
	if got := os.Getenv("BOTCHAT_PROFILE"); got != "fromenv" {
		t.Errorf("BOTCHAT_PROFILE = %q, want existing value kept", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env: got %v, want nil", err)
	}
}
