package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Bucket: "backups",
		KeyID:  "key-id",
		AppKey: "app-key",
		Root:   "/data",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing bucket",
			mutate:  func(c *Config) { c.Bucket = "" },
			wantErr: true,
		},
		{
			name:    "missing key id",
			mutate:  func(c *Config) { c.KeyID = "" },
			wantErr: true,
		},
		{
			name:    "missing app key",
			mutate:  func(c *Config) { c.AppKey = "" },
			wantErr: true,
		},
		{
			name:    "missing root",
			mutate:  func(c *Config) { c.Root = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsConfigured(t *testing.T) {
	empty := Config{}
	if empty.IsConfigured() {
		t.Error("empty config should not be configured")
	}

	partial := Config{Bucket: "backups", KeyID: "key"}
	if partial.IsConfigured() {
		t.Error("partial config should not be configured")
	}

	full := Config{Bucket: "backups", KeyID: "key", AppKey: "secret", Root: "/data"}
	if !full.IsConfigured() {
		t.Error("full config should be configured")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IsConfigured() {
		t.Error("missing file should yield empty config")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	want := Config{
		Bucket:       "backups",
		Endpoint:     "s3.us-west-004.backblazeb2.com",
		KeyID:        "key-id",
		AppKey:       "app-key",
		Root:         "/data/photos",
		Versioning:   true,
		ScheduleType: "WEEKLY",
		ScheduleTime: "09:00",
		ScheduleDays: "MON,FRI",
		WebhookURL:   "https://discord.com/api/webhooks/1/abc",
	}

	if err := want.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, want)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("{not yaml::"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed config")
	}
}
