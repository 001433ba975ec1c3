// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// isolateConfigDirs keeps the test away from any real pointguard.yaml in
// the user config directory.
func isolateConfigDirs(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func testCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("store.dir", "", "")
	cmd.Flags().String("language", "", "")
	return cmd
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	isolateConfigDirs(t)
	defaults := map[string]any{
		"store.dir":        "/tmp/store",
		"clip_time":        45,
		"generated_length": 25,
		"language":         "en",
	}
	cfg, err := LoadConfig[Config](testCmd(), defaults, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Store.Dir != "/tmp/store" {
		t.Errorf("Store.Dir = %q", cfg.Store.Dir)
	}
	if cfg.ClipTime != 45 || cfg.GeneratedLength != 25 {
		t.Errorf("ClipTime = %d, GeneratedLength = %d", cfg.ClipTime, cfg.GeneratedLength)
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q", cfg.Language)
	}
}

func TestLoadConfigEnvOverridesDefaults(t *testing.T) {
	isolateConfigDirs(t)
	t.Setenv("POINTGUARD_CLIP_TIME", "10")
	t.Setenv("POINTGUARD_STORE_DIR", "/srv/secrets")

	defaults := map[string]any{
		"store.dir": "/tmp/store",
		"clip_time": 45,
	}
	cfg, err := LoadConfig[Config](testCmd(), defaults, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ClipTime != 10 {
		t.Errorf("ClipTime = %d, want 10 from environment", cfg.ClipTime)
	}
	if cfg.Store.Dir != "/srv/secrets" {
		t.Errorf("Store.Dir = %q, want /srv/secrets from environment", cfg.Store.Dir)
	}
}

func TestLoadConfigExplicitFileWins(t *testing.T) {
	isolateConfigDirs(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "pointguard.yaml")
	content := "clip_time: 7\nstore:\n  dir: " + filepath.Join(dir, "store") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	defaults := map[string]any{"clip_time": 45}
	cfg, err := LoadConfig[Config](testCmd(), defaults, &path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ClipTime != 7 {
		t.Errorf("ClipTime = %d, want 7 from file", cfg.ClipTime)
	}
	if cfg.Store.Dir != filepath.Join(dir, "store") {
		t.Errorf("Store.Dir = %q", cfg.Store.Dir)
	}
}
