package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Costing.YieldEpsilon != 0.01 {
		t.Errorf("YieldEpsilon = %v, want 0.01", cfg.Costing.YieldEpsilon)
	}
	if cfg.Editor.Debounce() != 300*time.Millisecond {
		t.Errorf("Debounce() = %v, want 300ms", cfg.Editor.Debounce())
	}
	if cfg.Editor.ReloadTimeout() != 30*time.Second {
		t.Errorf("ReloadTimeout() = %v, want 30s", cfg.Editor.ReloadTimeout())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:  "Empty input keeps defaults",
			input: "",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Costing.FetchConcurrency != 4 {
					t.Errorf("FetchConcurrency = %d, want 4", cfg.Costing.FetchConcurrency)
				}
			},
		},
		{
			name: "Overrides",
			input: `
[kitchen]
name = "Bistro"

[costing]
yield_epsilon = 0.5
fetch_concurrency = 8

[editor]
debounce_ms = 50
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Kitchen.Name != "Bistro" {
					t.Errorf("Name = %q", cfg.Kitchen.Name)
				}
				if cfg.Costing.YieldEpsilon != 0.5 || cfg.Costing.FetchConcurrency != 8 {
					t.Errorf("Costing = %+v", cfg.Costing)
				}
				if cfg.Costing.MaxReportedErrors != 5 {
					t.Errorf("unset MaxReportedErrors = %d, want default 5", cfg.Costing.MaxReportedErrors)
				}
				if cfg.Editor.Debounce() != 50*time.Millisecond {
					t.Errorf("Debounce() = %v", cfg.Editor.Debounce())
				}
			},
		},
		{
			name:    "Invalid concurrency",
			input:   "[costing]\nfetch_concurrency = 0\n",
			wantErr: "fetch_concurrency must be positive",
		},
		{
			name:    "Invalid log level",
			input:   "[logging]\nlevel = \"loud\"\n",
			wantErr: "invalid log level",
		},
		{
			name:    "Several errors are joined",
			input:   "[kitchen]\nname = \"\"\n[database]\npath = \"\"\n",
			wantErr: "path is required",
		},
		{
			name:    "Malformed TOML",
			input:   "[costing\n",
			wantErr: "parsing TOML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	content := "[kitchen]\nname = \"Test Kitchen\"\n[catalog]\nseed_file = \"seed.yaml\"\n"
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, loadedFrom, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedFrom != path {
		t.Errorf("loaded from %q, want %q", loadedFrom, path)
	}
	if cfg.Kitchen.Name != "Test Kitchen" {
		t.Errorf("Name = %q", cfg.Kitchen.Name)
	}
	if want := filepath.Join(dir, "seed.yaml"); cfg.Catalog.SeedFile != want {
		t.Errorf("SeedFile = %q, want %q", cfg.Catalog.SeedFile, want)
	}
}

func TestLoad_LoadError(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), false)

	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("want *LoadError, got %v", err)
	}
}

func TestLoad_CreatesDefaultUnderXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	chdir(t, t.TempDir())

	cfg, path, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, XDGSubdir, DefaultConfigFileName); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.Kitchen.Name != Default().Kitchen.Name {
		t.Errorf("Name = %q", cfg.Kitchen.Name)
	}

	// The written file loads back.
	again, _, err := Load(path, false)
	if err != nil {
		t.Fatalf("reloading saved default: %v", err)
	}
	if again.Costing != cfg.Costing {
		t.Errorf("round trip changed costing: %+v vs %+v", again.Costing, cfg.Costing)
	}
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	cfg := Default()
	path, err := EnsureDataDir(cfg)
	if err != nil {
		t.Fatalf("EnsureDataDir: %v", err)
	}
	if want := filepath.Join(dir, XDGSubdir, "larder.db"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	backups, err := BackupDir(path)
	if err != nil {
		t.Fatalf("BackupDir: %v", err)
	}
	if info, err := os.Stat(backups); err != nil || !info.IsDir() {
		t.Errorf("backup dir not created: %v", err)
	}
}

// chdir changes the working directory for the rest of the test and restores
// it on cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
