package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEMA_ROOT", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8090" {
		t.Errorf("Port = %s, want 8090", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %s, want development", cfg.Env)
	}
	if cfg.Refresh.Enabled {
		t.Error("Refresh.Enabled should default to false")
	}
	if cfg.CalendarRefCode != "005930" {
		t.Errorf("CalendarRefCode = %s, want 005930", cfg.CalendarRefCode)
	}
	if cfg.Tema.RecordPath == "" {
		t.Error("Tema.RecordPath should default under TEMA_ROOT")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "invalid env value",
			env:     map[string]string{"ENV": "prod"},
			wantErr: true,
		},
		{
			name:    "zero crawl pages",
			env:     map[string]string{"CRAWL_PAGES": "0"},
			wantErr: true,
		},
		{
			name:    "explicit production env",
			env:     map[string]string{"ENV": "production"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("TEMA_ROOT", t.TempDir())
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Clearenv()
	os.Setenv("FLAG_TRUE", "true")
	os.Setenv("FLAG_BAD", "maybe")

	if !getEnvAsBool("FLAG_TRUE", false) {
		t.Error("FLAG_TRUE should parse as true")
	}
	if getEnvAsBool("FLAG_BAD", false) {
		t.Error("unparseable value should fall back to default")
	}
	if !getEnvAsBool("FLAG_MISSING", true) {
		t.Error("missing key should fall back to default")
	}
}
