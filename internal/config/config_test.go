package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIELDVAULT_ARCHIVE_ROOT", "/srv/archive")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if want := filepath.Join("/srv/archive", ".fieldvault", "fieldvault.db"); cfg.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, want)
	}
	if cfg.GPSMismatchMeters != DefaultGPSMismatchMeters {
		t.Errorf("GPSMismatchMeters = %v, want %v", cfg.GPSMismatchMeters, DefaultGPSMismatchMeters)
	}
	if cfg.GPSMajorMultiplier != DefaultGPSMajorMultiplier {
		t.Errorf("GPSMajorMultiplier = %v, want %v", cfg.GPSMajorMultiplier, DefaultGPSMajorMultiplier)
	}
	if cfg.ExiftoolPath != "exiftool" {
		t.Errorf("ExiftoolPath = %q, want exiftool", cfg.ExiftoolPath)
	}
	if cfg.GeocodeMismatches {
		t.Error("GeocodeMismatches should default to off")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIELDVAULT_ARCHIVE_ROOT", "/srv/archive")
	t.Setenv("FIELDVAULT_IMPORT_ROOTS", "/mnt/sdcard, /home/me/incoming")
	t.Setenv("FIELDVAULT_GPS_MISMATCH_METERS", "5000")
	t.Setenv("FIELDVAULT_GPS_MAJOR_MULTIPLIER", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.ImportRoots) != 2 || cfg.ImportRoots[0] != "/mnt/sdcard" || cfg.ImportRoots[1] != "/home/me/incoming" {
		t.Errorf("ImportRoots = %v", cfg.ImportRoots)
	}
	if cfg.GPSMismatchMeters != 5000 {
		t.Errorf("GPSMismatchMeters = %v, want 5000", cfg.GPSMismatchMeters)
	}
	if cfg.GPSMajorMultiplier != 2 {
		t.Errorf("GPSMajorMultiplier = %v, want 2", cfg.GPSMajorMultiplier)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "missing archive root",
			mutate:    func(c *Config) { c.ArchiveRoot = "" },
			wantError: true,
		},
		{
			name:      "relative archive root",
			mutate:    func(c *Config) { c.ArchiveRoot = "archive" },
			wantError: true,
		},
		{
			name:      "non-positive threshold",
			mutate:    func(c *Config) { c.GPSMismatchMeters = 0 },
			wantError: true,
		},
		{
			name:      "multiplier below one",
			mutate:    func(c *Config) { c.GPSMajorMultiplier = 0.5 },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ArchiveRoot:        "/srv/archive",
				DatabasePath:       "/srv/archive/.fieldvault/fieldvault.db",
				GPSMismatchMeters:  DefaultGPSMismatchMeters,
				GPSMajorMultiplier: DefaultGPSMajorMultiplier,
				ThumbnailSize:      DefaultThumbnailSize,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
