package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ArchiveRoot        string   // root of the on-disk archive tree
	ImportRoots        []string // allow-list of directories files may be imported from
	DatabasePath       string   // sqlite database file
	GPSMismatchMeters  float64  // distance at which a GPS mismatch is flagged at all
	GPSMajorMultiplier float64  // mismatch beyond threshold*multiplier reads as major
	GeocodeMismatches  bool     // annotate mismatch warnings with a reverse-geocoded place name
	ExiftoolPath       string   // exiftool binary for video container metadata
	ThumbnailSize      int      // bounding box for generated image thumbnails
}

const (
	DefaultGPSMismatchMeters  = 10000.0
	DefaultGPSMajorMultiplier = 1.1
	DefaultThumbnailSize      = 320
)

// Load reads configuration from environment variables and .env file.
// It loads the .env file if present, then populates the Config struct.
// Returns an error if required configuration is missing.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ArchiveRoot:        getEnv("FIELDVAULT_ARCHIVE_ROOT", ""),
		ImportRoots:        getList("FIELDVAULT_IMPORT_ROOTS", []string{}),
		DatabasePath:       getEnv("FIELDVAULT_DB_PATH", ""),
		GPSMismatchMeters:  getFloatEnv("FIELDVAULT_GPS_MISMATCH_METERS", DefaultGPSMismatchMeters),
		GPSMajorMultiplier: getFloatEnv("FIELDVAULT_GPS_MAJOR_MULTIPLIER", DefaultGPSMajorMultiplier),
		GeocodeMismatches:  getBoolEnv("FIELDVAULT_GEOCODE_MISMATCHES", false),
		ExiftoolPath:       getEnv("FIELDVAULT_EXIFTOOL_PATH", "exiftool"),
		ThumbnailSize:      getIntEnv("FIELDVAULT_THUMBNAIL_SIZE", DefaultThumbnailSize),
	}

	if cfg.DatabasePath == "" && cfg.ArchiveRoot != "" {
		cfg.DatabasePath = filepath.Join(cfg.ArchiveRoot, ".fieldvault", "fieldvault.db")
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.ArchiveRoot == "" {
		return fmt.Errorf("FIELDVAULT_ARCHIVE_ROOT is required")
	}
	if !filepath.IsAbs(c.ArchiveRoot) {
		return fmt.Errorf("FIELDVAULT_ARCHIVE_ROOT must be an absolute path")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("FIELDVAULT_DB_PATH is required")
	}
	if c.GPSMismatchMeters <= 0 {
		return fmt.Errorf("FIELDVAULT_GPS_MISMATCH_METERS must be positive")
	}
	if c.GPSMajorMultiplier < 1 {
		return fmt.Errorf("FIELDVAULT_GPS_MAJOR_MULTIPLIER must be >= 1")
	}
	if c.ThumbnailSize <= 0 {
		return fmt.Errorf("FIELDVAULT_THUMBNAIL_SIZE must be positive")
	}
	return nil
}

// Retrieves an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// Retrieves a float from environment variable or returns a default value.
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// Retrieves an integer from environment variable or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Retrieves a comma-separated list from environment variable or returns a default value.
func getList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// Retrieves a boolean from environment variable or returns a default value.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
