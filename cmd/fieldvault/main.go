package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fieldvault/internal/config"
	"fieldvault/internal/models"
	"fieldvault/internal/services"
)

func main() {
	logger := log.New(os.Stdout, "[FieldVault] ", log.LstdFlags)

	addLocation := flag.String("add-location", "", "Create a location with the given display name and exit")
	lat := flag.Float64("lat", 0, "Location latitude (with -add-location)")
	lng := flag.Float64("lng", 0, "Location longitude (with -add-location)")
	state := flag.String("state", "", "Location state code (with -add-location)")
	locType := flag.String("type", "", "Location physical type (with -add-location)")
	locationID := flag.String("location", "", "Location id to import files into")
	author := flag.String("author", "", "Importing author identifier")
	deleteOriginals := flag.Bool("delete-originals", false, "Delete source files after a successful import")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	store, err := services.OpenStore(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *addLocation != "" {
		loc := &models.Location{
			DisplayName:  *addLocation,
			State:        *state,
			LocationType: *locType,
		}
		if *lat != 0 || *lng != 0 {
			loc.Latitude = lat
			loc.Longitude = lng
		}
		if err := store.CreateLocation(ctx, loc); err != nil {
			logger.Fatalf("create location: %v", err)
		}
		logger.Printf("✅ Created location %q id=%s code=%s", loc.DisplayName, loc.ID, loc.LocationCode)
		return
	}

	paths := flag.Args()
	if *locationID == "" || len(paths) == 0 {
		logger.Println("Usage: fieldvault -location <id> [-author <id>] [-delete-originals] <file>...")
		logger.Println("       fieldvault -add-location <name> [-lat -lng -state -type]")
		os.Exit(2)
	}

	files := make([]models.ImportFileInput, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			logger.Fatalf("resolve %s: %v", p, err)
		}
		files = append(files, models.ImportFileInput{
			SourcePath:   abs,
			OriginalName: filepath.Base(p),
			LocationID:   *locationID,
			Author:       *author,
		})
	}

	svc := buildImportService(cfg, store)

	result, err := svc.ImportBatch(ctx, files, *deleteOriginals, func(index, total int, res models.ImportResult) {
		name := filepath.Base(files[index-1].SourcePath)
		switch {
		case res.Err != nil:
			logger.Printf("❌ [%d/%d] %s: %v", index, total, name, res.Err)
		case res.Duplicate:
			logger.Printf("♻️  [%d/%d] %s: duplicate of %s/%s", index, total, name, res.Kind, shortDigest(res.Digest))
		default:
			line := fmt.Sprintf("✅ [%d/%d] %s -> %s", index, total, name, res.ArchivePath)
			if res.GPS != nil {
				line += fmt.Sprintf(" (GPS %s mismatch, %.1f km off%s)",
					res.GPS.Severity, res.GPS.DistanceMeters/1000, placeSuffix(res.GPS.Place))
			}
			logger.Print(line)
		}
	})
	if err != nil {
		logger.Fatalf("import batch rejected: %v", err)
	}

	logger.Printf("Done: session=%s imported=%d duplicates=%d errors=%d",
		result.SessionID, result.Imported, result.Duplicates, result.Errors)
}

func buildImportService(cfg *config.Config, store *services.Store) *services.ImportService {
	hasher := services.SHA256Hasher{}
	metadata := services.NewMetadataService(
		services.ExifExtractor{},
		services.ExiftoolExtractor{Path: cfg.ExiftoolPath},
		nil,
	)
	organizer := services.NewOrganizer(cfg.ArchiveRoot, hasher, nil)
	thumbs := services.NewThumbnailer(cfg.ArchiveRoot, cfg.ThumbnailSize, nil)

	var geocoder *services.GeocodingService
	if cfg.GeocodeMismatches {
		geocoder = services.NewGeocodingService()
	}

	importer := services.NewImporter(
		store, hasher, metadata, organizer, thumbs, geocoder,
		cfg.GPSMismatchMeters, cfg.GPSMajorMultiplier,
		nil,
	)
	return services.NewImportService(store, importer, cfg.ArchiveRoot, cfg.ImportRoots, nil)
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func placeSuffix(place string) string {
	if place == "" {
		return ""
	}
	return ", near " + strings.TrimSpace(place)
}
