package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fieldvault/internal/models"
	"fieldvault/internal/utils"
)

// RecordStore is the narrow persistence contract the import pipeline
// consumes: transaction scopes, location lookup, the duplicate index and
// the record writer. *Store satisfies it.
type RecordStore interface {
	Begin(ctx context.Context) (*Tx, error)
	FindLocation(tx *Tx, id string) (*models.Location, error)
	MediaExists(tx *Tx, digest string, kind models.MediaKind) (bool, error)
	InsertMediaRecord(tx *Tx, rec models.MediaRecord) error
	InsertImportSession(tx *Tx, session *models.ImportSession) (string, error)
}

// Importer runs the per-file import sequence: resolve location, sanitize,
// hash, classify, duplicate check, extract metadata, organize into the
// archive, persist the record, optionally delete the original.
type Importer struct {
	store     RecordStore
	hasher    ContentHasher
	metadata  *MetadataService
	organizer *Organizer
	thumbs    *Thumbnailer      // optional
	geocoder  *GeocodingService // optional, annotates mismatch warnings
	gpsMeters float64
	gpsMajor  float64
	log       *slog.Logger
}

func NewImporter(
	store RecordStore,
	hasher ContentHasher,
	metadata *MetadataService,
	organizer *Organizer,
	thumbs *Thumbnailer,
	geocoder *GeocodingService,
	gpsMismatchMeters, gpsMajorMultiplier float64,
	log *slog.Logger,
) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		store:     store,
		hasher:    hasher,
		metadata:  metadata,
		organizer: organizer,
		thumbs:    thumbs,
		geocoder:  geocoder,
		gpsMeters: gpsMismatchMeters,
		gpsMajor:  gpsMajorMultiplier,
		log:       log,
	}
}

// ImportOne imports a single file inside the batch's transaction scope.
// Every failure is reported through the result; it never aborts the batch.
func (imp *Importer) ImportOne(ctx context.Context, tx *Tx, file models.ImportFileInput, deleteOriginal bool) models.ImportResult {
	// Until classification happens, a failing file reports as a document.
	kind := models.KindDocument

	loc, err := imp.store.FindLocation(tx, file.LocationID)
	if err != nil {
		return failedResult(kind, err)
	}

	name := file.OriginalName
	if name == "" {
		name = filepath.Base(file.SourcePath)
	}
	name = utils.SanitizeFilename(name)

	digest, err := imp.hasher.Hash(ctx, file.SourcePath)
	if err != nil {
		return failedResult(kind, err)
	}

	kind = utils.ClassifyFilename(name)

	// Duplicate check comes before any expensive or side-effecting work:
	// a duplicate gets no extraction, no copy and no record.
	exists, err := imp.store.MediaExists(tx, digest, kind)
	if err != nil {
		return failedResult(kind, err)
	}
	if exists {
		imp.log.Info("duplicate content skipped", "digest", digest, "kind", kind, "source", file.SourcePath)
		return models.ImportResult{Success: true, Duplicate: true, Digest: digest, Kind: kind}
	}

	md := imp.metadata.Extract(ctx, file.SourcePath, kind)
	gps := imp.reconcileGPS(ctx, loc, md)

	ext := filepath.Ext(name)
	archivePath, err := imp.organizer.Place(ctx, file.SourcePath, loc, kind, digest, ext)
	if err != nil {
		return failedResult(kind, err)
	}

	rec := buildRecord(file, loc, kind, digest, archivePath, name, md)
	if err := imp.store.InsertMediaRecord(tx, rec); err != nil {
		return failedResult(kind, err)
	}

	if kind == models.KindImage && imp.thumbs != nil {
		if err := imp.thumbs.Generate(archivePath, digest); err != nil {
			imp.log.Debug("thumbnail generation failed", "digest", digest, "error", err)
		}
	}

	// Only after the record is in: the file is safely archived, so a
	// failed deletion is logged and does not fail the import.
	if deleteOriginal {
		if err := os.Remove(file.SourcePath); err != nil {
			imp.log.Warn("failed to delete original after import", "source", file.SourcePath, "error", err)
		}
	}

	return models.ImportResult{
		Success:     true,
		Digest:      digest,
		Kind:        kind,
		ArchivePath: archivePath,
		GPS:         gps,
	}
}

// Compares the location's declared coordinate with the media's embedded
// one. Returns nil unless a mismatch was actually flagged.
func (imp *Importer) reconcileGPS(ctx context.Context, loc *models.Location, md *models.ExtractedMetadata) *models.GPSWarning {
	if md == nil || md.Coordinate == nil {
		return nil
	}

	warning := utils.Reconcile(loc.Coordinate(), *md.Coordinate, imp.gpsMeters, imp.gpsMajor)
	if !warning.Mismatch {
		return nil
	}

	if imp.geocoder != nil {
		if place, err := imp.geocoder.ReverseGeocode(ctx, *md.Coordinate); err == nil {
			warning.Place = place
		}
	}

	imp.log.Info("gps mismatch flagged",
		"location", loc.ID,
		"distance_m", warning.DistanceMeters,
		"severity", warning.Severity,
	)
	return &warning
}

func failedResult(kind models.MediaKind, err error) models.ImportResult {
	return models.ImportResult{Kind: kind, Err: err}
}

// Folds the transient metadata into the kind-specific record shape.
func buildRecord(file models.ImportFileInput, loc *models.Location, kind models.MediaKind, digest, archivePath, name string, md *models.ExtractedMetadata) models.MediaRecord {
	common := models.MediaCommon{
		Digest:        digest,
		ArchivePath:   archivePath,
		SourcePath:    file.SourcePath,
		OriginalName:  name,
		LocationID:    loc.ID,
		SubLocationID: file.SubLocationID,
		ImportedBy:    file.Author,
		ImportedAt:    time.Now(),
	}

	switch kind {
	case models.KindImage:
		rec := &models.ImageRecord{MediaCommon: common}
		if md != nil {
			rec.Width = md.Width
			rec.Height = md.Height
			rec.DateTaken = md.DateTaken
			rec.CameraMake = md.CameraMake
			rec.CameraModel = md.CameraModel
			rec.RawExif = md.RawExif
			if md.Coordinate != nil {
				rec.Latitude = &md.Coordinate.Lat
				rec.Longitude = &md.Coordinate.Lng
			}
		}
		return rec
	case models.KindVideo:
		rec := &models.VideoRecord{MediaCommon: common}
		if md != nil {
			rec.DurationSec = md.DurationSec
			rec.Codec = md.Codec
			rec.FPS = md.FPS
			rec.Width = md.Width
			rec.Height = md.Height
			rec.DateTaken = md.DateTaken
			rec.RawExif = md.RawExif
			rec.RawContainer = md.RawContainer
			if md.Coordinate != nil {
				rec.Latitude = &md.Coordinate.Lat
				rec.Longitude = &md.Coordinate.Lng
			}
		}
		return rec
	case models.KindMap:
		return &models.MapRecord{MediaCommon: common}
	default:
		return &models.DocumentRecord{MediaCommon: common}
	}
}
