package services

import (
	"context"
	"log/slog"

	"fieldvault/internal/models"
	"fieldvault/internal/utils"
)

// ImageMetadataService extracts EXIF-style metadata from an image file.
// Failures are never fatal to an import; the caller treats them as "no
// metadata".
type ImageMetadataService interface {
	Extract(ctx context.Context, path string) (*models.ExtractedMetadata, error)
}

// VideoMetadataService extracts container metadata from a video file.
type VideoMetadataService interface {
	Extract(ctx context.Context, path string) (*models.ExtractedMetadata, error)
}

// ExifExtractor is the goexif/goheif backed image extractor.
type ExifExtractor struct{}

func (ExifExtractor) Extract(ctx context.Context, path string) (*models.ExtractedMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return utils.ExtractImageMetadata(path)
}

// ExiftoolExtractor shells out to the exiftool binary for video metadata.
type ExiftoolExtractor struct {
	Path string // binary name or path, normally "exiftool"
}

func (e ExiftoolExtractor) Extract(ctx context.Context, path string) (*models.ExtractedMetadata, error) {
	return utils.ExtractVideoMetadata(ctx, e.Path, path)
}

// MetadataService orchestrates the two extractors and merges their outputs
// per media kind. Maps and documents never carry extracted metadata.
type MetadataService struct {
	images ImageMetadataService
	videos VideoMetadataService
	log    *slog.Logger
}

func NewMetadataService(images ImageMetadataService, videos VideoMetadataService, log *slog.Logger) *MetadataService {
	if log == nil {
		log = slog.Default()
	}
	return &MetadataService{images: images, videos: videos, log: log}
}

// Extract returns the merged metadata for a file, or nil when the kind
// carries none or every extractor failed. Extraction failure is logged and
// downgraded; it must never fail an import.
func (m *MetadataService) Extract(ctx context.Context, path string, kind models.MediaKind) *models.ExtractedMetadata {
	switch kind {
	case models.KindImage:
		md, err := m.images.Extract(ctx, path)
		if err != nil {
			m.log.Debug("image metadata extraction failed", "path", path, "error", err)
			return nil
		}
		return md
	case models.KindVideo:
		return m.extractVideo(ctx, path)
	default:
		return nil
	}
}

// Video containers rarely embed GPS directly, so EXIF-style sidecar
// metadata is probed as well and its coordinate and capture time win over
// the container's.
func (m *MetadataService) extractVideo(ctx context.Context, path string) *models.ExtractedMetadata {
	md, vidErr := m.videos.Extract(ctx, path)
	if vidErr != nil {
		m.log.Debug("video metadata extraction failed", "path", path, "error", vidErr)
		md = nil
	}

	if sidecar, err := m.images.Extract(ctx, path); err == nil && sidecar != nil {
		if md == nil {
			md = &models.ExtractedMetadata{Kind: models.KindVideo}
		}
		if sidecar.Coordinate != nil {
			md.Coordinate = sidecar.Coordinate
		}
		if md.DateTaken == nil && sidecar.DateTaken != nil {
			md.DateTaken = sidecar.DateTaken
		}
		if sidecar.RawExif != "" {
			md.RawExif = sidecar.RawExif
		}
	}

	if md != nil {
		md.Kind = models.KindVideo
	}
	return md
}
