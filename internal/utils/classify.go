package utils

import (
	"path/filepath"
	"strings"

	"fieldvault/internal/models"
)

// Extension tables are pure configuration data, checked in a fixed
// priority order: image, then video, then map. Anything unrecognized is
// archived as a document; no file format is rejected.

var imageExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {}, "webp": {},
	"tif": {}, "tiff": {}, "heic": {}, "heif": {}, "avif": {},
	"dng": {}, "cr2": {}, "cr3": {}, "nef": {}, "arw": {}, "orf": {}, "rw2": {}, "raf": {},
}

var videoExtensions = map[string]struct{}{
	"mp4": {}, "mov": {}, "m4v": {}, "avi": {}, "mkv": {}, "webm": {},
	"mpg": {}, "mpeg": {}, "mts": {}, "m2ts": {}, "wmv": {}, "flv": {}, "3gp": {},
}

var mapExtensions = map[string]struct{}{
	"gpx": {}, "kml": {}, "kmz": {}, "geojson": {}, "topojson": {},
	"osm": {}, "mbtiles": {}, "shp": {},
}

// Classify maps a file extension (with or without leading dot, any case)
// to a media kind. The function is total: unknown extensions classify as
// document.
func Classify(extension string) models.MediaKind {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))

	if _, ok := imageExtensions[ext]; ok {
		return models.KindImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return models.KindVideo
	}
	if _, ok := mapExtensions[ext]; ok {
		return models.KindMap
	}
	return models.KindDocument
}

// ClassifyFilename classifies by the filename's extension.
func ClassifyFilename(name string) models.MediaKind {
	return Classify(filepath.Ext(name))
}

// IsHeifLike reports whether the extension names a HEIC/HEIF container.
func IsHeifLike(ext string) bool {
	e := strings.ToLower(strings.TrimPrefix(ext, "."))
	return e == "heic" || e == "heif"
}
