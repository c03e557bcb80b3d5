package models

import (
	"math"
	"time"
)

// MediaKind is the closed set of archive media categories. Classification
// is total: anything that is not an image, video or map file is a document.
type MediaKind string

const (
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindMap      MediaKind = "map"
	KindDocument MediaKind = "document"
)

// Prefix returns the short folder prefix used in archive paths.
func (k MediaKind) Prefix() string {
	switch k {
	case KindImage:
		return "img"
	case KindVideo:
		return "vid"
	case KindMap:
		return "map"
	default:
		return "doc"
	}
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate holds a usable position.
// (0, 0) is treated as the unset sentinel.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return true
}

// ExtractedMetadata is the transient per-file bag built by the metadata
// extractors. Kind selects which of the optional fields are meaningful:
// images use the dimension/camera fields, videos additionally use the
// duration/codec/fps fields. Maps and documents never carry one.
type ExtractedMetadata struct {
	Kind         MediaKind
	Width        int
	Height       int
	DateTaken    *time.Time
	CameraMake   string
	CameraModel  string
	DurationSec  float64
	Codec        string
	FPS          float64
	Coordinate   *Coordinate
	RawExif      string // JSON tag bag, empty when no EXIF was found
	RawContainer string // JSON container tag bag (videos only)
}

// MediaCommon holds the columns shared by all four media record tables.
// Digest is unique per table, i.e. per media kind.
type MediaCommon struct {
	ID            uint    `gorm:"primaryKey"`
	Digest        string  `gorm:"size:64;uniqueIndex;not null"`
	ArchivePath   string  `gorm:"not null"`
	SourcePath    string
	OriginalName  string
	LocationID    string  `gorm:"size:36;index;not null"`
	SubLocationID *string `gorm:"size:36"`
	ImportedBy    string
	ImportedAt    time.Time
}

// MediaRecord is satisfied by the four kind-specific row types.
type MediaRecord interface {
	Kind() MediaKind
}

type ImageRecord struct {
	MediaCommon
	Width       int
	Height      int
	DateTaken   *time.Time
	CameraMake  string
	CameraModel string
	Latitude    *float64
	Longitude   *float64
	RawExif     string
}

func (ImageRecord) Kind() MediaKind { return KindImage }

type VideoRecord struct {
	MediaCommon
	DurationSec  float64
	Codec        string
	FPS          float64
	Width        int
	Height       int
	DateTaken    *time.Time
	Latitude     *float64
	Longitude    *float64
	RawExif      string
	RawContainer string
}

func (VideoRecord) Kind() MediaKind { return KindVideo }

type MapRecord struct {
	MediaCommon
}

func (MapRecord) Kind() MediaKind { return KindMap }

type DocumentRecord struct {
	MediaCommon
}

func (DocumentRecord) Kind() MediaKind { return KindDocument }
