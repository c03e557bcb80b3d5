package models

import "time"

// ImportFileInput describes one caller-supplied file in an import batch.
type ImportFileInput struct {
	SourcePath    string // absolute path on disk
	OriginalName  string // declared original filename, may differ from SourcePath's base
	LocationID    string
	SubLocationID *string
	Author        string
}

type GPSSeverity string

const (
	GPSSeverityMinor GPSSeverity = "minor"
	GPSSeverityMajor GPSSeverity = "major"
)

// GPSWarning reports a disagreement between a location's declared
// coordinate and a media file's embedded coordinate. Advisory only; a
// mismatch never blocks an import.
type GPSWarning struct {
	Mismatch       bool
	DistanceMeters float64
	Severity       GPSSeverity
	Place          string // optional reverse-geocoded place name for the media coordinate
}

// ImportResult is the per-file outcome of an import. Exactly one of
// Duplicate, ArchivePath (on success) or Err is meaningful.
type ImportResult struct {
	Success     bool
	Digest      string
	Kind        MediaKind
	Duplicate   bool
	ArchivePath string
	Err         error
	GPS         *GPSWarning
}

// ImportSession is the persisted batch summary row, written once at the
// end of a successful batch transaction. The per-kind counts cover newly
// imported (non-duplicate) files only.
type ImportSession struct {
	ID            uint   `gorm:"primaryKey"`
	SessionID     string `gorm:"size:36;uniqueIndex;not null"`
	LocationID    string `gorm:"size:36;index"`
	AuthorID      string
	ImageCount    int
	VideoCount    int
	MapCount      int
	DocumentCount int
	Summary       string
	CreatedAt     time.Time
}

// ImportSessionResult is returned to the orchestrating caller.
type ImportSessionResult struct {
	SessionID  string
	Imported   int
	Duplicates int
	Errors     int
	Results    []ImportResult
}
