package models

import "time"

// Location is a physical site that owns media records. The import core
// reads locations but never mutates them; location management lives with
// the surrounding application.
type Location struct {
	ID           string `gorm:"primaryKey;size:36"`
	DisplayName  string `gorm:"not null"`
	ShortName    string
	LocationCode string `gorm:"size:12;uniqueIndex;not null"` // twelve-character archive path code
	Latitude     *float64
	Longitude    *float64
	State        string
	LocationType string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Coordinate returns the declared position, or the invalid zero coordinate
// when the location has none.
func (l *Location) Coordinate() Coordinate {
	if l.Latitude == nil || l.Longitude == nil {
		return Coordinate{}
	}
	return Coordinate{Lat: *l.Latitude, Lng: *l.Longitude}
}
