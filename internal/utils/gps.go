package utils

import (
	"math"

	"fieldvault/internal/models"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters computes the great-circle distance in meters between two
// coordinates.
func HaversineMeters(a, b models.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Reconcile compares a location's declared coordinate against a media
// file's embedded coordinate. If either coordinate is invalid or unset the
// check is skipped and no mismatch is reported. Beyond thresholdMeters the
// pair is flagged; beyond thresholdMeters*majorMultiplier the severity is
// major. Advisory only; a mismatch never blocks an import.
func Reconcile(locationCoord, mediaCoord models.Coordinate, thresholdMeters, majorMultiplier float64) models.GPSWarning {
	if !locationCoord.Valid() || !mediaCoord.Valid() {
		return models.GPSWarning{}
	}

	distance := HaversineMeters(locationCoord, mediaCoord)
	warning := models.GPSWarning{DistanceMeters: distance}
	if distance <= thresholdMeters {
		return warning
	}

	warning.Mismatch = true
	warning.Severity = models.GPSSeverityMinor
	if distance > thresholdMeters*majorMultiplier {
		warning.Severity = models.GPSSeverityMajor
	}
	return warning
}
