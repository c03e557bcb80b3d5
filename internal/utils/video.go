package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"fieldvault/internal/models"
)

// ExtractVideoMetadata shells out to exiftool for container metadata.
// -j emits JSON, -n keeps GPS and duration numeric instead of formatted.
func ExtractVideoMetadata(ctx context.Context, exiftoolPath, path string) (*models.ExtractedMetadata, error) {
	cmd := exec.CommandContext(ctx, exiftoolPath, "-j", "-n", path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("exiftool failed: %w", err)
	}

	return parseExiftoolJSON(output)
}

// Parses exiftool's -j output: a one-element array of tag objects.
func parseExiftoolJSON(output []byte) (*models.ExtractedMetadata, error) {
	var docs []map[string]any
	if err := json.Unmarshal(output, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse exiftool output: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata")
	}
	tags := docs[0]

	md := &models.ExtractedMetadata{Kind: models.KindVideo}
	md.DurationSec = tagFloat(tags, "Duration", "MediaDuration", "TrackDuration")
	md.FPS = tagFloat(tags, "VideoFrameRate", "FrameRate")
	md.Width = int(tagFloat(tags, "ImageWidth", "SourceImageWidth"))
	md.Height = int(tagFloat(tags, "ImageHeight", "SourceImageHeight"))
	md.Codec = tagString(tags, "CompressorID", "VideoCodec", "CompressorName")

	lat := tagFloat(tags, "GPSLatitude")
	lng := tagFloat(tags, "GPSLongitude")
	coord := models.Coordinate{Lat: lat, Lng: lng}
	if coord.Valid() {
		md.Coordinate = &coord
	}

	if raw := tagString(tags, "CreateDate", "MediaCreateDate", "TrackCreateDate"); raw != "" {
		if t, ok := parseExiftoolDate(raw); ok {
			md.DateTaken = &t
		}
	}

	// Drop the synthetic SourceFile entry; everything else is container data.
	delete(tags, "SourceFile")
	if bag, err := json.Marshal(tags); err == nil {
		md.RawContainer = string(bag)
	}

	return md, nil
}

// Exiftool prints container timestamps as "2006:01:02 15:04:05", with an
// optional zone suffix on some writers.
func parseExiftoolDate(raw string) (time.Time, bool) {
	formats := []string{
		"2006:01:02 15:04:05Z07:00",
		"2006:01:02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func tagFloat(tags map[string]any, names ...string) float64 {
	for _, name := range names {
		if v, ok := tags[name]; ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
	}
	return 0
}

func tagString(tags map[string]any, names ...string) string {
	for _, name := range names {
		if v, ok := tags[name]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
