package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/adrium/goheif"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"fieldvault/internal/models"
)

// ExtractImageMetadata reads EXIF and dimension data from an image file.
// HEIC/HEIF containers get their EXIF block lifted out with goheif first,
// since goexif cannot parse the container directly. A file with no EXIF at
// all still yields dimensions when the image itself decodes.
func ExtractImageMetadata(path string) (*models.ExtractedMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	md := &models.ExtractedMetadata{Kind: models.KindImage}
	ext := filepath.Ext(path)

	exifSource := data
	if IsHeifLike(ext) {
		if block, heifErr := goheif.ExtractExif(bytes.NewReader(data)); heifErr == nil && len(block) > 0 {
			exifSource = block
		}
	}

	orientation := 1
	x, exifErr := exif.Decode(bytes.NewReader(exifSource))
	if exifErr == nil {
		if lat, lng, gpsErr := x.LatLong(); gpsErr == nil {
			md.Coordinate = &models.Coordinate{Lat: lat, Lng: lng}
		}
		md.DateTaken = exifDateTime(x)
		md.CameraMake = exifString(x, exif.Make)
		md.CameraModel = exifString(x, exif.Model)
		md.RawExif = exifTagBag(x)

		if tag, err := x.Get(exif.Orientation); err == nil {
			if v, err := tag.Int(0); err == nil {
				orientation = v
			}
		}
	}

	width, height, dimErr := imageDimensions(data, ext)
	if dimErr != nil && exifErr != nil {
		// Neither EXIF nor pixels were readable; nothing useful extracted.
		return nil, fmt.Errorf("failed to decode image metadata: %w", exifErr)
	}

	// EXIF orientations 5-8 store the image rotated a quarter turn, so the
	// encoded dimensions are swapped relative to the displayed ones.
	if orientation >= 5 && orientation <= 8 {
		width, height = height, width
	}
	md.Width = width
	md.Height = height

	return md, nil
}

func imageDimensions(data []byte, ext string) (int, int, error) {
	if IsHeifLike(ext) {
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to decode HEIC: %w", err)
		}
		bounds := img.Bounds()
		return bounds.Dx(), bounds.Dy(), nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// Resolves the capture time, preferring DateTime then DateTimeOriginal,
// the same fallback chain EXIF writers disagree about in practice.
func exifDateTime(x *exif.Exif) *time.Time {
	if dt, err := x.DateTime(); err == nil {
		return &dt
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return nil
	}
	raw, err := tag.StringVal()
	if err != nil {
		return nil
	}
	// EXIF DateTimeOriginal is typically "2006:01:02 15:04:05"
	t, err := time.Parse("2006:01:02 15:04:05", raw)
	if err != nil {
		return nil
	}
	return &t
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

type tagCollector struct {
	tags map[string]string
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c.tags[string(name)] = tag.String()
	return nil
}

// Flattens the full tag set into a JSON object for the raw EXIF column.
func exifTagBag(x *exif.Exif) string {
	collector := &tagCollector{tags: make(map[string]string)}
	if err := x.Walk(collector); err != nil {
		return ""
	}
	out, err := json.Marshal(collector.tags)
	if err != nil {
		return ""
	}
	return string(out)
}
