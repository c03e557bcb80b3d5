package services

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrium/goheif"
	"github.com/disintegration/imaging"

	"fieldvault/internal/utils"
)

// Thumbnailer renders small previews for imported images into the archive's
// .thumbnails support directory, keyed by content digest. Generation is
// best-effort; a failed thumbnail never fails an import.
type Thumbnailer struct {
	root string
	size int
	log  *slog.Logger
}

func NewThumbnailer(archiveRoot string, size int, log *slog.Logger) *Thumbnailer {
	if log == nil {
		log = slog.Default()
	}
	return &Thumbnailer{root: archiveRoot, size: size, log: log}
}

// Generate writes <root>/.thumbnails/<digest>.jpg for an image file.
// Existing thumbnails are left alone, so duplicate content is cheap.
func (t *Thumbnailer) Generate(sourcePath, digest string) error {
	dir := filepath.Join(t.root, ".thumbnails")
	target := filepath.Join(dir, digest+".jpg")
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	img, err := t.decode(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", sourcePath, err)
	}

	thumb := imaging.Thumbnail(img, t.size, t.size, imaging.Lanczos)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	if err := imaging.Save(thumb, target, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}

func (t *Thumbnailer) decode(path string) (image.Image, error) {
	if utils.IsHeifLike(filepath.Ext(path)) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return goheif.Decode(f)
	}
	// AutoOrientation bakes the EXIF rotation in, matching how the image
	// is displayed.
	return imaging.Open(path, imaging.AutoOrientation(true))
}
