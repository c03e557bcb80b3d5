package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	apperrors "fieldvault/internal/errors"
	"fieldvault/internal/models"
	"fieldvault/internal/utils"
)

const (
	defaultState        = "XX"
	defaultLocationType = "Unknown"
	maxShortNameLength  = 50
)

// Organizer computes the deterministic archive path for a content digest
// and copies files into it, re-verifying the digest after the copy. Path
// computation and destination validation are deliberately separate steps:
// the validation gate runs immediately before any filesystem mutation.
type Organizer struct {
	root   string
	hasher ContentHasher
	log    *slog.Logger
}

func NewOrganizer(archiveRoot string, hasher ContentHasher, log *slog.Logger) *Organizer {
	if log == nil {
		log = slog.Default()
	}
	return &Organizer{root: archiveRoot, hasher: hasher, log: log}
}

// ArchivePath returns the target path for a digest. The template is a
// compatibility surface:
//
//	<root>/locations/<STATE>-<TYPE>/<SHORTNAME>-<LOC12>/org-<prefix>-<LOC12>/<digest><ext>
//
// with XX/Unknown standing in for a missing state or location type. No
// randomness and no counters; the same inputs always produce the same path.
func (o *Organizer) ArchivePath(loc *models.Location, kind models.MediaKind, digest, ext string) string {
	state := loc.State
	if state == "" {
		state = defaultState
	}
	locType := loc.LocationType
	if locType == "" {
		locType = defaultLocationType
	}
	short := ShortNameForLocation(loc)

	return filepath.Join(
		o.root,
		"locations",
		state+"-"+locType,
		short+"-"+loc.LocationCode,
		"org-"+kind.Prefix()+"-"+loc.LocationCode,
		digest+strings.ToLower(ext),
	)
}

// ShortNameForLocation prefers the location's explicit short name and
// otherwise derives one from the display name: lowercased, runs of
// non-alphanumerics collapsed to single hyphens, truncated to 50 chars.
func ShortNameForLocation(loc *models.Location) string {
	if loc.ShortName != "" {
		return loc.ShortName
	}

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(loc.DisplayName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}

	short := strings.Trim(b.String(), "-")
	if short == "" {
		short = "location"
	}
	if len(short) > maxShortNameLength {
		short = strings.Trim(short[:maxShortNameLength], "-")
	}
	return short
}

// Place copies sourcePath into the archive and verifies the copy's digest
// against the expected one. A mismatch deletes the partial copy and fails
// with ErrIntegrity; a record must only ever describe bytes verified
// identical to the source.
func (o *Organizer) Place(ctx context.Context, sourcePath string, loc *models.Location, kind models.MediaKind, digest, ext string) (string, error) {
	target := o.ArchivePath(loc, kind, digest, ext)

	if !utils.ValidateArchiveDestination(target, o.root) {
		return "", fmt.Errorf("archive destination %q: %w", target, apperrors.ErrSecurityViolation)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(sourcePath, target); err != nil {
		return "", fmt.Errorf("failed to copy into archive: %w", err)
	}

	copied, err := o.hasher.Hash(ctx, target)
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to verify archive copy: %w", err)
	}
	if copied != digest {
		if rmErr := os.Remove(target); rmErr != nil {
			o.log.Warn("failed to remove corrupt archive copy", "path", target, "error", rmErr)
		}
		return "", fmt.Errorf("archive copy of %s: %w", sourcePath, apperrors.ErrIntegrity)
	}

	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
