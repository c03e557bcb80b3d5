package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fieldvault/internal/errors"
	"fieldvault/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLocation(t *testing.T, store *Store, lat, lng *float64) *models.Location {
	t.Helper()
	loc := &models.Location{
		DisplayName: "Vista House Overlook",
		Latitude:    lat,
		Longitude:   lng,
		State:       "OR",
	}
	require.NoError(t, store.CreateLocation(context.Background(), loc))
	return loc
}

func TestCreateLocationFillsIdentifiers(t *testing.T) {
	store := newTestStore(t)
	loc := newTestLocation(t, store, nil, nil)

	assert.NotEmpty(t, loc.ID)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{12}$`), loc.LocationCode)
	assert.Regexp(t, regexp.MustCompile(`^L-[0-9A-F]{6}$`), loc.ShortName)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	found, err := store.FindLocation(tx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, loc.DisplayName, found.DisplayName)
	assert.Equal(t, loc.LocationCode, found.LocationCode)
}

func TestCreateLocationRequiresName(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateLocation(context.Background(), &models.Location{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestFindLocationNotFound(t *testing.T) {
	store := newTestStore(t)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = store.FindLocation(tx, "no-such-location")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMediaExistsIsScopedPerKind(t *testing.T) {
	store := newTestStore(t)
	loc := newTestLocation(t, store, nil, nil)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	digest := "aaaabbbbccccddddeeeeffff0000111122223333444455556666777788889999"
	rec := &models.ImageRecord{MediaCommon: models.MediaCommon{
		Digest:      digest,
		ArchivePath: "/archive/locations/x/a.jpg",
		LocationID:  loc.ID,
		ImportedAt:  time.Now(),
	}}
	require.NoError(t, store.InsertMediaRecord(tx, rec))

	exists, err := store.MediaExists(tx, digest, models.KindImage)
	require.NoError(t, err)
	assert.True(t, exists)

	// A digest is unique per kind, not across kinds.
	exists, err = store.MediaExists(tx, digest, models.KindDocument)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInsertMediaRecordDuplicateConflicts(t *testing.T) {
	store := newTestStore(t)
	loc := newTestLocation(t, store, nil, nil)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	common := models.MediaCommon{
		Digest:      "0000111122223333444455556666777788889999aaaabbbbccccddddeeeeffff",
		ArchivePath: "/archive/locations/x/a.gpx",
		LocationID:  loc.ID,
		ImportedAt:  time.Now(),
	}
	require.NoError(t, store.InsertMediaRecord(tx, &models.MapRecord{MediaCommon: common}))

	err = store.InsertMediaRecord(tx, &models.MapRecord{MediaCommon: common})
	assert.ErrorIs(t, err, apperrors.ErrStoreConflict)
}

func TestInsertImportSession(t *testing.T) {
	store := newTestStore(t)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	session := &models.ImportSession{
		LocationID: "loc-1",
		AuthorID:   "author-1",
		ImageCount: 2,
		Summary:    "imported 2, 0 duplicates, 0 errors",
	}
	id, err := store.InsertImportSession(tx, session)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, tx.Commit())

	var saved models.ImportSession
	require.NoError(t, store.db.First(&saved, "session_id = ?", id).Error)
	assert.Equal(t, 2, saved.ImageCount)
	assert.False(t, saved.CreatedAt.IsZero())
}
