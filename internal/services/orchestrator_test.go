package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fieldvault/internal/errors"
	"fieldvault/internal/models"
)

type fakeExtractor struct {
	md    *models.ExtractedMetadata
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*models.ExtractedMetadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.md, nil
}

type importEnv struct {
	store      *Store
	service    *ImportService
	root       string // archive root
	importRoot string // allow-listed source directory
	images     *fakeExtractor
	videos     *fakeExtractor
}

func newImportEnv(t *testing.T) *importEnv {
	t.Helper()

	env := &importEnv{
		store:      newTestStore(t),
		root:       t.TempDir(),
		importRoot: t.TempDir(),
		images:     &fakeExtractor{err: errors.New("no exif")},
		videos:     &fakeExtractor{err: errors.New("no exiftool")},
	}

	log := testLogger()
	hasher := SHA256Hasher{}
	metadata := NewMetadataService(env.images, env.videos, log)
	organizer := NewOrganizer(env.root, hasher, log)
	importer := NewImporter(env.store, hasher, metadata, organizer, nil, nil, 10000, 1.1, log)
	env.service = NewImportService(env.store, importer, env.root, []string{env.importRoot}, log)
	return env
}

func (e *importEnv) writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.importRoot, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *importEnv) inputs(t *testing.T, loc *models.Location, paths ...string) []models.ImportFileInput {
	t.Helper()
	files := make([]models.ImportFileInput, 0, len(paths))
	for _, p := range paths {
		files = append(files, models.ImportFileInput{
			SourcePath:   p,
			OriginalName: filepath.Base(p),
			LocationID:   loc.ID,
			Author:       "tester",
		})
	}
	return files
}

func (e *importEnv) archivedFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	root := filepath.Join(e.root, "locations")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}

// Three distinct files of three kinds: all imported, one session record
// whose per-kind counts match the successful non-duplicate results.
func TestImportBatchDistinctFiles(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	files := env.inputs(t, loc,
		env.writeSource(t, "a.jpg", "alpha"),
		env.writeSource(t, "b.mp4", "beta"),
		env.writeSource(t, "c.txt", "gamma"),
	)

	var progress []int
	result, err := env.service.ImportBatch(context.Background(), files, false, func(index, total int, res models.ImportResult) {
		assert.Equal(t, 3, total)
		progress = append(progress, index)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Len(t, env.archivedFiles(t), 3)

	for _, res := range result.Results {
		require.True(t, res.Success)
		assert.FileExists(t, res.ArchivePath)
		assert.Len(t, res.Digest, 64)
	}
	assert.Equal(t, models.KindImage, result.Results[0].Kind)
	assert.Equal(t, models.KindVideo, result.Results[1].Kind)
	assert.Equal(t, models.KindDocument, result.Results[2].Kind)

	var session models.ImportSession
	require.NoError(t, env.store.db.First(&session, "session_id = ?", result.SessionID).Error)
	assert.Equal(t, 1, session.ImageCount)
	assert.Equal(t, 1, session.VideoCount)
	assert.Equal(t, 0, session.MapCount)
	assert.Equal(t, 1, session.DocumentCount)
	assert.Equal(t, loc.ID, session.LocationID)
	assert.Equal(t, "tester", session.AuthorID)
}

// Identical bytes under different names: the second import short-circuits
// as a duplicate with no extraction, no copy and no record.
func TestImportBatchDeduplicates(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	files := env.inputs(t, loc,
		env.writeSource(t, "original.jpg", "same bytes"),
		env.writeSource(t, "copy-of-original.jpg", "same bytes"),
	)

	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
	assert.Len(t, env.archivedFiles(t), 1)

	require.True(t, result.Results[1].Duplicate)
	assert.Empty(t, result.Results[1].ArchivePath)
	assert.Equal(t, result.Results[0].Digest, result.Results[1].Digest)

	// The duplicate check runs before metadata extraction.
	assert.Equal(t, 1, env.images.calls)

	var count int64
	require.NoError(t, env.store.db.Model(&models.ImageRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// The same digest under different kinds is not a duplicate: digests are
// unique per kind, not across kinds.
func TestImportBatchSameBytesDifferentKinds(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	files := env.inputs(t, loc,
		env.writeSource(t, "trace.jpg", "identical payload"),
		env.writeSource(t, "trace.gpx", "identical payload"),
	)

	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Duplicates)
}

// A single out-of-roots path rejects the whole batch before any
// filesystem mutation or record write.
func TestImportBatchPreflightRejection(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	outside := filepath.Join(t.TempDir(), "sneaky.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("outside"), 0o644))

	files := env.inputs(t, loc,
		env.writeSource(t, "fine.jpg", "fine"),
		outside,
	)

	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.ErrorIs(t, err, apperrors.ErrSecurityViolation)
	assert.Nil(t, result)

	assert.Empty(t, env.archivedFiles(t))
	var sessions int64
	require.NoError(t, env.store.db.Model(&models.ImportSession{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
	var images int64
	require.NoError(t, env.store.db.Model(&models.ImageRecord{}).Count(&images).Error)
	assert.Zero(t, images)
}

// Traversal sequences in the source path must not sneak past pre-flight.
func TestImportBatchPreflightTraversal(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	files := env.inputs(t, loc, filepath.Join(env.importRoot, "..", "..", "etc", "passwd"))

	_, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.ErrorIs(t, err, apperrors.ErrSecurityViolation)
}

// An image whose embedded coordinate sits ~12km from the location still
// imports, carrying a major-severity GPS warning on its result.
func TestImportBatchGPSMismatchWarns(t *testing.T) {
	env := newImportEnv(t)
	lat, lng := 45.0, -122.0
	loc := newTestLocation(t, env.store, &lat, &lng)

	mediaCoord := models.Coordinate{Lat: 45.108, Lng: -122.0} // ~12km north
	env.images.err = nil
	env.images.md = &models.ExtractedMetadata{
		Kind:       models.KindImage,
		Width:      4032,
		Height:     3024,
		Coordinate: &mediaCoord,
	}

	files := env.inputs(t, loc, env.writeSource(t, "far.jpg", "far away photo"))
	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.NoError(t, err)

	res := result.Results[0]
	require.True(t, res.Success)
	require.NotNil(t, res.GPS)
	assert.True(t, res.GPS.Mismatch)
	assert.Equal(t, models.GPSSeverityMajor, res.GPS.Severity)
	assert.InDelta(t, 12000, res.GPS.DistanceMeters, 300)

	// Advisory only: the record still lands, coordinate included.
	var rec models.ImageRecord
	require.NoError(t, env.store.db.First(&rec, "digest = ?", res.Digest).Error)
	require.NotNil(t, rec.Latitude)
	assert.InDelta(t, mediaCoord.Lat, *rec.Latitude, 1e-9)
	assert.Equal(t, 4032, rec.Width)
}

// A per-file failure never aborts the batch, and the counts always add up:
// imported + duplicates + errors == total.
func TestImportBatchPerFileFailure(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	files := env.inputs(t, loc,
		env.writeSource(t, "notes.txt", "field notes"),
		filepath.Join(env.importRoot, "missing.bin"), // passes pre-flight, fails to hash
		env.writeSource(t, "route.gpx", "<gpx/>"),
	)

	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, len(files), result.Imported+result.Duplicates+result.Errors)

	failed := result.Results[1]
	assert.False(t, failed.Success)
	assert.Error(t, failed.Err)
	assert.Empty(t, failed.Digest)
	assert.Equal(t, models.KindDocument, failed.Kind)

	var session models.ImportSession
	require.NoError(t, env.store.db.First(&session, "session_id = ?", result.SessionID).Error)
	assert.Equal(t, 1, session.DocumentCount)
	assert.Equal(t, 1, session.MapCount)
}

func TestImportBatchMissingLocation(t *testing.T) {
	env := newImportEnv(t)

	files := []models.ImportFileInput{{
		SourcePath:   env.writeSource(t, "a.jpg", "alpha"),
		OriginalName: "a.jpg",
		LocationID:   "no-such-location",
	}}

	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Errors)
	assert.ErrorIs(t, result.Results[0].Err, apperrors.ErrNotFound)
}

func TestImportBatchDeletesOriginals(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	source := env.writeSource(t, "consume-me.jpg", "bytes to move")
	result, err := env.service.ImportBatch(context.Background(), env.inputs(t, loc, source), true, nil)
	require.NoError(t, err)

	require.Equal(t, 1, result.Imported)
	assert.NoFileExists(t, source)
	assert.FileExists(t, result.Results[0].ArchivePath)
}

func TestImportBatchEmpty(t *testing.T) {
	env := newImportEnv(t)
	_, err := env.service.ImportBatch(context.Background(), nil, false, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// If the session write fails, the whole batch rolls back: per-file
// successes were speculative until commit.
func TestImportBatchSessionFailureRollsBack(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	require.NoError(t, env.store.db.Migrator().DropTable(&models.ImportSession{}))

	files := env.inputs(t, loc, env.writeSource(t, "doomed.jpg", "doomed"))
	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.Error(t, err)
	assert.Nil(t, result)

	var images int64
	require.NoError(t, env.store.db.Model(&models.ImageRecord{}).Count(&images).Error)
	assert.Zero(t, images, "media records of a failed batch must be rolled back")
}

// Input order decides which of several identical files is retained as the
// original; later ones report as duplicates of the first.
func TestImportBatchOrderDeterminesOriginal(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	first := env.writeSource(t, "01-first.jpg", "shared content")
	second := env.writeSource(t, "02-second.jpg", "shared content")

	result, err := env.service.ImportBatch(context.Background(), env.inputs(t, loc, first, second), false, nil)
	require.NoError(t, err)

	var rec models.ImageRecord
	require.NoError(t, env.store.db.First(&rec, "digest = ?", result.Results[0].Digest).Error)
	assert.Equal(t, "01-first.jpg", rec.OriginalName)
	assert.Equal(t, first, rec.SourcePath)
}

func TestImportBatchSummaryLine(t *testing.T) {
	env := newImportEnv(t)
	loc := newTestLocation(t, env.store, nil, nil)

	files := env.inputs(t, loc,
		env.writeSource(t, "a.jpg", "a"),
		env.writeSource(t, "b.jpg", "a"),
		filepath.Join(env.importRoot, "gone.jpg"),
	)

	result, err := env.service.ImportBatch(context.Background(), files, false, nil)
	require.NoError(t, err)

	var session models.ImportSession
	require.NoError(t, env.store.db.First(&session, "session_id = ?", result.SessionID).Error)
	assert.Equal(t, fmt.Sprintf("imported %d, %d duplicates, %d errors", 1, 1, 1), session.Summary)
}
