package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "fieldvault/internal/errors"
	"fieldvault/internal/models"
	"fieldvault/internal/utils"
)

// ProgressFunc is invoked exactly once per file, after that file's
// processing completes, so progress reflects completed work.
type ProgressFunc func(index, total int, result models.ImportResult)

// ImportService drives a batch of per-file imports inside one transaction.
// It is the sole entry point of the import core.
type ImportService struct {
	store       RecordStore
	importer    *Importer
	archiveRoot string
	importRoots []string
	log         *slog.Logger
}

func NewImportService(store RecordStore, importer *Importer, archiveRoot string, importRoots []string, log *slog.Logger) *ImportService {
	if log == nil {
		log = slog.Default()
	}
	return &ImportService{
		store:       store,
		importer:    importer,
		archiveRoot: archiveRoot,
		importRoots: importRoots,
		log:         log,
	}
}

// ImportBatch validates every input path up front, then processes the
// files strictly in input order inside a single transaction, aggregates
// the results, persists one import-session record and commits.
//
// A pre-flight path violation rejects the whole batch before any
// filesystem mutation. After pre-flight, a single file's failure never
// aborts the batch; only a session-write or commit failure does, in which
// case every record of the batch is rolled back.
func (s *ImportService) ImportBatch(ctx context.Context, files []models.ImportFileInput, deleteOriginals bool, onProgress ProgressFunc) (*models.ImportSessionResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("empty import batch: %w", apperrors.ErrInvalidInput)
	}

	if err := s.preflight(files); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	batchStart := time.Now()
	total := len(files)
	results := make([]models.ImportResult, 0, total)
	session := &models.ImportSession{
		SessionID: utils.NewSessionID(),
		// A batch is assumed single-location; mixed batches are accepted
		// but attributed to the first entry.
		LocationID: files[0].LocationID,
		AuthorID:   files[0].Author,
	}

	var imported, duplicates, errored int
	for i, file := range files {
		result := s.importFile(ctx, tx, file, deleteOriginals)
		results = append(results, result)

		switch {
		case result.Success && result.Duplicate:
			duplicates++
		case result.Success:
			imported++
			countByKind(session, result.Kind)
		default:
			errored++
		}

		if onProgress != nil {
			onProgress(i+1, total, result)
		}
	}

	session.Summary = fmt.Sprintf("imported %d, %d duplicates, %d errors", imported, duplicates, errored)
	sessionID, err := s.store.InsertImportSession(tx, session)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import batch: %w", err)
	}
	committed = true

	s.log.Info("import batch committed",
		"session", sessionID,
		"files", total,
		"imported", imported,
		"duplicates", duplicates,
		"errors", errored,
		"elapsed", time.Since(batchStart),
	)

	return &models.ImportSessionResult{
		SessionID:  sessionID,
		Imported:   imported,
		Duplicates: duplicates,
		Errors:     errored,
		Results:    results,
	}, nil
}

// Every source path must lie within the archive root or one of the
// configured import roots. Any single violation rejects the entire batch
// before any file is touched.
func (s *ImportService) preflight(files []models.ImportFileInput) error {
	for _, file := range files {
		if s.pathAllowed(file.SourcePath) {
			continue
		}
		return fmt.Errorf("source path %q outside permitted import roots: %w",
			file.SourcePath, apperrors.ErrSecurityViolation)
	}
	return nil
}

func (s *ImportService) pathAllowed(path string) bool {
	if utils.IsWithin(path, s.archiveRoot) {
		return true
	}
	for _, root := range s.importRoots {
		if utils.IsWithin(path, root) {
			return true
		}
	}
	return false
}

// Runs one file's import, converting a panic in the per-file path into a
// failed result so the batch keeps going.
func (s *ImportService) importFile(ctx context.Context, tx *Tx, file models.ImportFileInput, deleteOriginals bool) (result models.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("import panicked", "source", file.SourcePath, "panic", r)
			result = models.ImportResult{
				Kind: models.KindDocument,
				Err:  fmt.Errorf("import of %s panicked: %v", file.SourcePath, r),
			}
		}
	}()

	result = s.importer.ImportOne(ctx, tx, file, deleteOriginals)
	if result.Err != nil {
		s.log.Warn("file import failed", "source", file.SourcePath, "error", result.Err)
	}
	return result
}

func countByKind(session *models.ImportSession, kind models.MediaKind) {
	switch kind {
	case models.KindImage:
		session.ImageCount++
	case models.KindVideo:
		session.VideoCount++
	case models.KindMap:
		session.MapCount++
	default:
		session.DocumentCount++
	}
}
