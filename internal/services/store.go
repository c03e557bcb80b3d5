package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "fieldvault/internal/errors"
	"fieldvault/internal/models"
	"fieldvault/internal/utils"
)

// Store is the sqlite-backed record store. All import writes go through an
// explicit Tx scope whose lifetime is exactly one ImportBatch call.
type Store struct {
	db *gorm.DB
}

// Tx is the transactional scope handed to store-touching operations.
type Tx struct {
	db *gorm.DB
}

// OpenStore opens (creating if needed) the sqlite database at dbPath and
// migrates the schema.
func OpenStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Location{},
		&models.ImageRecord{},
		&models.VideoRecord{},
		&models.MapRecord{},
		&models.DocumentRecord{},
		&models.ImportSession{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Begin opens the transactional scope for one import batch.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &Tx{db: tx}, nil
}

func (t *Tx) Commit() error {
	return t.db.Commit().Error
}

// Rollback discards the scope. Calling it after a successful commit is a
// harmless no-op from the caller's perspective.
func (t *Tx) Rollback() {
	t.db.Rollback()
}

// FindLocation resolves a location by id within the transaction's view.
func (s *Store) FindLocation(tx *Tx, id string) (*models.Location, error) {
	var loc models.Location
	if err := tx.db.First(&loc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("location %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find location %s: %w", id, err)
	}
	return &loc, nil
}

// CreateLocation persists a new location, filling in id and codes when the
// caller left them empty.
func (s *Store) CreateLocation(ctx context.Context, loc *models.Location) error {
	if loc.DisplayName == "" {
		return fmt.Errorf("location display name: %w", apperrors.ErrInvalidInput)
	}
	if loc.ID == "" {
		loc.ID = utils.NewSessionID()
	}
	if loc.LocationCode == "" {
		loc.LocationCode = utils.NewLocationCode()
	}
	if loc.ShortName == "" {
		loc.ShortName = utils.NewShortCode()
	}
	now := time.Now()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(loc).Error; err != nil {
		return fmt.Errorf("failed to create location: %w", translateConflict(err))
	}
	return nil
}

// MediaExists reports whether a record with this digest already exists for
// the given kind, as seen by the current transaction.
func (s *Store) MediaExists(tx *Tx, digest string, kind models.MediaKind) (bool, error) {
	var model any
	switch kind {
	case models.KindImage:
		model = &models.ImageRecord{}
	case models.KindVideo:
		model = &models.VideoRecord{}
	case models.KindMap:
		model = &models.MapRecord{}
	default:
		model = &models.DocumentRecord{}
	}

	var count int64
	err := tx.db.Model(model).Where("digest = ?", digest).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed duplicate check for %s/%s: %w", kind, digest, err)
	}
	return count > 0, nil
}

// InsertMediaRecord persists one kind-specific media row inside the scope.
// A duplicate-key race surfaces as ErrStoreConflict.
func (s *Store) InsertMediaRecord(tx *Tx, rec models.MediaRecord) error {
	if err := tx.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert %s record: %w", rec.Kind(), translateConflict(err))
	}
	return nil
}

// InsertImportSession persists the batch summary row and returns its
// session id.
func (s *Store) InsertImportSession(tx *Tx, session *models.ImportSession) (string, error) {
	if session.SessionID == "" {
		session.SessionID = utils.NewSessionID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if err := tx.db.Create(session).Error; err != nil {
		return "", fmt.Errorf("failed to insert import session: %w", err)
	}
	return session.SessionID, nil
}

// Maps the driver's duplicate-key failures onto ErrStoreConflict so
// callers can errors.Is() them.
func translateConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreConflict, err)
	}
	return err
}
