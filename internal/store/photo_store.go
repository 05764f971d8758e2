package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/vistoria/internal/domain"
)

type PhotoStore struct {
	db DBTX
}

func NewPhotoStore(db DBTX) *PhotoStore {
	return &PhotoStore{db: db}
}

const photoColumns = `p.id, p.observation_id, o.key, p.storage_key, p.mime_type, p.caption, p.position, p.captured_at`

// ErrLimitReached is returned by Create when the observation already holds
// the maximum number of photos.
var ErrLimitReached = errors.New("photo limit reached")

// Create stores photo after the existing photos of its observation unless
// the observation already has limit photos. The count and the insert are
// one statement, so concurrent uploads cannot exceed limit.
func (s *PhotoStore) Create(ctx context.Context, photo *domain.Photo, limit int) (*domain.Photo, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (id, observation_id, storage_key, mime_type, caption, position, captured_at)
		SELECT ?, ?, ?, ?, ?, COALESCE((SELECT MAX(position) + 1 FROM photos WHERE observation_id = ?), 0), ?
		WHERE (SELECT COUNT(*) FROM photos WHERE observation_id = ?) < ?
	`, photo.ID, photo.ObservationID, photo.StorageKey, photo.MimeType, photo.Caption,
		photo.ObservationID, toMillis(photo.CapturedAt), photo.ObservationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrLimitReached
	}

	return s.GetByID(ctx, photo.ID)
}

func (s *PhotoStore) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+photoColumns+` FROM photos p JOIN observations o ON o.id = p.observation_id
		WHERE p.id = ?
	`, id)

	photo, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

func (s *PhotoStore) ListByObservation(ctx context.Context, observationID int64) ([]*domain.Photo, error) {
	return s.list(ctx, `
		SELECT `+photoColumns+` FROM photos p JOIN observations o ON o.id = p.observation_id
		WHERE p.observation_id = ? ORDER BY p.position ASC
	`, observationID)
}

// ListByProperty returns every photo of a property grouped by observation.
func (s *PhotoStore) ListByProperty(ctx context.Context, propertyID string) ([]*domain.Photo, error) {
	return s.list(ctx, `
		SELECT `+photoColumns+` FROM photos p JOIN observations o ON o.id = p.observation_id
		WHERE o.property_id = ? ORDER BY p.observation_id ASC, p.position ASC
	`, propertyID)
}

// ListAll returns every stored photo.
func (s *PhotoStore) ListAll(ctx context.Context) ([]*domain.Photo, error) {
	return s.list(ctx, `
		SELECT `+photoColumns+` FROM photos p JOIN observations o ON o.id = p.observation_id
		ORDER BY p.observation_id ASC, p.position ASC
	`)
}

func (s *PhotoStore) list(ctx context.Context, query string, args ...any) ([]*domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var photos []*domain.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

func (s *PhotoStore) CountByObservation(ctx context.Context, observationID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM photos WHERE observation_id = ?
	`, observationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return n, nil
}

func (s *PhotoStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM photos WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	return expectOne(result, "photo")
}

func scanPhoto(sc scanner) (*domain.Photo, error) {
	photo := &domain.Photo{}
	var captured int64
	if err := sc.Scan(&photo.ID, &photo.ObservationID, &photo.ObservationKey, &photo.StorageKey,
		&photo.MimeType, &photo.Caption, &photo.Position, &captured); err != nil {
		return nil, err
	}
	photo.CapturedAt = fromMillis(captured)
	return photo, nil
}
