package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/vistoria/internal/domain"
)

type ObservationStore struct {
	db DBTX
}

func NewObservationStore(db DBTX) *ObservationStore {
	return &ObservationStore{db: db}
}

const observationColumns = `id, property_id, environment_id, key, category_id, status, description, created_at, updated_at`

func (s *ObservationStore) Create(ctx context.Context, o *domain.Observation) (*domain.Observation, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (property_id, environment_id, key, category_id, status, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.PropertyID, o.EnvironmentID, o.Key, o.CategoryID, string(o.Status), o.Description,
		toMillis(o.CreatedAt), nullableMillis(o.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create observation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ObservationStore) GetByID(ctx context.Context, id int64) (*domain.Observation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+observationColumns+` FROM observations WHERE id = ?
	`, id)
	return getObservation(row)
}

// Get looks an observation up by its key within an environment.
func (s *ObservationStore) Get(ctx context.Context, propertyID, environmentID, key string) (*domain.Observation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE property_id = ? AND environment_id = ? AND key = ?
	`, propertyID, environmentID, key)
	return getObservation(row)
}

func getObservation(row *sql.Row) (*domain.Observation, error) {
	o, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return o, nil
}

// ListByProperty returns every observation of a property in the order they
// were recorded.
func (s *ObservationStore) ListByProperty(ctx context.Context, propertyID string) ([]*domain.Observation, error) {
	return s.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE property_id = ? ORDER BY id ASC
	`, propertyID)
}

func (s *ObservationStore) ListByEnvironment(ctx context.Context, propertyID, environmentID string) ([]*domain.Observation, error) {
	return s.list(ctx, `
		SELECT `+observationColumns+` FROM observations
		WHERE property_id = ? AND environment_id = ? ORDER BY id ASC
	`, propertyID, environmentID)
}

func (s *ObservationStore) list(ctx context.Context, query string, args ...any) ([]*domain.Observation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var observations []*domain.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}

	return observations, nil
}

// Update rewrites the mutable fields of an observation and stamps
// updated_at.
func (s *ObservationStore) Update(ctx context.Context, o *domain.Observation) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE observations SET category_id = ?, status = ?, description = ?, updated_at = ? WHERE id = ?
	`, o.CategoryID, string(o.Status), o.Description, nullableMillis(o.UpdatedAt), o.ID)
	if err != nil {
		return fmt.Errorf("failed to update observation: %w", err)
	}

	return expectOne(result, "observation")
}

func (s *ObservationStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM observations WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete observation: %w", err)
	}

	return expectOne(result, "observation")
}

func (s *ObservationStore) CountByProperty(ctx context.Context, propertyID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM observations WHERE property_id = ?
	`, propertyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return n, nil
}

// scanObservation reads one row and normalizes its status, so callers never
// see a severity outside the known set.
func scanObservation(sc scanner) (*domain.Observation, error) {
	o := &domain.Observation{}
	var (
		status  string
		created int64
		updated sql.NullInt64
	)
	if err := sc.Scan(&o.ID, &o.PropertyID, &o.EnvironmentID, &o.Key, &o.CategoryID,
		&status, &o.Description, &created, &updated); err != nil {
		return nil, err
	}
	o.Status = domain.NormalizeSeverity(status)
	o.CreatedAt = fromMillis(created)
	if updated.Valid {
		t := fromMillis(updated.Int64)
		o.UpdatedAt = &t
	}
	return o, nil
}
