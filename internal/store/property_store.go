package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/vistoria/internal/domain"
)

// PropertyFilter narrows List. Empty fields match everything.
type PropertyFilter struct {
	PropertyType string
	Status       domain.PropertyStatus
	// Query matches client or address, case-insensitively.
	Query string
}

// ErrNotFound is wrapped by updates and deletes that matched no row.
var ErrNotFound = errors.New("not found")

type PropertyStore struct {
	db DBTX
}

func NewPropertyStore(db DBTX) *PropertyStore {
	return &PropertyStore{db: db}
}

const propertyColumns = `id, client, property_type, area, floors, rooms, address, inspection_date, created_at, status`

func (s *PropertyStore) Create(ctx context.Context, p *domain.Property) (*domain.Property, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (`+propertyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Client, p.PropertyType, p.Area, p.Floors, p.Rooms, p.Address,
		toMillis(p.InspectionDate), toMillis(p.CreatedAt), string(p.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	return s.GetByID(ctx, p.ID)
}

func (s *PropertyStore) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+propertyColumns+` FROM properties WHERE id = ?
	`, id)

	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return p, nil
}

// List returns properties newest first.
func (s *PropertyStore) List(ctx context.Context, f PropertyFilter) ([]*domain.Property, error) {
	var (
		where []string
		args  []any
	)
	if f.PropertyType != "" {
		where = append(where, "property_type = ?")
		args = append(args, f.PropertyType)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(client) LIKE ? OR LOWER(address) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var properties []*domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return properties, nil
}

func (s *PropertyStore) UpdateStatus(ctx context.Context, id string, status domain.PropertyStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update property status: %w", err)
	}

	return expectOne(result, "property")
}

// Delete removes a property; its observations and photo rows cascade.
func (s *PropertyStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM properties WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	return expectOne(result, "property")
}

func (s *PropertyStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM properties`); err != nil {
		return fmt.Errorf("failed to delete properties: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(sc scanner) (*domain.Property, error) {
	p := &domain.Property{}
	var (
		inspection, created int64
		status              string
	)
	if err := sc.Scan(&p.ID, &p.Client, &p.PropertyType, &p.Area, &p.Floors, &p.Rooms, &p.Address,
		&inspection, &created, &status); err != nil {
		return nil, err
	}
	p.InspectionDate = fromMillis(inspection)
	p.CreatedAt = fromMillis(created)
	p.Status = domain.PropertyStatus(status)
	return p, nil
}

func expectOne(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}

	return nil
}

// Times are stored as unix milliseconds in UTC; zero stays zero.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// nullableMillis maps a nil time to SQL NULL.
func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
