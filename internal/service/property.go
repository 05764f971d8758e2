package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/store"
)

const defaultPropertyType = "apartamento"

// PropertyInput carries the fields of a new property.
type PropertyInput struct {
	Client         string    `json:"client"`
	PropertyType   string    `json:"propertyType"`
	Area           float64   `json:"area"`
	Floors         int       `json:"floors"`
	Rooms          int       `json:"rooms"`
	Address        string    `json:"address"`
	InspectionDate time.Time `json:"inspectionDate"`
}

func (in PropertyInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.Client) == "" {
		missing = append(missing, "client")
	}
	if in.Area <= 0 {
		missing = append(missing, "area")
	}
	if in.Floors <= 0 {
		missing = append(missing, "floors")
	}
	if in.Rooms <= 0 {
		missing = append(missing, "rooms")
	}
	if strings.TrimSpace(in.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// CreateProperty validates in and stores a new property in progress.
func (s *InspectionService) CreateProperty(ctx context.Context, in PropertyInput) (*domain.Property, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Property{
		ID:             uuid.NewString(),
		Client:         strings.TrimSpace(in.Client),
		PropertyType:   in.PropertyType,
		Area:           in.Area,
		Floors:         in.Floors,
		Rooms:          in.Rooms,
		Address:        strings.TrimSpace(in.Address),
		InspectionDate: in.InspectionDate,
		CreatedAt:      now,
		Status:         domain.StatusInProgress,
	}
	if p.PropertyType == "" {
		p.PropertyType = defaultPropertyType
	}
	if p.InspectionDate.IsZero() {
		p.InspectionDate = now
	}

	created, err := s.properties.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("property created", "property_id", created.ID, "type", created.PropertyType)
	return created, nil
}

func (s *InspectionService) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPropertyNotFound
	}
	return p, nil
}

// ListProperties returns properties newest first. A filter value of "all"
// matches everything.
func (s *InspectionService) ListProperties(ctx context.Context, f store.PropertyFilter) ([]*domain.Property, error) {
	if f.PropertyType == "all" {
		f.PropertyType = ""
	}
	if f.Status == "all" {
		f.Status = ""
	}
	f.Query = strings.TrimSpace(f.Query)
	return s.properties.List(ctx, f)
}

func (s *InspectionService) UpdateStatus(ctx context.Context, id string, status domain.PropertyStatus) (*domain.Property, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.properties.UpdateStatus(ctx, id, status); err != nil {
		if isNotFound(err) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return s.GetProperty(ctx, id)
}

// DeleteProperty removes a property with its observations, photo records
// and stored photo files.
func (s *InspectionService) DeleteProperty(ctx context.Context, id string) error {
	photos, err := s.photos.ListByProperty(ctx, id)
	if err != nil {
		return err
	}

	if err := s.properties.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrPropertyNotFound
		}
		return err
	}

	for _, photo := range photos {
		s.deleteBlob(ctx, photo.StorageKey)
	}
	s.invalidateStats(ctx, id)
	s.logger.Info("property deleted", "property_id", id, "photos", len(photos))
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
