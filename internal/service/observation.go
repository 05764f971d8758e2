package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/vistoria/internal/cache"
	"github.com/vbonduro/vistoria/internal/domain"
)

// Default descriptions of the one-tap observations.
const (
	QuickOKDescription     = "Item inspecionado - Conforme"
	QuickDefectDescription = "Defeito identificado - Requer atenção"
)

// ObservationInput carries the fields of a new observation.
type ObservationInput struct {
	CategoryID  string `json:"category"`
	Status      string `json:"status"`
	Description string `json:"observation"`
}

// ObservationUpdate changes the fields that are set and leaves the rest.
type ObservationUpdate struct {
	CategoryID  *string `json:"category"`
	Status      *string `json:"status"`
	Description *string `json:"observation"`
}

// EnvironmentSummary is the per-environment overview of a property.
type EnvironmentSummary struct {
	domain.Environment
	Stats       domain.Stats `json:"stats"`
	LastUpdated *time.Time   `json:"lastUpdated,omitempty"`
}

func validateEnvironment(envID string) error {
	if domain.LookupEnvironment(envID) == nil {
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidInput, envID)
	}
	return nil
}

func validateCategory(categoryID string) error {
	if domain.LookupCategory(categoryID) == nil {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, categoryID)
	}
	return nil
}

// AddObservation records a finding for one category of an environment.
// The status is normalized, so unknown values are stored as ok.
func (s *InspectionService) AddObservation(ctx context.Context, propertyID, envID string, in ObservationInput) (*domain.Observation, error) {
	if err := validateEnvironment(envID); err != nil {
		return nil, err
	}
	if err := validateCategory(in.CategoryID); err != nil {
		return nil, err
	}
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	now := s.now()
	key, err := s.uniqueKey(ctx, propertyID, envID, in.CategoryID, now)
	if err != nil {
		return nil, err
	}

	obs, err := s.observations.Create(ctx, &domain.Observation{
		Key:           key,
		PropertyID:    propertyID,
		EnvironmentID: envID,
		CategoryID:    in.CategoryID,
		Status:        domain.NormalizeSeverity(in.Status),
		Description:   strings.TrimSpace(in.Description),
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	obs.Photos = []*domain.Photo{}

	s.metrics.ObservationRecorded(string(obs.Status))
	s.invalidateStats(ctx, propertyID)
	s.logger.Info("observation recorded", "property_id", propertyID, "environment", envID,
		"key", obs.Key, "status", obs.Status)
	return obs, nil
}

// uniqueKey derives the observation key from the creation time, moving
// forward a millisecond at a time while the key is taken.
func (s *InspectionService) uniqueKey(ctx context.Context, propertyID, envID, categoryID string, t time.Time) (string, error) {
	for {
		key := domain.ObservationKey(categoryID, t)
		existing, err := s.observations.Get(ctx, propertyID, envID, key)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return key, nil
		}
		t = t.Add(time.Millisecond)
	}
}

// QuickObservation records an observation with the default description for
// status.
func (s *InspectionService) QuickObservation(ctx context.Context, propertyID, envID, categoryID, status string) (*domain.Observation, error) {
	description := QuickDefectDescription
	if domain.NormalizeSeverity(status) == domain.SeverityOK {
		description = QuickOKDescription
	}
	return s.AddObservation(ctx, propertyID, envID, ObservationInput{
		CategoryID:  categoryID,
		Status:      status,
		Description: description,
	})
}

func (s *InspectionService) getObservation(ctx context.Context, propertyID, envID, key string) (*domain.Observation, error) {
	obs, err := s.observations.Get(ctx, propertyID, envID, key)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, ErrObservationNotFound
	}
	return obs, nil
}

// GetObservation returns one observation with its photos.
func (s *InspectionService) GetObservation(ctx context.Context, propertyID, envID, key string) (*domain.Observation, error) {
	obs, err := s.getObservation(ctx, propertyID, envID, key)
	if err != nil {
		return nil, err
	}
	if obs.Photos, err = s.photosOf(ctx, obs.ID); err != nil {
		return nil, err
	}
	return obs, nil
}

func (s *InspectionService) UpdateObservation(ctx context.Context, propertyID, envID, key string, upd ObservationUpdate) (*domain.Observation, error) {
	obs, err := s.getObservation(ctx, propertyID, envID, key)
	if err != nil {
		return nil, err
	}

	if upd.CategoryID != nil {
		if err := validateCategory(*upd.CategoryID); err != nil {
			return nil, err
		}
		obs.CategoryID = *upd.CategoryID
	}
	if upd.Status != nil {
		obs.Status = domain.NormalizeSeverity(*upd.Status)
	}
	if upd.Description != nil {
		obs.Description = strings.TrimSpace(*upd.Description)
	}
	now := s.now()
	obs.UpdatedAt = &now

	if err := s.observations.Update(ctx, obs); err != nil {
		if isNotFound(err) {
			return nil, ErrObservationNotFound
		}
		return nil, err
	}
	s.invalidateStats(ctx, propertyID)

	return s.GetObservation(ctx, propertyID, envID, key)
}

// DeleteObservation removes an observation together with its photos.
func (s *InspectionService) DeleteObservation(ctx context.Context, propertyID, envID, key string) error {
	obs, err := s.getObservation(ctx, propertyID, envID, key)
	if err != nil {
		return err
	}
	photos, err := s.photos.ListByObservation(ctx, obs.ID)
	if err != nil {
		return err
	}

	if err := s.observations.Delete(ctx, obs.ID); err != nil {
		if isNotFound(err) {
			return ErrObservationNotFound
		}
		return err
	}

	for _, photo := range photos {
		s.deleteBlob(ctx, photo.StorageKey)
	}
	s.invalidateStats(ctx, propertyID)
	s.logger.Info("observation deleted", "property_id", propertyID, "environment", envID,
		"key", key, "photos", len(photos))
	return nil
}

// Inspections returns every observation of a property grouped by
// environment, in the order environments were first inspected.
func (s *InspectionService) Inspections(ctx context.Context, propertyID string) (domain.InspectionMap, error) {
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.inspections(ctx, propertyID)
}

func (s *InspectionService) inspections(ctx context.Context, propertyID string) (domain.InspectionMap, error) {
	observations, err := s.observations.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	attachPhotos(observations, photos)

	var m domain.InspectionMap
	for _, obs := range observations {
		m = m.Add(obs)
	}
	return m, nil
}

// EnvironmentObservations lists the observations of one environment,
// newest first.
func (s *InspectionService) EnvironmentObservations(ctx context.Context, propertyID, envID string) ([]*domain.Observation, error) {
	if err := validateEnvironment(envID); err != nil {
		return nil, err
	}
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	observations, err := s.observations.ListByEnvironment(ctx, propertyID, envID)
	if err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	attachPhotos(observations, photos)
	domain.SortNewestFirst(observations)
	return observations, nil
}

// EnvironmentSummaries returns one entry per catalog environment, in
// catalog order, with its severity counts.
func (s *InspectionService) EnvironmentSummaries(ctx context.Context, propertyID string) ([]EnvironmentSummary, error) {
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	observations, err := s.observations.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(domain.Environments))
	summaries := make([]EnvironmentSummary, len(domain.Environments))
	for i, env := range domain.Environments {
		summaries[i].Environment = env
		index[env.ID] = i
	}

	for _, obs := range observations {
		i, ok := index[obs.EnvironmentID]
		if !ok {
			continue
		}
		summaries[i].Stats.Add(obs.Status)
		last := obs.CreatedAt
		if obs.UpdatedAt != nil && obs.UpdatedAt.After(last) {
			last = *obs.UpdatedAt
		}
		if summaries[i].LastUpdated == nil || last.After(*summaries[i].LastUpdated) {
			summaries[i].LastUpdated = &last
		}
	}
	return summaries, nil
}

// PropertyStats returns the severity counts of a property, served from the
// stats cache when possible.
func (s *InspectionService) PropertyStats(ctx context.Context, propertyID string) (domain.Stats, error) {
	stats, err := s.stats.Get(ctx, propertyID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("stats cache unavailable", "property_id", propertyID, "error", err)
	}

	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return domain.Stats{}, err
	}
	observations, err := s.observations.ListByProperty(ctx, propertyID)
	if err != nil {
		return domain.Stats{}, err
	}

	stats = domain.Stats{}
	for _, obs := range observations {
		stats.Add(obs.Status)
	}
	if err := s.stats.Set(ctx, propertyID, stats); err != nil {
		s.logger.Warn("failed to cache stats", "property_id", propertyID, "error", err)
	}
	return stats, nil
}

func (s *InspectionService) photosOf(ctx context.Context, observationID int64) ([]*domain.Photo, error) {
	photos, err := s.photos.ListByObservation(ctx, observationID)
	if err != nil {
		return nil, err
	}
	if photos == nil {
		photos = []*domain.Photo{}
	}
	return photos, nil
}

// attachPhotos fills the Photos of each observation, keeping photo order.
func attachPhotos(observations []*domain.Observation, photos []*domain.Photo) {
	byID := make(map[int64]*domain.Observation, len(observations))
	for _, obs := range observations {
		obs.Photos = []*domain.Photo{}
		byID[obs.ID] = obs
	}
	for _, photo := range photos {
		if obs, ok := byID[photo.ObservationID]; ok {
			obs.Photos = append(obs.Photos, photo)
		}
	}
}
