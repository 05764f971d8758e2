package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/store"
)

// Backup is the full application state as exported from the settings page.
// Photos are listed with their observations but their image data is not
// included.
type Backup struct {
	Properties  []*domain.Property              `json:"properties"`
	Inspections map[string]domain.InspectionMap `json:"inspections"`
	Settings    *domain.Settings                `json:"settings,omitempty"`
	Profile     *domain.Profile                 `json:"userProfile,omitempty"`
	ExportDate  time.Time                       `json:"exportDate"`
}

// BackupFilename is the download name of a backup taken at t.
func BackupFilename(t time.Time) string {
	return fmt.Sprintf("vistoria-backup-%s.json", t.Format("2006-01-02"))
}

// Profile returns the stored author profile, or an empty one.
func (s *InspectionService) Profile(ctx context.Context) (domain.Profile, error) {
	p, err := s.settings.GetProfile(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if p == nil {
		return domain.Profile{}, nil
	}
	return *p, nil
}

func (s *InspectionService) SaveProfile(ctx context.Context, p domain.Profile) error {
	return s.settings.SaveProfile(ctx, p)
}

func (s *InspectionService) Settings(ctx context.Context) (domain.Settings, error) {
	return s.settings.GetSettings(ctx)
}

func (s *InspectionService) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.settings.SaveSettings(ctx, settings)
}

// ResetSettings restores the default settings and returns them.
func (s *InspectionService) ResetSettings(ctx context.Context) (domain.Settings, error) {
	defaults := domain.DefaultSettings()
	if err := s.settings.SaveSettings(ctx, defaults); err != nil {
		return domain.Settings{}, err
	}
	return defaults, nil
}

// ExportBackup collects every property with its inspections, the settings
// and the author profile.
func (s *InspectionService) ExportBackup(ctx context.Context) (*Backup, error) {
	properties, err := s.properties.List(ctx, store.PropertyFilter{})
	if err != nil {
		return nil, err
	}

	b := &Backup{
		Properties:  properties,
		Inspections: make(map[string]domain.InspectionMap, len(properties)),
		ExportDate:  s.now().UTC(),
	}
	if b.Properties == nil {
		b.Properties = []*domain.Property{}
	}
	for _, p := range properties {
		m, err := s.inspections(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			b.Inspections[p.ID] = m
		}
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	b.Settings = &settings
	if b.Profile, err = s.settings.GetProfile(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("backup exported", "properties", len(properties))
	return b, nil
}

// ImportBackup overwrites the stored state with b. Sections missing from b
// are left untouched; when properties are present every existing property
// is replaced. Photos are not restored. The whole backup is checked first
// and properties are swapped in one transaction, so a rejected or failed
// import leaves the stored data as it was.
func (s *InspectionService) ImportBackup(ctx context.Context, b *Backup) error {
	if b == nil {
		return fmt.Errorf("%w: empty backup", ErrInvalidInput)
	}
	if err := b.validate(); err != nil {
		return err
	}
	observations, err := s.prepareImport(b)
	if err != nil {
		return err
	}

	if b.Properties != nil {
		if err := s.replaceProperties(ctx, b.Properties, observations); err != nil {
			return err
		}
	}
	if b.Settings != nil {
		if err := s.settings.SaveSettings(ctx, *b.Settings); err != nil {
			return err
		}
	}
	if b.Profile != nil {
		if err := s.settings.SaveProfile(ctx, *b.Profile); err != nil {
			return err
		}
	}

	s.logger.Info("backup imported", "properties", len(b.Properties), "observations", len(observations))
	return nil
}

// validate checks property ids before anything is written. Properties
// without an id get a fresh one.
func (b *Backup) validate() error {
	seen := make(map[string]bool, len(b.Properties))
	for i, p := range b.Properties {
		if p == nil {
			return fmt.Errorf("%w: property %d is empty", ErrInvalidInput, i)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate property id %q", ErrInvalidInput, p.ID)
		}
		seen[p.ID] = true
	}
	for id := range b.Inspections {
		if !seen[id] {
			return fmt.Errorf("%w: inspections for unknown property %q", ErrInvalidInput, id)
		}
	}
	return nil
}

// prepareImport fills property defaults and flattens the inspections of b
// into observations ready to insert. Every observation must name a known
// environment and category, and keys must be unique per environment.
func (s *InspectionService) prepareImport(b *Backup) ([]*domain.Observation, error) {
	var observations []*domain.Observation
	for _, p := range b.Properties {
		if !p.Status.Valid() {
			p.Status = domain.StatusInProgress
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}

		keys := make(map[string]bool)
		for _, entry := range b.Inspections[p.ID] {
			if err := validateEnvironment(entry.EnvironmentID); err != nil {
				return nil, fmt.Errorf("property %q: %w", p.ID, err)
			}
			for i, obs := range entry.Observations {
				if obs == nil {
					return nil, fmt.Errorf("%w: property %q environment %q: observation %d is empty",
						ErrInvalidInput, p.ID, entry.EnvironmentID, i)
				}
				if err := validateCategory(obs.CategoryID); err != nil {
					return nil, fmt.Errorf("property %q: %w", p.ID, err)
				}

				o := *obs
				o.ID = 0
				o.PropertyID = p.ID
				o.EnvironmentID = entry.EnvironmentID
				o.Status = domain.NormalizeSeverity(string(o.Status))
				if o.CreatedAt.IsZero() {
					o.CreatedAt = s.now()
				}
				if o.Key == "" {
					o.Key = domain.ObservationKey(o.CategoryID, o.CreatedAt)
				}

				envKey := entry.EnvironmentID + "/" + o.Key
				if keys[envKey] {
					return nil, fmt.Errorf("%w: property %q environment %q: duplicate observation key %q",
						ErrInvalidInput, p.ID, entry.EnvironmentID, o.Key)
				}
				keys[envKey] = true
				observations = append(observations, &o)
			}
		}
	}
	return observations, nil
}

// replaceProperties swaps every stored property for properties. Photo
// files of the old properties are removed only once the swap committed.
func (s *InspectionService) replaceProperties(ctx context.Context, properties []*domain.Property, observations []*domain.Observation) error {
	old, err := s.properties.List(ctx, store.PropertyFilter{})
	if err != nil {
		return err
	}
	photos, err := s.photos.ListAll(ctx)
	if err != nil {
		return err
	}

	if err := s.backups.Replace(ctx, properties, observations); err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}

	for _, photo := range photos {
		s.deleteBlob(ctx, photo.StorageKey)
	}
	for _, p := range old {
		s.invalidateStats(ctx, p.ID)
	}
	for _, p := range properties {
		s.invalidateStats(ctx, p.ID)
	}
	return nil
}

// ResetAll deletes every property, photo, setting and the profile.
func (s *InspectionService) ResetAll(ctx context.Context) error {
	if err := s.clearProperties(ctx); err != nil {
		return err
	}
	if err := s.settings.DeleteAll(ctx); err != nil {
		return err
	}
	s.logger.Warn("all data deleted")
	return nil
}

// clearProperties removes every property and its stored photo files.
func (s *InspectionService) clearProperties(ctx context.Context) error {
	properties, err := s.properties.List(ctx, store.PropertyFilter{})
	if err != nil {
		return err
	}
	photos, err := s.photos.ListAll(ctx)
	if err != nil {
		return err
	}

	if err := s.properties.DeleteAll(ctx); err != nil {
		return err
	}
	for _, photo := range photos {
		s.deleteBlob(ctx, photo.StorageKey)
	}
	for _, p := range properties {
		s.invalidateStats(ctx, p.ID)
	}
	return nil
}
