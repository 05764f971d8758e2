package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vbonduro/vistoria/internal/cache"
	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/metrics"
	"github.com/vbonduro/vistoria/internal/photostore"
	"github.com/vbonduro/vistoria/internal/report"
	"github.com/vbonduro/vistoria/internal/store"
	"github.com/vbonduro/vistoria/internal/vision"
)

var (
	ErrPropertyNotFound      = errors.New("property not found")
	ErrObservationNotFound   = errors.New("observation not found")
	ErrPhotoNotFound         = errors.New("photo not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrPhotoLimit            = errors.New("photo limit reached")
	ErrAssessmentUnavailable = errors.New("photo assessment is not configured")
)

// propertyRepository is the subset of store.PropertyStore that InspectionService requires.
type propertyRepository interface {
	Create(ctx context.Context, p *domain.Property) (*domain.Property, error)
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	List(ctx context.Context, f store.PropertyFilter) ([]*domain.Property, error)
	UpdateStatus(ctx context.Context, id string, status domain.PropertyStatus) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// observationRepository is the subset of store.ObservationStore that InspectionService requires.
type observationRepository interface {
	Create(ctx context.Context, o *domain.Observation) (*domain.Observation, error)
	Get(ctx context.Context, propertyID, environmentID, key string) (*domain.Observation, error)
	ListByProperty(ctx context.Context, propertyID string) ([]*domain.Observation, error)
	ListByEnvironment(ctx context.Context, propertyID, environmentID string) ([]*domain.Observation, error)
	Update(ctx context.Context, o *domain.Observation) error
	Delete(ctx context.Context, id int64) error
}

// photoRepository is the subset of store.PhotoStore that InspectionService requires.
type photoRepository interface {
	Create(ctx context.Context, photo *domain.Photo, limit int) (*domain.Photo, error)
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
	ListByObservation(ctx context.Context, observationID int64) ([]*domain.Photo, error)
	ListByProperty(ctx context.Context, propertyID string) ([]*domain.Photo, error)
	ListAll(ctx context.Context) ([]*domain.Photo, error)
	CountByObservation(ctx context.Context, observationID int64) (int, error)
	Delete(ctx context.Context, id string) error
}

// settingsRepository is the subset of store.SettingsStore that InspectionService requires.
type settingsRepository interface {
	GetProfile(ctx context.Context) (*domain.Profile, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error
	DeleteAll(ctx context.Context) error
}

// backupRepository replaces every property and observation in one step.
type backupRepository interface {
	Replace(ctx context.Context, properties []*domain.Property, observations []*domain.Observation) error
}

type Option func(*InspectionService)

// WithAssessor enables SuggestObservation.
func WithAssessor(a vision.Assessor) Option {
	return func(s *InspectionService) { s.assessor = a }
}

func WithStatsCache(c cache.StatsCache) Option {
	return func(s *InspectionService) { s.stats = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *InspectionService) { s.metrics = m }
}

// WithReportOptions configures every report generator the service creates.
func WithReportOptions(opts ...report.Option) Option {
	return func(s *InspectionService) { s.reportOpts = append(s.reportOpts, opts...) }
}

// WithLocation sets the time zone of dates in exports.
func WithLocation(loc *time.Location) Option {
	return func(s *InspectionService) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *InspectionService) { s.now = now }
}

// InspectionService implements the property inspection workflow on top of
// the repositories and the photo blob store.
type InspectionService struct {
	properties   propertyRepository
	observations observationRepository
	photos       photoRepository
	settings     settingsRepository
	backups      backupRepository
	blobs        photostore.PhotoStore
	assessor     vision.Assessor
	stats        cache.StatsCache
	metrics      *metrics.Metrics
	reportOpts   []report.Option
	loc          *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

func NewInspectionService(
	properties propertyRepository,
	observations observationRepository,
	photos photoRepository,
	settings settingsRepository,
	backups backupRepository,
	blobs photostore.PhotoStore,
	logger *slog.Logger,
	opts ...Option,
) *InspectionService {
	s := &InspectionService{
		properties:   properties,
		observations: observations,
		photos:       photos,
		settings:     settings,
		backups:      backups,
		blobs:        blobs,
		stats:        cache.NoopStatsCache{},
		loc:          time.Local,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

func (s *InspectionService) invalidateStats(ctx context.Context, propertyID string) {
	if err := s.stats.Invalidate(ctx, propertyID); err != nil {
		s.logger.Warn("failed to invalidate stats cache", "property_id", propertyID, "error", err)
	}
}

// deleteBlob removes a stored photo. Failures are logged only; the database
// row is already gone.
func (s *InspectionService) deleteBlob(ctx context.Context, storageKey string) {
	if err := s.blobs.Delete(ctx, storageKey); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		s.logger.Error("failed to delete photo file", "storage_key", storageKey, "error", err)
	}
}
