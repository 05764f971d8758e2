package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/photostore"
	"github.com/vbonduro/vistoria/internal/store"
	"github.com/vbonduro/vistoria/internal/vision"
)

// sniffImage checks the size and type of an uploaded photo.
func sniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty photo", ErrInvalidInput)
	}
	if len(data) > photostore.MaxPhotoBytes {
		return "", fmt.Errorf("%w: photo exceeds %d MB", ErrInvalidInput, photostore.MaxPhotoBytes/(1024*1024))
	}
	mimeType, ok := photostore.DetectMIME(data)
	if !ok {
		return "", fmt.Errorf("%w: unsupported photo type %q", ErrInvalidInput, mimeType)
	}
	return mimeType, nil
}

// AddPhoto stores an image and attaches it to an observation after its
// existing photos.
func (s *InspectionService) AddPhoto(ctx context.Context, propertyID, envID, key string, data []byte, caption string) (*domain.Photo, error) {
	mimeType, err := sniffImage(data)
	if err != nil {
		return nil, err
	}

	obs, err := s.getObservation(ctx, propertyID, envID, key)
	if err != nil {
		return nil, err
	}
	count, err := s.photos.CountByObservation(ctx, obs.ID)
	if err != nil {
		return nil, err
	}
	if count >= photostore.MaxPhotosPerObservation {
		return nil, fmt.Errorf("%w: at most %d photos per observation", ErrPhotoLimit, photostore.MaxPhotosPerObservation)
	}

	s.logger.Info("upload photo started", "property_id", propertyID, "key", key,
		"mime_type", mimeType, "bytes", len(data))

	prefix := path.Join(propertyID, envID, obs.Key)
	storageKey, err := s.blobs.Save(ctx, prefix, mimeType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "property_id", propertyID, "storage_key", storageKey)

	photo, err := s.photos.Create(ctx, &domain.Photo{
		ID:            uuid.NewString(),
		ObservationID: obs.ID,
		StorageKey:    storageKey,
		MimeType:      mimeType,
		Caption:       caption,
		CapturedAt:    s.now(),
	}, photostore.MaxPhotosPerObservation)
	if err != nil {
		s.deleteBlob(ctx, storageKey)
		if errors.Is(err, store.ErrLimitReached) {
			return nil, fmt.Errorf("%w: at most %d photos per observation", ErrPhotoLimit, photostore.MaxPhotosPerObservation)
		}
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}
	return photo, nil
}

// GetPhoto opens a stored photo. The caller closes the reader.
func (s *InspectionService) GetPhoto(ctx context.Context, id string) (*domain.Photo, io.ReadCloser, error) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if photo == nil {
		return nil, nil, ErrPhotoNotFound
	}

	rc, _, err := s.blobs.Get(ctx, photo.StorageKey)
	if err != nil {
		if errors.Is(err, photostore.ErrNotFound) {
			return nil, nil, ErrPhotoNotFound
		}
		return nil, nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return photo, rc, nil
}

func (s *InspectionService) DeletePhoto(ctx context.Context, id string) error {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if photo == nil {
		return ErrPhotoNotFound
	}

	if err := s.photos.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("failed to delete photo record: %w", err)
	}
	s.deleteBlob(ctx, photo.StorageKey)
	return nil
}

// SuggestObservation asks the vision backend for a status and description
// of the item shown in a photo. Nothing is stored.
func (s *InspectionService) SuggestObservation(ctx context.Context, data []byte) (*vision.Assessment, error) {
	if s.assessor == nil {
		return nil, ErrAssessmentUnavailable
	}
	mimeType, err := sniffImage(data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("vision assessment started", "mime_type", mimeType, "bytes", len(data))
	assessment, err := s.assessor.Assess(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to assess photo: %w", err)
	}
	s.logger.Info("vision assessment complete", "status", assessment.Status)
	return assessment, nil
}
