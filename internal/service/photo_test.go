package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/photostore"
	"github.com/vbonduro/vistoria/internal/store"
	"github.com/vbonduro/vistoria/internal/vision"
)

func TestAddPhoto(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	p := mustProperty(t, env, "Maria")
	obs := mustObservation(t, env, p.ID, "sala", "pisos", "minor", "Riscos")

	first, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "vista geral")
	require.NoError(t, err)
	assert.Equal(t, "image/png", first.MimeType)
	assert.Equal(t, obs.Key, first.ObservationKey)
	assert.Equal(t, "vista geral", first.Caption)
	assert.Equal(t, 0, first.Position)
	assert.True(t, strings.HasPrefix(first.StorageKey, p.ID+"/sala/"+obs.Key+"/"), first.StorageKey)

	second, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, jpegData(64), "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", second.MimeType)
	assert.Equal(t, 1, second.Position)

	got, err := env.svc.GetObservation(ctx, p.ID, "sala", obs.Key)
	require.NoError(t, err)
	require.Len(t, got.Photos, 2)
	assert.Equal(t, first.ID, got.Photos[0].ID)
}

func TestAddPhotoRejectsBadInput(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	p := mustProperty(t, env, "Maria")
	obs := mustObservation(t, env, p.ID, "sala", "pisos", "ok", "x")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too large", jpegData(photostore.MaxPhotoBytes + 1)},
		{"not an image", []byte("hello world")},
		{"pdf", []byte("%PDF-1.4\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, tt.data, "")
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := env.svc.AddPhoto(ctx, p.ID, "sala", "pisos-1", pngData, "")
	assert.ErrorIs(t, err, ErrObservationNotFound)
}

func TestAddPhotoLimit(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	p := mustProperty(t, env, "Maria")
	obs := mustObservation(t, env, p.ID, "sala", "pisos", "ok", "x")

	for i := 0; i < photostore.MaxPhotosPerObservation; i++ {
		_, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
		require.NoError(t, err)
	}

	_, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
	assert.ErrorIs(t, err, ErrPhotoLimit)
}

func TestAddPhotoLimitUnderConcurrentUploads(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	p := mustProperty(t, env, "Maria")
	obs := mustObservation(t, env, p.ID, "sala", "pisos", "ok", "x")

	for i := 0; i < photostore.MaxPhotosPerObservation-2; i++ {
		_, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
		require.NoError(t, err)
	}

	const uploads = 6
	errs := make([]error, uploads)
	var wg sync.WaitGroup
	for i := range uploads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrPhotoLimit)
	}
	assert.Equal(t, 2, succeeded)

	got, err := env.svc.GetObservation(ctx, p.ID, "sala", obs.Key)
	require.NoError(t, err)
	assert.Len(t, got.Photos, photostore.MaxPhotosPerObservation)
	for _, photo := range got.Photos {
		assert.True(t, blobExists(env, photo.StorageKey))
	}
}

// staleCountPhotos reports no photos, as a count read before a concurrent
// upload committed would.
type staleCountPhotos struct {
	*store.PhotoStore
}

func (staleCountPhotos) CountByObservation(context.Context, int64) (int, error) {
	return 0, nil
}

func TestAddPhotoLimitEnforcedOnInsert(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	p := mustProperty(t, env, "Maria")
	obs := mustObservation(t, env, p.ID, "sala", "pisos", "ok", "x")

	for i := 0; i < photostore.MaxPhotosPerObservation; i++ {
		_, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
		require.NoError(t, err)
	}

	env.svc.photos = staleCountPhotos{env.svc.photos.(*store.PhotoStore)}
	_, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
	assert.ErrorIs(t, err, ErrPhotoLimit)

	got, err := env.svc.GetObservation(ctx, p.ID, "sala", obs.Key)
	require.NoError(t, err)
	assert.Len(t, got.Photos, photostore.MaxPhotosPerObservation)
}

func TestGetAndDeletePhoto(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	p := mustProperty(t, env, "Maria")
	obs := mustObservation(t, env, p.ID, "sala", "pisos", "ok", "x")

	photo, err := env.svc.AddPhoto(ctx, p.ID, "sala", obs.Key, pngData, "")
	require.NoError(t, err)

	got, rc, err := env.svc.GetPhoto(ctx, photo.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, pngData, data)
	assert.Equal(t, "image/png", got.MimeType)

	require.NoError(t, env.svc.DeletePhoto(ctx, photo.ID))
	assert.False(t, blobExists(env, photo.StorageKey))
	assert.ErrorIs(t, env.svc.DeletePhoto(ctx, photo.ID), ErrPhotoNotFound)

	_, _, err = env.svc.GetPhoto(ctx, "missing")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestSuggestObservation(t *testing.T) {
	env := newTestService(t)
	_, err := env.svc.SuggestObservation(context.Background(), pngData)
	assert.ErrorIs(t, err, ErrAssessmentUnavailable)

	assessor := &stubAssessor{result: &vision.Assessment{
		Status:      domain.SeverityMajor,
		Description: "Rachadura na parede",
	}}
	env = newTestService(t, WithAssessor(assessor))

	got, err := env.svc.SuggestObservation(context.Background(), jpegData(32))
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMajor, got.Status)
	assert.Equal(t, "image/jpeg", assessor.mimeType)

	_, err = env.svc.SuggestObservation(context.Background(), []byte("text"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	boom := errors.New("model overloaded")
	env = newTestService(t, WithAssessor(&stubAssessor{err: boom}))
	_, err = env.svc.SuggestObservation(context.Background(), pngData)
	assert.ErrorIs(t, err, boom)
}
