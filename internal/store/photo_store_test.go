package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vistoria/internal/domain"
)

func seedObservation(t *testing.T, observations *ObservationStore, propertyID, env string) *domain.Observation {
	t.Helper()
	o, err := observations.Create(context.Background(), newObservation(propertyID, env, "pisos", domain.SeverityOK, time.Now()))
	require.NoError(t, err)
	return o
}

func newPhoto(id string, observationID int64) *domain.Photo {
	return &domain.Photo{
		ID:            id,
		ObservationID: observationID,
		StorageKey:    "p1/" + id + ".jpg",
		MimeType:      "image/jpeg",
		CapturedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPhotoStoreCreate(t *testing.T) {
	d := openTestDB(t)
	seedProperty(t, NewPropertyStore(d), "p1")
	obs := seedObservation(t, NewObservationStore(d), "p1", "sala")
	photos := NewPhotoStore(d)
	ctx := context.Background()

	photo, err := photos.Create(ctx, newPhoto("ph1", obs.ID), 10)
	require.NoError(t, err)
	assert.Equal(t, "ph1", photo.ID)
	assert.Equal(t, obs.ID, photo.ObservationID)
	assert.Equal(t, obs.Key, photo.ObservationKey)
	assert.Equal(t, "p1/ph1.jpg", photo.StorageKey)
	assert.Equal(t, "image/jpeg", photo.MimeType)
	assert.Equal(t, 0, photo.Position)
}

func TestPhotoStorePositionsFollowInsertion(t *testing.T) {
	d := openTestDB(t)
	seedProperty(t, NewPropertyStore(d), "p1")
	obs := seedObservation(t, NewObservationStore(d), "p1", "sala")
	photos := NewPhotoStore(d)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := photos.Create(ctx, newPhoto(id, obs.ID), 10)
		require.NoError(t, err)
	}
	require.NoError(t, photos.Delete(ctx, "b"))
	_, err := photos.Create(ctx, newPhoto("d", obs.ID), 10)
	require.NoError(t, err)

	list, err := photos.ListByObservation(ctx, obs.ID)
	require.NoError(t, err)
	var ids []string
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)

	n, err := photos.CountByObservation(ctx, obs.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPhotoStoreCreateStopsAtLimit(t *testing.T) {
	d := openTestDB(t)
	seedProperty(t, NewPropertyStore(d), "p1")
	obs := seedObservation(t, NewObservationStore(d), "p1", "sala")
	photos := NewPhotoStore(d)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := photos.Create(ctx, newPhoto(id, obs.ID), 2)
		require.NoError(t, err)
	}

	photo, err := photos.Create(ctx, newPhoto("c", obs.ID), 2)
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.Nil(t, photo)

	got, err := photos.GetByID(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := photos.CountByObservation(ctx, obs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPhotoStoreListByProperty(t *testing.T) {
	d := openTestDB(t)
	properties := NewPropertyStore(d)
	observations := NewObservationStore(d)
	seedProperty(t, properties, "p1")
	seedProperty(t, properties, "p2")
	o1 := seedObservation(t, observations, "p1", "sala")
	o2 := seedObservation(t, observations, "p2", "sala")
	photos := NewPhotoStore(d)
	ctx := context.Background()

	_, err := photos.Create(ctx, newPhoto("a", o1.ID), 10)
	require.NoError(t, err)
	_, err = photos.Create(ctx, newPhoto("b", o2.ID), 10)
	require.NoError(t, err)

	list, err := photos.ListByProperty(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	all, err := photos.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPhotoStoreCascadeOnObservationDelete(t *testing.T) {
	d := openTestDB(t)
	seedProperty(t, NewPropertyStore(d), "p1")
	observations := NewObservationStore(d)
	obs := seedObservation(t, observations, "p1", "sala")
	photos := NewPhotoStore(d)
	ctx := context.Background()

	_, err := photos.Create(ctx, newPhoto("a", obs.ID), 10)
	require.NoError(t, err)
	require.NoError(t, observations.Delete(ctx, obs.ID))

	got, err := photos.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPhotoStoreDelete_NotFound(t *testing.T) {
	photos := NewPhotoStore(openTestDB(t))

	err := photos.Delete(context.Background(), "missing")
	assert.Error(t, err)
}
