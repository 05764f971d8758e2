package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vistoria/internal/db"
	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/metrics"
	"github.com/vbonduro/vistoria/internal/photostore/local"
	"github.com/vbonduro/vistoria/internal/store"
	"github.com/vbonduro/vistoria/internal/vision"
)

var testStart = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

// pngData is the smallest payload DetectMIME accepts as a PNG.
var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

// stubAssessor is a minimal vision.Assessor for tests.
type stubAssessor struct {
	result   *vision.Assessment
	err      error
	mimeType string
}

func (s *stubAssessor) Assess(_ context.Context, r io.Reader, mimeType string) (*vision.Assessment, error) {
	_, _ = io.ReadAll(r)
	s.mimeType = mimeType
	return s.result, s.err
}

type testEnv struct {
	svc     *InspectionService
	blobs   *local.LocalPhotoStore
	metrics *metrics.Metrics
}

func newTestService(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	blobs, err := local.NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	m := metrics.New()
	opts = append([]Option{
		WithClock(stepClock(testStart, time.Second)),
		WithLocation(time.UTC),
		WithMetrics(m),
	}, opts...)

	svc := NewInspectionService(
		store.NewPropertyStore(d),
		store.NewObservationStore(d),
		store.NewPhotoStore(d),
		store.NewSettingsStore(d),
		store.NewBackupStore(d),
		blobs,
		slog.Default(),
		opts...,
	)
	return &testEnv{svc: svc, blobs: blobs, metrics: m}
}

func validInput(client string) PropertyInput {
	return PropertyInput{
		Client:         client,
		PropertyType:   "casa",
		Area:           120,
		Floors:         2,
		Rooms:          4,
		Address:        "Rua das Flores, 42",
		InspectionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func mustProperty(t *testing.T, env *testEnv, client string) *domain.Property {
	t.Helper()
	p, err := env.svc.CreateProperty(context.Background(), validInput(client))
	require.NoError(t, err)
	return p
}

func mustObservation(t *testing.T, env *testEnv, propertyID, envID, category, status, desc string) *domain.Observation {
	t.Helper()
	obs, err := env.svc.AddObservation(context.Background(), propertyID, envID, ObservationInput{
		CategoryID:  category,
		Status:      status,
		Description: desc,
	})
	require.NoError(t, err)
	return obs
}

func blobExists(env *testEnv, key string) bool {
	rc, _, err := env.blobs.Get(context.Background(), key)
	if err != nil {
		return false
	}
	_ = rc.Close()
	return true
}

func jpegData(n int) []byte {
	data := bytes.Repeat([]byte{0}, n)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}
