package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vistoria/internal/db"
	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/metrics"
	"github.com/vbonduro/vistoria/internal/photostore/local"
	"github.com/vbonduro/vistoria/internal/service"
	"github.com/vbonduro/vistoria/internal/store"
	"github.com/vbonduro/vistoria/internal/vision"
	"github.com/vbonduro/vistoria/internal/web"
)

// minimalPNG is the PNG signature followed by the start of an IHDR chunk.
// http.DetectContentType identifies PNG from the 8-byte signature.
var minimalPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// fixedAssessor returns the same assessment for every photo.
type fixedAssessor struct {
	result *vision.Assessment
}

func (f *fixedAssessor) Assess(_ context.Context, r io.Reader, _ string) (*vision.Assessment, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return f.result, nil
}

// newTestServer sets up a real web.Server backed by in-memory SQLite and a
// temporary photo directory.
func newTestServer(t *testing.T, opts ...service.Option) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	blobs, err := local.NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	m := metrics.New()
	svc := service.NewInspectionService(
		store.NewPropertyStore(database),
		store.NewObservationStore(database),
		store.NewPhotoStore(database),
		store.NewSettingsStore(database),
		store.NewBackupStore(database),
		blobs,
		slog.Default(),
		append([]service.Option{service.WithMetrics(m)}, opts...)...,
	)
	srv := httptest.NewServer(web.NewServer(svc, m, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

// do sends a JSON request and returns the response with its body read.
func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// buildMultipartBody creates a multipart/form-data body with an "image" field.
func buildMultipartBody(t *testing.T, imageData []byte, caption string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(imageData)
	require.NoError(t, err)
	if caption != "" {
		require.NoError(t, w.WriteField("caption", caption))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func upload(t *testing.T, srv *httptest.Server, path string, imageData []byte, caption string) (*http.Response, []byte) {
	t.Helper()
	body, contentType := buildMultipartBody(t, imageData, caption)
	resp, err := http.Post(srv.URL+path, contentType, body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createProperty(t *testing.T, srv *httptest.Server, client string) *domain.Property {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/api/properties", map[string]any{
		"client":         client,
		"propertyType":   "apartamento",
		"area":           75.5,
		"floors":         1,
		"rooms":          3,
		"address":        "Rua Augusta, 500",
		"inspectionDate": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[*domain.Property](t, body)
}

func createObservation(t *testing.T, srv *httptest.Server, propertyID, env string, req map[string]any) *domain.Observation {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost,
		fmt.Sprintf("/api/properties/%s/environments/%s/observations", propertyID, env), req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[*domain.Observation](t, body)
}

func TestIntegration_Catalog(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var catalog struct {
		Environments []domain.Environment `json:"environments"`
		Categories   []domain.Category    `json:"categories"`
		Severities   []struct {
			Value string `json:"value"`
			Label string `json:"label"`
		} `json:"severities"`
	}
	require.NoError(t, json.Unmarshal(body, &catalog))
	assert.Len(t, catalog.Environments, len(domain.Environments))
	assert.Equal(t, "sala", catalog.Environments[0].ID)
	assert.Len(t, catalog.Categories, len(domain.Categories))
	require.Len(t, catalog.Severities, 4)
	assert.Equal(t, "Crítico", catalog.Severities[3].Label)
}

func TestIntegration_PropertyLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/properties", map[string]any{"client": "Maria"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "address")

	p := createProperty(t, srv, "Maria Silva")
	assert.Equal(t, domain.StatusInProgress, p.Status)
	assert.Equal(t, "2024-03-01", p.InspectionDate.Format("2006-01-02"))

	resp, body = do(t, srv, http.MethodGet, "/api/properties/"+p.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Maria Silva", decode[*domain.Property](t, body).Client)

	resp, body = do(t, srv, http.MethodPatch, "/api/properties/"+p.ID+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusCompleted, decode[*domain.Property](t, body).Status)

	resp, _ = do(t, srv, http.MethodPatch, "/api/properties/"+p.ID+"/status", map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	createProperty(t, srv, "João Pereira")
	resp, body = do(t, srv, http.MethodGet, "/api/properties?q=silva&type=all&status=completed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, "Maria Silva", list[0]["client"])
	assert.Contains(t, list[0], "stats")

	resp, _ = do(t, srv, http.MethodDelete, "/api/properties/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/api/properties/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_InspectionFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	p := createProperty(t, srv, "Maria Silva")
	base := "/api/properties/" + p.ID

	critical := createObservation(t, srv, p.ID, "sala", map[string]any{
		"category":    "eletrica",
		"status":      "critical",
		"observation": "Tomada com fiação exposta",
	})
	assert.Regexp(t, `^eletrica-\d+$`, critical.Key)

	quick := createObservation(t, srv, p.ID, "sala", map[string]any{
		"category": "pisos",
		"status":   "ok",
		"quick":    true,
	})
	assert.Equal(t, service.QuickOKDescription, quick.Description)

	resp, _ := do(t, srv, http.MethodPost, base+"/environments/porao/observations", map[string]any{"category": "pisos"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	obsPath := base + "/environments/sala/observations/" + critical.Key
	resp, body := upload(t, srv, obsPath+"/photos", minimalPNG, "tomada")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	photo := decode[*domain.Photo](t, body)
	assert.Equal(t, "tomada", photo.Caption)

	resp, body = do(t, srv, http.MethodGet, "/api/photos/"+photo.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, minimalPNG, body)

	resp, _ = upload(t, srv, obsPath+"/photos", []byte("not an image"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, base+"/environments/sala/observations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	observations := decode[[]*domain.Observation](t, body)
	require.Len(t, observations, 2)
	// Newest first; the quick observation was recorded last.
	assert.Equal(t, quick.Key, observations[0].Key)
	assert.Equal(t, critical.Key, observations[1].Key)
	photosByKey := make(map[string]int, len(observations))
	for _, o := range observations {
		photosByKey[o.Key] = len(o.Photos)
	}
	assert.Equal(t, 1, photosByKey[critical.Key])
	assert.Equal(t, 0, photosByKey[quick.Key])

	resp, body = do(t, srv, http.MethodPut, obsPath, map[string]any{"status": "major"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decode[*domain.Observation](t, body)
	assert.Equal(t, domain.SeverityMajor, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	resp, body = do(t, srv, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.Stats{Total: 2, OK: 1, Major: 1}, decode[domain.Stats](t, body))

	resp, body = do(t, srv, http.MethodGet, base+"/environments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summaries := decode[[]service.EnvironmentSummary](t, body)
	require.Len(t, summaries, len(domain.Environments))
	assert.Equal(t, 2, summaries[0].Stats.Total)

	resp, body = do(t, srv, http.MethodGet, base+"/report.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "vistoria-maria-silva-")
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, body = do(t, srv, http.MethodGet, base+"/report.xlsx", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))

	resp, _ = do(t, srv, http.MethodDelete, obsPath, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodDelete, obsPath, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/api/photos/"+photo.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vistoria_reports_generated_total{format="pdf"} 1`)
	assert.Contains(t, string(body), `vistoria_observations_recorded_total{severity="critical"} 1`)
}

func TestIntegration_PhotoLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	p := createProperty(t, srv, "Maria")
	obs := createObservation(t, srv, p.ID, "cozinha", map[string]any{"category": "loucas", "status": "minor"})
	path := fmt.Sprintf("/api/properties/%s/environments/cozinha/observations/%s/photos", p.ID, obs.Key)

	for i := 0; i < 10; i++ {
		resp, body := upload(t, srv, path, minimalPNG, "")
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	resp, _ := upload(t, srv, path, minimalPNG, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIntegration_Assess(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := upload(t, srv, "/api/assess", minimalPNG, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv = newTestServer(t, service.WithAssessor(&fixedAssessor{result: &vision.Assessment{
		Status:      domain.SeverityMinor,
		Description: "Pintura descascando",
	}}))
	resp, body := upload(t, srv, "/api/assess", minimalPNG, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[map[string]string](t, body)
	assert.Equal(t, "minor", got["status"])
	assert.Equal(t, "Observação", got["label"])
	assert.Equal(t, "Pintura descascando", got["observation"])
}

func TestIntegration_SettingsAndBackup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPut, "/api/settings", map[string]any{"theme": "dark"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[domain.Settings](t, body)
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "pt-BR", settings.Language)

	resp, body = do(t, srv, http.MethodPost, "/api/settings/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.DefaultSettings(), decode[domain.Settings](t, body))

	profile := domain.Profile{Name: "Ana Lima", Company: "Vistorias SA", Email: "ana@example.com"}
	resp, _ = do(t, srv, http.MethodPut, "/api/profile", profile)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, srv, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, profile, decode[domain.Profile](t, body))

	p := createProperty(t, srv, "Maria Silva")
	createObservation(t, srv, p.ID, "varanda", map[string]any{"category": "varanda_cat", "status": "critical", "observation": "Guarda-corpo solto"})

	resp, backup := do(t, srv, http.MethodGet, "/api/backup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "vistoria-backup-")

	resp, _ = do(t, srv, http.MethodDelete, "/api/data", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = do(t, srv, http.MethodGet, "/api/properties", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/backup", bytes.NewReader(backup))
	require.NoError(t, err)
	importResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = importResp.Body.Close()
	require.Equal(t, http.StatusNoContent, importResp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/properties/"+p.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[domain.Stats](t, body).Critical)

	resp, body = do(t, srv, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, profile, decode[domain.Profile](t, body))

	resp, _ = do(t, srv, http.MethodPost, "/api/backup", strings.Repeat("x", 3))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
