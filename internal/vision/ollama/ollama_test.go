package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vistoria/internal/domain"
)

func generateServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.False(t, req.Stream)
		assert.Len(t, req.Images, 1)

		resp := map[string]interface{}{
			"model":    req.Model,
			"response": response,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOllamaAssess(t *testing.T) {
	server := generateServer(t, "Avaliação:\n**critical** | Fiação exposta próxima à pia")

	assessor := NewOllamaAssessor(server.URL, "llava")

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	result, err := assessor.Assess(context.Background(), bytes.NewReader(imageData), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityCritical, result.Status)
	assert.Equal(t, "Fiação exposta próxima à pia", result.Description)
	assert.Contains(t, result.RawResponse, "Avaliação")
}

func TestOllamaAssessUnparseable(t *testing.T) {
	server := generateServer(t, "I see a kitchen.")

	_, err := NewOllamaAssessor(server.URL, "llava").
		Assess(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
	assert.Error(t, err)
}

func TestOllamaAssessNetworkError(t *testing.T) {
	assessor := NewOllamaAssessor("http://localhost:99999", "llava")

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	_, err := assessor.Assess(context.Background(), bytes.NewReader(imageData), "image/jpeg")

	assert.Error(t, err)
}

func TestOllamaAssessInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assessor := NewOllamaAssessor(server.URL, "llava")

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	_, err := assessor.Assess(context.Background(), bytes.NewReader(imageData), "image/jpeg")

	assert.Error(t, err)
}

func TestOllamaAssessReadError(t *testing.T) {
	assessor := NewOllamaAssessor("http://localhost:11434", "llava")

	_, err := assessor.Assess(context.Background(), &errReader{}, "image/jpeg")

	assert.Error(t, err)
}

type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
