package web

import (
	"io"
	"net/http"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/photostore"
	"github.com/vbonduro/vistoria/internal/service"
)

// maxUploadSize bounds a multipart photo request, leaving room for the
// form overhead around one photo.
const maxUploadSize = photostore.MaxPhotoBytes + 1<<20

type createObservationRequest struct {
	service.ObservationInput
	// Quick records the default description for the status.
	Quick bool `json:"quick"`
}

func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	obs, err := s.service.EnvironmentObservations(r.Context(), r.PathValue("id"), r.PathValue("env"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list observations")
		return
	}
	s.writeJSON(w, http.StatusOK, obs)
}

func (s *Server) handleCreateObservation(w http.ResponseWriter, r *http.Request) {
	var req createObservationRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	propertyID, envID := r.PathValue("id"), r.PathValue("env")
	var (
		obs *domain.Observation
		err error
	)
	if req.Quick {
		obs, err = s.service.QuickObservation(r.Context(), propertyID, envID, req.CategoryID, req.Status)
	} else {
		obs, err = s.service.AddObservation(r.Context(), propertyID, envID, req.ObservationInput)
	}
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create observation")
		return
	}
	s.writeJSON(w, http.StatusCreated, obs)
}

func (s *Server) handleUpdateObservation(w http.ResponseWriter, r *http.Request) {
	var upd service.ObservationUpdate
	if err := decodeJSON(w, r, maxJSONBody, &upd); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obs, err := s.service.UpdateObservation(r.Context(), r.PathValue("id"), r.PathValue("env"), r.PathValue("key"), upd)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update observation")
		return
	}
	s.writeJSON(w, http.StatusOK, obs)
}

func (s *Server) handleDeleteObservation(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteObservation(r.Context(), r.PathValue("id"), r.PathValue("env"), r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to delete observation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readImage reads the "image" field of a multipart form. At most one byte
// past the photo limit is read so oversized uploads are still reported as
// such by the service.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return nil, false
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(io.LimitReader(file, photostore.MaxPhotoBytes+1))
	if err != nil {
		s.logger.Error("read upload failed", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		return nil, false
	}
	return data, true
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readImage(w, r)
	if !ok {
		return
	}

	photo, err := s.service.AddPhoto(r.Context(), r.PathValue("id"), r.PathValue("env"), r.PathValue("key"),
		data, r.FormValue("caption"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to upload photo")
		return
	}
	w.Header().Set("Location", "/api/photos/"+photo.ID)
	s.writeJSON(w, http.StatusCreated, photo)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, reader, err := s.service.GetPhoto(r.Context(), r.PathValue("photoID"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get photo")
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", photo.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "photo_id", photo.ID, "error", err)
	}
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePhoto(r.Context(), r.PathValue("photoID")); err != nil {
		s.writeServiceError(w, r, err, "failed to delete photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assessResponse struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	Description string `json:"observation"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readImage(w, r)
	if !ok {
		return
	}

	a, err := s.service.SuggestObservation(r.Context(), data)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to assess photo")
		return
	}
	s.writeJSON(w, http.StatusOK, assessResponse{
		Status:      string(a.Status),
		Label:       a.Status.Label(),
		Description: a.Description,
	})
}
