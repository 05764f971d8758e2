package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/service"
)

const maxBackupBody = 50 << 20 // 50 MB

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.Settings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get settings")
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	// Fields missing from the request keep their current values.
	settings, err := s.service.Settings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get settings")
		return
	}
	if err := decodeJSON(w, r, maxJSONBody, &settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SaveSettings(r.Context(), settings); err != nil {
		s.writeServiceError(w, r, err, "failed to save settings")
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.ResetSettings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to reset settings")
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.Profile(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get profile")
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if err := decodeJSON(w, r, maxJSONBody, &profile); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SaveProfile(r.Context(), profile); err != nil {
		s.writeServiceError(w, r, err, "failed to save profile")
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := s.service.ExportBackup(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to export backup")
		return
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		s.writeServiceError(w, r, err, "failed to encode backup")
		return
	}
	s.writeFile(w, &service.File{
		Name:        service.BackupFilename(backup.ExportDate),
		ContentType: "application/json",
		Data:        data,
	})
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	var backup service.Backup
	if err := decodeJSON(w, r, maxBackupBody, &backup); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid backup file: %v", err))
		return
	}

	if err := s.service.ImportBackup(r.Context(), &backup); err != nil {
		s.writeServiceError(w, r, err, "failed to import backup")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetAll(r.Context()); err != nil {
		s.writeServiceError(w, r, err, "failed to delete data")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
