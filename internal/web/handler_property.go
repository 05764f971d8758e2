package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/service"
	"github.com/vbonduro/vistoria/internal/store"
)

type severityEntry struct {
	Value domain.Severity `json:"value"`
	domain.SeverityStyle
}

type catalogResponse struct {
	Environments  []domain.Environment    `json:"environments"`
	Categories    []domain.Category       `json:"categories"`
	PropertyTypes []domain.PropertyType   `json:"propertyTypes"`
	Severities    []severityEntry         `json:"severities"`
	Statuses      []domain.PropertyStatus `json:"statuses"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	resp := catalogResponse{
		Environments:  domain.Environments,
		Categories:    domain.Categories,
		PropertyTypes: domain.PropertyTypes,
		Statuses:      []domain.PropertyStatus{domain.StatusInProgress, domain.StatusCompleted, domain.StatusDraft},
	}
	for _, sev := range domain.Severities {
		resp.Severities = append(resp.Severities, severityEntry{Value: sev, SeverityStyle: sev.Style()})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// propertyListItem is a property with the counts shown in the history list.
type propertyListItem struct {
	*domain.Property
	Stats domain.Stats `json:"stats"`
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	properties, err := s.service.ListProperties(r.Context(), store.PropertyFilter{
		PropertyType: q.Get("type"),
		Status:       domain.PropertyStatus(q.Get("status")),
		Query:        q.Get("q"),
	})
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list properties")
		return
	}

	items := make([]propertyListItem, 0, len(properties))
	for _, p := range properties {
		stats, err := s.service.PropertyStats(r.Context(), p.ID)
		if err != nil {
			s.writeServiceError(w, r, err, "failed to get property stats")
			return
		}
		items = append(items, propertyListItem{Property: p, Stats: stats})
	}
	s.writeJSON(w, http.StatusOK, items)
}

// createPropertyRequest accepts the inspection date either as a plain
// date or as RFC 3339.
type createPropertyRequest struct {
	Client         string  `json:"client"`
	PropertyType   string  `json:"propertyType"`
	Area           float64 `json:"area"`
	Floors         int     `json:"floors"`
	Rooms          int     `json:"rooms"`
	Address        string  `json:"address"`
	InspectionDate string  `json:"inspectionDate"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var req createPropertyRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDate(req.InspectionDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid inspection date")
		return
	}

	p, err := s.service.CreateProperty(r.Context(), service.PropertyInput{
		Client:         req.Client,
		PropertyType:   req.PropertyType,
		Area:           req.Area,
		Floors:         req.Floors,
		Rooms:          req.Rooms,
		Address:        req.Address,
		InspectionDate: date,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create property")
		return
	}
	w.Header().Set("Location", "/api/properties/"+p.ID)
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetProperty(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get property")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.PropertyStatus `json:"status"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.service.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update status")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProperty(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err, "failed to delete property")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnvironmentSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.EnvironmentSummaries(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list environments")
		return
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handlePropertyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.PropertyStats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get property stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	f, err := s.service.GenerateReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to generate report")
		return
	}
	s.writeFile(w, f)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	f, err := s.service.ExportSpreadsheet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to export spreadsheet")
		return
	}
	s.writeFile(w, f)
}
