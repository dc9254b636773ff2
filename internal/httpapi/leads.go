package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/emeghara/dialctl/internal/leads"
)

type createLeadRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.Phone == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "phone is required")
		return
	}

	lead, err := s.leadStore.SaveLead(r.Context(), leads.Lead{
		Name:  req.Name,
		Email: strings.TrimSpace(req.Email),
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "lead_save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.leadStore.ListLeads(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "lead_list_failed", err.Error())
		return
	}
	if items == nil {
		items = []leads.Lead{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"leads": items})
}
