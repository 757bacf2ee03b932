package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"dockbook/internal/metrics"
	"dockbook/internal/service"
)

// CreateTemplateRequest is the body for POST /api/templates.
type CreateTemplateRequest struct {
	BranchID     int64  `json:"branch_id"`
	DayOfWeek    int    `json:"day_of_week"` // 1-7 (Monday-Sunday)
	StartTime    string `json:"start_time"`  // "08:00"
	EndTime      string `json:"end_time"`    // "18:00"
	SlotDuration int    `json:"slot_duration"`
}

// ImpactRequest is the body for POST /api/templates/impact.
type ImpactRequest struct {
	BranchID  int64                  `json:"branch_id"`
	DayOfWeek int                    `json:"day_of_week"`
	Proposed  service.ProposedChange `json:"proposed"`
}

// handleTemplates creates or lists schedule templates.
// POST /api/templates | GET /api/templates?branch_id=&day_of_week=&is_active=
func (s *HTTPServer) handleTemplates(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("templates")
	switch r.Method {
	case http.MethodPost:
		var req CreateTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		tpl, err := s.templates.CreateTemplate(r.Context(), req.BranchID, req.DayOfWeek, req.StartTime, req.EndTime, req.SlotDuration)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tpl)

	case http.MethodGet:
		branchID, err := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
		if err != nil || branchID <= 0 {
			writeError(w, http.StatusBadRequest, "branch_id is required")
			return
		}
		filter := service.TemplateFilter{}
		if v := r.URL.Query().Get("day_of_week"); v != "" {
			day, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid day_of_week")
				return
			}
			filter.DayOfWeek = &day
		}
		if v := r.URL.Query().Get("is_active"); v != "" {
			active := v == "true" || v == "1"
			filter.IsActive = &active
		}
		list, err := s.templates.ListTemplates(r.Context(), branchID, filter)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"templates": list})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTemplateByID reads, edits or removes one template. Mutations accept
// ?auto_reschedule=true to let the change proceed despite impacted
// reservations by flagging them for follow-up.
// GET|PUT|DELETE /api/templates/{id}
func (s *HTTPServer) handleTemplateByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("template_by_id")
	idStr := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid template id")
		return
	}
	autoReschedule := r.URL.Query().Get("auto_reschedule") == "true"

	switch r.Method {
	case http.MethodGet:
		tpl, err := s.templates.GetTemplate(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tpl)

	case http.MethodPut:
		var proposed service.ProposedChange
		if err := json.NewDecoder(r.Body).Decode(&proposed); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		report, err := s.templates.UpdateTemplate(r.Context(), id, proposed, autoReschedule)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if !report.Applied {
			// Blocked by impacted reservations; caller must confirm.
			writeJSON(w, http.StatusConflict, report)
			return
		}
		writeJSON(w, http.StatusOK, report)

	case http.MethodDelete:
		report, err := s.templates.DeleteTemplate(r.Context(), id, autoReschedule)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if !report.Applied {
			writeJSON(w, http.StatusConflict, report)
			return
		}
		writeJSON(w, http.StatusOK, report)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleImpact runs a dry-run impact analysis without mutating anything.
// POST /api/templates/impact
func (s *HTTPServer) handleImpact(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("template_impact")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ImpactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := s.templates.AnalyzeImpact(r.Context(), req.BranchID, req.DayOfWeek, req.Proposed)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
