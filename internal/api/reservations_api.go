package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dockbook/internal/metrics"
	"dockbook/internal/models"
	"dockbook/internal/service"
)

// CreateReservationRequest is the body for POST /api/reservations.
type CreateReservationRequest struct {
	RequesterID   int64                 `json:"requester_id"`
	RequesterName string                `json:"requester_name"`
	BranchID      int64                 `json:"branch_id"`
	CustomerName  string                `json:"customer_name"`
	CargoDetails  string                `json:"cargo_details"`
	Date          string                `json:"date"` // YYYY-MM-DD
	StartTime     string                `json:"start_time"`
	EndTime       string                `json:"end_time"`
	Reason        string                `json:"reason"`
	Notes         string                `json:"notes"`
	Docks         []service.DockRequest `json:"docks"`
}

// TransitionRequest is the body for lifecycle transitions.
type TransitionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// handleReservations creates or lists reservations.
// POST /api/reservations | GET /api/reservations?branch_id=&status=&from=&to=&limit=&offset=
func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations")
	switch r.Method {
	case http.MethodPost:
		var req CreateReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		res, err := s.reservations.CreateReservation(r.Context(), service.CreateReservationInput{
			RequesterID:   req.RequesterID,
			RequesterName: req.RequesterName,
			BranchID:      req.BranchID,
			CustomerName:  req.CustomerName,
			CargoDetails:  req.CargoDetails,
			Date:          date,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Reason:        req.Reason,
			Notes:         req.Notes,
			Docks:         req.Docks,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)

	case http.MethodGet:
		filter := service.ReservationFilter{}
		if v := r.URL.Query().Get("branch_id"); v != "" {
			filter.BranchID, _ = strconv.ParseInt(v, 10, 64)
		}
		if v := r.URL.Query().Get("status"); v != "" {
			filter.Status = models.ReservationStatus(v)
		}
		if v := r.URL.Query().Get("from"); v != "" {
			if from, err := time.Parse("2006-01-02", v); err == nil {
				filter.DateFrom = from
			}
		}
		if v := r.URL.Query().Get("to"); v != "" {
			if to, err := time.Parse("2006-01-02", v); err == nil {
				filter.DateTo = to
			}
		}
		filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
		filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
		if filter.Limit <= 0 {
			filter.Limit = 50
		}

		list, total, err := s.reservations.ListReservations(r.Context(), filter)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"reservations": list,
			"total":        total,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleReservationByID dispatches id-scoped reads, edits and lifecycle
// transitions.
// GET|PATCH|DELETE /api/reservations/{id}
// POST /api/reservations/{id}/confirm|complete|reject|cancel
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_by_id")
	rest := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	parts := strings.SplitN(rest, "/", 2)

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	if len(parts) == 2 {
		s.handleReservationAction(w, r, id, parts[1])
		return
	}

	switch r.Method {
	case http.MethodGet:
		res, err := s.reservations.GetReservation(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case http.MethodPatch:
		var input service.UpdateReservationInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		res, err := s.reservations.UpdateReservation(r.Context(), id, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case http.MethodDelete:
		if err := s.reservations.DeleteReservation(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleReservationAction(w http.ResponseWriter, r *http.Request, id int64, action string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TransitionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var res *models.Reservation
	var err error
	switch action {
	case "confirm":
		res, err = s.reservations.Confirm(r.Context(), id)
	case "complete":
		res, err = s.reservations.Complete(r.Context(), id, req.Actor, req.Reason)
	case "reject":
		res, err = s.reservations.Reject(r.Context(), id, req.Actor, req.Reason)
	case "cancel":
		res, err = s.reservations.Cancel(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
