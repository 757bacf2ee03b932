package api

import (
	"net/http"

	"dockbook/internal/metrics"
	"dockbook/internal/models"
)

// handleBranches returns the active branch catalog.
// GET /api/branches
func (s *HTTPServer) handleBranches(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("branches")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	branches, err := s.branches.ListActiveBranches(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if branches == nil {
		branches = []models.Branch{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"branches": branches})
}
