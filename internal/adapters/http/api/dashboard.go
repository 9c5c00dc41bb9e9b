package api

import (
	"net/http"
)

// handleDashboard handles GET /dashboard. The page polls /stats and /healthz.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}
