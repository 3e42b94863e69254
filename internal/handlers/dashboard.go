package handlers

import (
	"net/http"

	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/services"
)

type DashboardHandler struct {
	Svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{Svc: svc}
}

// Get: GET /dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, _ *http.Request) {
	figures, err := h.Svc.Compute()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_compute_dashboard", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, figures)
}
