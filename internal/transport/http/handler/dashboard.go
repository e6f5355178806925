package handler

import (
	"net/http"

	"github.com/go-todo-api/internal/application/dashboard"
)

// DashboardHandler serves the admin dashboard aggregates.
type DashboardHandler struct {
	svc dashboard.Service
}

func NewDashboardHandler(svc dashboard.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Overview(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) Priority(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.PriorityBreakdown(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *DashboardHandler) WeeklyActivity(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.WeeklyActivity(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *DashboardHandler) Todos(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Todos(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) Users(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Users(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
