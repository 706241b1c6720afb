// Package handler exposes the analytics reports over HTTP.
package handler

import (
	"net/http"
	"time"

	"leadintake_backend/internal/analytics/service"
	"leadintake_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Agreement returns the human versus AI agreement report.
// GET /api/v1/analytics/agreement?since=2026-01-01T00:00:00Z
func (h *Handler) Agreement(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}

	r, err := h.svc.AgreementReport(c.Request.Context(), since)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, r)
}

// EventCounts returns per-type analytics event volumes.
// GET /api/v1/analytics/events
func (h *Handler) EventCounts(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}

	counts, err := h.svc.EventCounts(c.Request.Context(), since)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"counts": counts})
}

func sinceParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return time.Time{}, true
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "since must be RFC 3339", nil)
		return time.Time{}, false
	}
	return since, true
}
