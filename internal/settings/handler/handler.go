// Package handler exposes the settings module over HTTP.
package handler

import (
	"net/http"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/settings/service"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// UpdateConfigurationRequest carries a complete replacement configuration.
// Partial updates are not supported; clients read the active version,
// modify it, and submit the whole thing.
type UpdateConfigurationRequest struct {
	Thresholds struct {
		HighQuality float64 `json:"highQuality" validate:"min=0,max=1"`
		LowQuality  float64 `json:"lowQuality" validate:"min=0,max=1"`
		Support     float64 `json:"support" validate:"min=0,max=1"`
		Existing    float64 `json:"existing" validate:"min=0,max=1"`
		Irrelevant  float64 `json:"irrelevant" validate:"min=0,max=1"`
	} `json:"thresholds" validate:"required"`
	Templates struct {
		SubjectMeetingOffer string `json:"subjectMeetingOffer" validate:"required,max=300"`
		SubjectGeneric      string `json:"subjectGeneric" validate:"required,max=300"`
		Greeting            string `json:"greeting" validate:"required,max=500"`
		GenericBody         string `json:"genericBody" validate:"required,max=20000"`
		CallToAction        string `json:"callToAction" validate:"required,max=1000"`
		Signature           string `json:"signature" validate:"required,max=2000"`
	} `json:"templates" validate:"required"`
}

// GetActive returns the active configuration version.
// GET /api/v1/settings/configuration
func (h *Handler) GetActive(c *gin.Context) {
	cfg, err := h.svc.ActiveConfiguration(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, cfg)
}

// ListVersions returns all configuration versions, newest first.
// GET /api/v1/settings/configurations
func (h *Handler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": versions})
}

// Update installs a new active configuration version.
// PUT /api/v1/settings/configuration
func (h *Handler) Update(c *gin.Context) {
	var req UpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	updatedBy := identity.Email()
	if updatedBy == "" {
		updatedBy = identity.UserID().String()
	}

	cfg, err := h.svc.UpdateConfiguration(c.Request.Context(),
		domain.Thresholds{
			HighQuality: req.Thresholds.HighQuality,
			LowQuality:  req.Thresholds.LowQuality,
			Support:     req.Thresholds.Support,
			Existing:    req.Thresholds.Existing,
			Irrelevant:  req.Thresholds.Irrelevant,
		},
		ports.EmailTemplates{
			SubjectMeetingOffer: req.Templates.SubjectMeetingOffer,
			SubjectGeneric:      req.Templates.SubjectGeneric,
			Greeting:            req.Templates.Greeting,
			GenericBody:         req.Templates.GenericBody,
			CallToAction:        req.Templates.CallToAction,
			Signature:           req.Templates.Signature,
		},
		updatedBy,
	)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, cfg)
}
