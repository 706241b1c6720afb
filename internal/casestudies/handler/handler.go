// Package handler exposes the case study library over HTTP.
package handler

import (
	"net/http"

	"leadintake_backend/internal/casestudies/service"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxAssetSize = 20 << 20 // 20 MiB

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

type CaseStudyRequest struct {
	Title    string `json:"title" validate:"required,max=300"`
	Summary  string `json:"summary" validate:"required,max=10000"`
	Industry string `json:"industry" validate:"max=200"`
}

// List returns all case studies.
// GET /api/v1/case-studies
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Get returns one case study.
// GET /api/v1/case-studies/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.caseStudyID(c)
	if !ok {
		return
	}
	cs, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, cs)
}

// Create adds a case study and indexes it for matching.
// POST /api/v1/case-studies
func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bindCaseStudy(c)
	if !ok {
		return
	}
	cs, err := h.svc.Create(c.Request.Context(), req.Title, req.Summary, req.Industry)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, cs)
}

// Update rewrites a case study.
// PUT /api/v1/case-studies/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.caseStudyID(c)
	if !ok {
		return
	}
	req, ok := h.bindCaseStudy(c)
	if !ok {
		return
	}
	cs, err := h.svc.Update(c.Request.Context(), id, req.Title, req.Summary, req.Industry)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, cs)
}

// Delete removes a case study and its index point.
// DELETE /api/v1/case-studies/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.caseStudyID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadAsset attaches a downloadable file to a case study.
// POST /api/v1/case-studies/:id/asset
func (h *Handler) UploadAsset(c *gin.Context) {
	id, ok := h.caseStudyID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if fileHeader.Size > maxAssetSize {
		httpkit.Error(c, http.StatusBadRequest, "file exceeds the size limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read uploaded file", nil)
		return
	}
	defer file.Close()

	cs, err := h.svc.UploadAsset(c.Request.Context(), id,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		fileHeader.Size,
	)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, cs)
}

// AssetURL returns a short-lived download URL for a case study's asset.
// GET /api/v1/case-studies/:id/asset
func (h *Handler) AssetURL(c *gin.Context) {
	id, ok := h.caseStudyID(c)
	if !ok {
		return
	}
	url, err := h.svc.AssetURL(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"url": url})
}

func (h *Handler) caseStudyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid case study ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindCaseStudy(c *gin.Context) (CaseStudyRequest, bool) {
	var req CaseStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return req, false
	}
	return req, true
}
