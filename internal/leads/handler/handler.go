// Package handler exposes the leads module over HTTP.
package handler

import (
	"net/http"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/internal/leads/service"
	"leadintake_backend/internal/leads/transport"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Submit accepts a new inquiry from the public form.
// POST /api/v1/leads
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	// Honeypot tripped: answer as if the lead was accepted and drop it.
	if req.Website != "" {
		httpkit.Created(c, gin.H{"id": uuid.New()})
		return
	}

	lead, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Message: req.Message,
		Phone:   req.Phone,
		Source:  "web_form",
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"id": lead.ID})
}

// List returns a page of leads for the review dashboard.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	params := repository.ListParams{
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Phase != "" {
		phase := domain.Phase(query.Phase)
		switch phase {
		case domain.PhaseClassify, domain.PhaseReview, domain.PhaseDone:
			params.Phase = &phase
		default:
			httpkit.Error(c, http.StatusBadRequest, "unknown phase filter", nil)
			return
		}
	}

	result, err := h.svc.ListLeads(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListLeadsResponse{
		Items:      make([]transport.LeadResponse, 0, len(result.Items)),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
	for i := range result.Items {
		resp.Items = append(resp.Items, transport.FromDomain(&result.Items[i]))
	}
	httpkit.OK(c, resp)
}

// Get returns one lead with its full history.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// Reclassify applies a human classification decision.
// POST /api/v1/leads/:id/reclassify
func (h *Handler) Reclassify(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.ReclassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Reclassify(c.Request.Context(), id, actor(c), req.Classification)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// Approve executes the terminal action for a lead in review.
// POST /api/v1/leads/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Approve(c.Request.Context(), id, actor(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// EditDraft replaces the draft body of a lead awaiting approval.
// PUT /api/v1/leads/:id/draft
func (h *Handler) EditDraft(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.EditDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.EditDraft(c.Request.Context(), id, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// Reroute reopens a closed lead whose routing was disputed.
// POST /api/v1/leads/:id/reroute
func (h *Handler) Reroute(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.RerouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.RerouteLead(c.Request.Context(), id, req.Source, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// BookMeeting records a meeting booking from the public booking page.
// POST /api/v1/leads/:id/book-meeting
func (h *Handler) BookMeeting(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	result, err := h.svc.BookMeeting(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.BookMeetingResponse{
		Booked:        !result.AlreadyBooked,
		AlreadyBooked: result.AlreadyBooked,
		BookedAt:      result.BookedAt,
	})
}

// MarkSelfService records support-desk feedback on a forwarded lead.
// POST /api/v1/leads/:id/self-service
func (h *Handler) MarkSelfService(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.MarkSelfService(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// AttachCaseStudies replaces the case studies attached to a lead.
// PUT /api/v1/leads/:id/case-studies
func (h *Handler) AttachCaseStudies(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.AttachCaseStudiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	refs := make([]domain.CaseStudyRef, 0, len(req.CaseStudies))
	for _, ref := range req.CaseStudies {
		refs = append(refs, domain.CaseStudyRef{
			CaseStudyID: ref.CaseStudyID,
			Title:       ref.Title,
			SortOrder:   ref.SortOrder,
		})
	}

	lead, err := h.svc.AttachCaseStudies(c.Request.Context(), id, actor(c), refs)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}

// AddNote appends an internal note to a lead.
// POST /api/v1/leads/:id/notes
func (h *Handler) AddNote(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.AddNote(c.Request.Context(), id, actor(c), req.Body); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// actor identifies the acting reviewer for audit fields: email when the
// token carries one, user id otherwise.
func actor(c *gin.Context) string {
	identity := httpkit.GetIdentity(c)
	if email := identity.Email(); email != "" {
		return email
	}
	return identity.UserID().String()
}
