// Package transport defines the HTTP request and response shapes for the
// leads module.
package transport

import (
	"time"

	"leadintake_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// SubmitLeadRequest is the public intake form payload. Website is a
// honeypot field; humans never see it, bots fill it in.
type SubmitLeadRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Company string `json:"company" validate:"max=200"`
	Message string `json:"message" validate:"required,max=10000"`
	Phone   string `json:"phone" validate:"max=40"`
	Website string `json:"website" validate:"-"`
}

type ReclassifyRequest struct {
	Classification string `json:"classification" validate:"required"`
}

type EditDraftRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

type RerouteRequest struct {
	Source string `json:"source" validate:"required,oneof=customer support sales"`
	Reason string `json:"reason" validate:"required,max=2000"`
}

type CaseStudyRefRequest struct {
	CaseStudyID uuid.UUID `json:"caseStudyId" validate:"required"`
	Title       string    `json:"title" validate:"required,max=300"`
	SortOrder   int       `json:"sortOrder"`
}

type AttachCaseStudiesRequest struct {
	CaseStudies []CaseStudyRefRequest `json:"caseStudies" validate:"required,dive"`
}

type AddNoteRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type ListLeadsQuery struct {
	Phase    string `form:"phase"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ClassificationEntryResponse mirrors one history entry.
type ClassificationEntryResponse struct {
	Author           string    `json:"author"`
	Classification   string    `json:"classification"`
	Timestamp        time.Time `json:"timestamp"`
	NeedsReview      bool      `json:"needsReview,omitempty"`
	AppliedThreshold *float64  `json:"appliedThreshold,omitempty"`
}

type StatusResponse struct {
	Phase      string     `json:"phase"`
	ReceivedAt time.Time  `json:"receivedAt"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	SentBy     *string    `json:"sentBy,omitempty"`
}

type DraftResponse struct {
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

type LeadResponse struct {
	ID              uuid.UUID                     `json:"id"`
	Name            string                        `json:"name"`
	Email           string                        `json:"email"`
	Company         string                        `json:"company,omitempty"`
	Message         string                        `json:"message"`
	Phone           string                        `json:"phone,omitempty"`
	Status          StatusResponse                `json:"status"`
	TerminalState   *string                       `json:"terminalState,omitempty"`
	Classifications []ClassificationEntryResponse `json:"classifications"`
	BotResearch     *domain.BotResearch           `json:"botResearch,omitempty"`
	Draft           *DraftResponse                `json:"draft,omitempty"`
	CaseStudies     []domain.CaseStudyRef         `json:"caseStudies,omitempty"`
	SupportFeedback *domain.SupportFeedback       `json:"supportFeedback,omitempty"`
	Reroute         *domain.RerouteRecord         `json:"reroute,omitempty"`
	MeetingBookedAt *time.Time                    `json:"meetingBookedAt,omitempty"`
	LastError       *string                       `json:"lastError,omitempty"`
	CreatedAt       time.Time                     `json:"createdAt"`
	UpdatedAt       time.Time                     `json:"updatedAt"`
}

type ListLeadsResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type BookMeetingResponse struct {
	Booked        bool      `json:"booked"`
	AlreadyBooked bool      `json:"alreadyBooked"`
	BookedAt      time.Time `json:"bookedAt"`
}

// FromDomain maps a lead aggregate to its response shape.
func FromDomain(lead *domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:      lead.ID,
		Name:    lead.Submission.Name,
		Email:   lead.Submission.Email,
		Company: lead.Submission.Company,
		Message: lead.Submission.Message,
		Phone:   lead.Submission.Phone,
		Status: StatusResponse{
			Phase:      string(lead.Status.Phase),
			ReceivedAt: lead.Status.ReceivedAt,
			SentAt:     lead.Status.SentAt,
			SentBy:     lead.Status.SentBy,
		},
		Classifications: make([]ClassificationEntryResponse, 0, len(lead.Classifications)),
		BotResearch:     lead.BotResearch,
		CaseStudies:     lead.MatchedCaseStudies,
		SupportFeedback: lead.SupportFeedback,
		Reroute:         lead.Reroute,
		MeetingBookedAt: lead.MeetingBookedAt,
		LastError:       lead.LastError,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}

	if state, ok := lead.TerminalState(); ok {
		text := string(state)
		resp.TerminalState = &text
	}
	for _, entry := range lead.Classifications {
		resp.Classifications = append(resp.Classifications, ClassificationEntryResponse{
			Author:           string(entry.Author),
			Classification:   string(entry.Classification),
			Timestamp:        entry.Timestamp,
			NeedsReview:      entry.NeedsReview,
			AppliedThreshold: entry.AppliedThreshold,
		})
	}
	if lead.Draft != nil {
		resp.Draft = &DraftResponse{
			Body:      lead.Draft.Body,
			CreatedAt: lead.Draft.CreatedAt,
			EditedAt:  lead.Draft.EditedAt,
		}
	}

	return resp
}
