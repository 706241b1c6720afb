package ports

import "leadintake_backend/internal/leads/domain"

// MessageComposer assembles outbound emails from a lead and the active
// templates. Forward destinations and booking links come from the
// implementation's own configuration.
type MessageComposer interface {
	// MeetingOffer wraps the approved draft body in greeting, call to
	// action, and signature, and attaches the booking QR code.
	MeetingOffer(lead *domain.Lead, tmpl EmailTemplates) (OutboundMessage, error)
	// Generic builds the polite decline from the configured generic body.
	Generic(lead *domain.Lead, tmpl EmailTemplates) (OutboundMessage, error)
	// SupportForward packages the inquiry for the support desk.
	SupportForward(lead *domain.Lead) (OutboundMessage, error)
	// AccountTeamForward packages the inquiry for the account team.
	AccountTeamForward(lead *domain.Lead) (OutboundMessage, error)
}
