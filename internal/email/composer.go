package email

import (
	"fmt"
	"html/template"
	"strings"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/config"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Composer assembles outbound messages from the active configuration's
// templates. The editable draft only ever holds the body; greeting, call
// to action, and signature are applied here, at send time, so template
// changes take effect for every unsent lead.
type Composer struct {
	supportAddr    string
	accountAddr    string
	bookingBaseURL string
}

func NewComposer(cfg config.EmailConfig) *Composer {
	return &Composer{
		supportAddr:    cfg.GetSupportForwardAddress(),
		accountAddr:    cfg.GetAccountTeamForwardAddress(),
		bookingBaseURL: strings.TrimRight(cfg.GetBookingBaseURL(), "/"),
	}
}

var _ ports.MessageComposer = (*Composer)(nil)

func (c *Composer) MeetingOffer(lead *domain.Lead, tmpl ports.EmailTemplates) (ports.OutboundMessage, error) {
	if lead.Draft == nil {
		return ports.OutboundMessage{}, fmt.Errorf("lead %s has no draft", lead.ID)
	}

	bookingURL := fmt.Sprintf("%s/%s", c.bookingBaseURL, lead.ID)
	html, err := renderEmailTemplate("meeting_offer.html", meetingOfferData{
		Greeting:     personalize(tmpl.Greeting, lead),
		Body:         template.HTML(lead.Draft.Body),
		CallToAction: tmpl.CallToAction,
		BookingURL:   bookingURL,
		Signature:    tmpl.Signature,
	})
	if err != nil {
		return ports.OutboundMessage{}, err
	}

	png, err := qrcode.Encode(bookingURL, qrcode.Medium, qrSize)
	if err != nil {
		return ports.OutboundMessage{}, fmt.Errorf("booking qr code: %w", err)
	}

	return ports.OutboundMessage{
		To:      lead.Submission.Email,
		Subject: tmpl.SubjectMeetingOffer,
		HTML:    html,
		Attachments: []ports.Attachment{
			{FileName: "book-a-meeting.png", Content: png},
		},
	}, nil
}

func (c *Composer) Generic(lead *domain.Lead, tmpl ports.EmailTemplates) (ports.OutboundMessage, error) {
	html, err := renderEmailTemplate("generic_reply.html", genericReplyData{
		Greeting:  personalize(tmpl.Greeting, lead),
		Body:      template.HTML(tmpl.GenericBody),
		Signature: tmpl.Signature,
	})
	if err != nil {
		return ports.OutboundMessage{}, err
	}

	return ports.OutboundMessage{
		To:      lead.Submission.Email,
		Subject: tmpl.SubjectGeneric,
		HTML:    html,
	}, nil
}

func (c *Composer) SupportForward(lead *domain.Lead) (ports.OutboundMessage, error) {
	if c.supportAddr == "" {
		return ports.OutboundMessage{}, fmt.Errorf("support forward address not configured")
	}
	return c.forward(lead, c.supportAddr,
		"Support inquiry via sales intake",
		"This inquiry came in through the sales form but looks like a support request.")
}

func (c *Composer) AccountTeamForward(lead *domain.Lead) (ports.OutboundMessage, error) {
	if c.accountAddr == "" {
		return ports.OutboundMessage{}, fmt.Errorf("account team forward address not configured")
	}
	return c.forward(lead, c.accountAddr,
		"Existing customer inquiry via sales intake",
		"This inquiry appears to come from an existing customer and belongs with their account team.")
}

func (c *Composer) forward(lead *domain.Lead, to, heading, reason string) (ports.OutboundMessage, error) {
	data := forwardData{
		Heading: heading,
		Reason:  reason,
		Name:    lead.Submission.Name,
		Email:   lead.Submission.Email,
		Company: lead.Submission.Company,
		Phone:   lead.Submission.Phone,
		Message: lead.Submission.Message,
	}
	if current, ok := lead.Classifications.Current(); ok {
		data.Classification = string(current.Classification)
	}
	if lead.BotResearch != nil {
		data.Confidence = fmt.Sprintf("%.0f%% confidence", lead.BotResearch.Confidence*100)
		data.Reasoning = lead.BotResearch.Reasoning
	}

	html, err := renderEmailTemplate("forward.html", data)
	if err != nil {
		return ports.OutboundMessage{}, err
	}

	return ports.OutboundMessage{
		To:      to,
		Subject: fmt.Sprintf("[Lead intake] %s - %s", heading, lead.Submission.Name),
		HTML:    html,
	}, nil
}

// personalize substitutes the {name} placeholder in configured greetings.
func personalize(greeting string, lead *domain.Lead) string {
	name := lead.Submission.Name
	if name == "" {
		name = "there"
	}
	return strings.ReplaceAll(greeting, "{name}", name)
}
