package domain

// TerminalState is the final disposition of a lead once its phase is done.
type TerminalState string

const (
	// TerminalSentMeetingOffer means a personalized meeting offer was sent.
	TerminalSentMeetingOffer TerminalState = "sent_meeting_offer"
	// TerminalSentGeneric means a generic reply was sent.
	TerminalSentGeneric TerminalState = "sent_generic"
	// TerminalForwardedSupport means the inquiry was forwarded to support.
	TerminalForwardedSupport TerminalState = "forwarded_support"
	// TerminalForwardedAccountTeam means the inquiry was forwarded to the
	// account team handling the existing customer.
	TerminalForwardedAccountTeam TerminalState = "forwarded_account_team"
	// TerminalDead means the inquiry was closed without any outbound action.
	TerminalDead TerminalState = "dead"
)

// DeriveTerminalState maps a lead's status and classification history to its
// terminal outcome. Defined only when the phase is done; any other phase
// yields false regardless of classification content. Pure and idempotent;
// read paths call it repeatedly and it must never mutate the lead.
func DeriveTerminalState(status Status, history History) (TerminalState, bool) {
	if status.Phase != PhaseDone {
		return "", false
	}

	current, ok := history.Current()
	if !ok {
		return "", false
	}

	switch current.Classification {
	case ClassificationHighQuality:
		return TerminalSentMeetingOffer, true
	case ClassificationLowQuality:
		return TerminalSentGeneric, true
	case ClassificationSupport:
		return TerminalForwardedSupport, true
	case ClassificationExisting:
		return TerminalForwardedAccountTeam, true
	case ClassificationIrrelevant:
		return TerminalDead, true
	}

	return "", false
}
