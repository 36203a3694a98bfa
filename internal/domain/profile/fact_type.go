package profile

import "strings"

// FactType tags a structured attribute of a relocation profile.
type FactType string

const (
	FactDestination  FactType = "destination"
	FactOrigin       FactType = "origin"
	FactBudget       FactType = "budget"
	FactTimeline     FactType = "timeline"
	FactName         FactType = "name"
	FactFamilySize   FactType = "family_size"
	FactWorkType     FactType = "work_type"
	FactVisaInterest FactType = "visa_interest"
	FactNationality  FactType = "nationality"
	FactProfession   FactType = "profession"
	FactLanguage     FactType = "language"
)

// FactTypes is the enumeration order used when evaluating candidates.
var FactTypes = []FactType{
	FactDestination,
	FactOrigin,
	FactBudget,
	FactTimeline,
	FactName,
	FactFamilySize,
	FactWorkType,
	FactVisaInterest,
	FactNationality,
	FactProfession,
	FactLanguage,
}

func ParseFactType(raw string) (FactType, bool) {
	s := FactType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range FactTypes {
		if t == s {
			return t, true
		}
	}
	return "", false
}

// FactSource records where a fact value came from.
type FactSource string

const (
	SourceConversation FactSource = "conversation"
	SourceUserEdit     FactSource = "user_edit"
	SourceUserVerified FactSource = "user_verified"
	SourceInferred     FactSource = "inferred"
	SourceImported     FactSource = "imported"
)

func (s FactSource) Valid() bool {
	switch s {
	case SourceConversation, SourceUserEdit, SourceUserVerified, SourceInferred, SourceImported:
		return true
	default:
		return false
	}
}

// ConfirmationStatus moves pending -> approved or pending -> rejected, never back.
type ConfirmationStatus string

const (
	StatusPending  ConfirmationStatus = "pending"
	StatusApproved ConfirmationStatus = "approved"
	StatusRejected ConfirmationStatus = "rejected"
)

// Decision is the user's verdict on a pending confirmation.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(raw string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionApprove:
		return DecisionApprove, true
	case DecisionReject:
		return DecisionReject, true
	default:
		return "", false
	}
}

// Status returns the terminal status a decision resolves to.
func (d Decision) Status() ConfirmationStatus {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}
