// Package usecase holds the conversation access guard: a pure decision over
// participant identity with no I/O and no shared mutable state.
//
// The decision is only binding when the caller evaluates it against the
// document state it is about to mutate, inside the same transaction.
package usecase

import (
	"aura-backend/internal/access/domain"
)

// rule evaluates one operation. Rules only run on well-formed requests.
type rule func(req domain.Request) domain.Decision

var rules = map[domain.Operation]rule{
	domain.OperationRead:   participantRule,
	domain.OperationUpdate: participantRule,
	domain.OperationCreate: initiatorRule,
}

func participantRule(req domain.Request) domain.Decision {
	if req.UserID == req.Document.InitiatorUserID || req.UserID == req.Document.PartnerUserID {
		return domain.Allow()
	}
	return domain.Deny(domain.ReasonNotParticipant)
}

func initiatorRule(req domain.Request) domain.Decision {
	if req.UserID == req.Document.InitiatorUserID {
		return domain.Allow()
	}
	return domain.Deny(domain.ReasonMustBeInitiator)
}

// Decide returns exactly one decision for every request. Malformed requests
// and operations outside the rule table are denied.
func Decide(req domain.Request) domain.Decision {
	if !wellFormed(req) {
		return domain.Deny(domain.ReasonMalformedRequest)
	}

	r, ok := rules[req.Operation]
	if !ok {
		return domain.Deny(domain.ReasonUnknownOperation)
	}
	return r(req)
}

// wellFormed requires a caller identity and two distinct participants.
func wellFormed(req domain.Request) bool {
	d := req.Document
	return req.UserID != "" &&
		d.InitiatorUserID != "" &&
		d.PartnerUserID != "" &&
		d.InitiatorUserID != d.PartnerUserID
}

// Enforce is Decide for callers that work with errors: a denial comes back as
// *domain.DeniedError.
func Enforce(req domain.Request) error {
	if d := Decide(req); !d.Allowed {
		return &domain.DeniedError{Decision: d}
	}
	return nil
}
