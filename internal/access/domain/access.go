package domain

import "encoding/json"

// Operation is a document operation a caller asks to perform.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
)

// IsValid reports whether the base rule set knows the operation.
func (o Operation) IsValid() bool {
	switch o {
	case OperationCreate, OperationRead, OperationUpdate:
		return true
	}
	return false
}

// Document is the conversation-shaped value a decision is taken against.
// Fields holds whatever else the document carries; the guard never reads it.
type Document struct {
	InitiatorUserID string         `json:"initiatorUserId"`
	PartnerUserID   string         `json:"partnerUserId"`
	Fields          map[string]any `json:"-"`
}

// Request asks whether UserID may perform Operation on Document.
type Request struct {
	UserID    string    `json:"userId"`
	Operation Operation `json:"operation"`
	Document  Document  `json:"documentData"`
}

// Decision is the guard's answer. Reason is set on every denial.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

const (
	ReasonNotParticipant   = "not a participant"
	ReasonMustBeInitiator  = "must be initiator to create"
	ReasonUnknownOperation = "operation not permitted"
	ReasonMalformedRequest = "malformed authorization request"
)

// Allow and Deny build decisions.
func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// DeniedError carries a denial through error returns so transport layers can
// map it to 403 with the reason intact.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return "access denied: " + e.Decision.Reason
}

// UnmarshalJSON keeps unknown document fields in Fields. A participant id
// that is not a JSON string decodes as empty, which the guard treats as
// malformed.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.InitiatorUserID, _ = raw["initiatorUserId"].(string)
	d.PartnerUserID, _ = raw["partnerUserId"].(string)
	delete(raw, "initiatorUserId")
	delete(raw, "partnerUserId")
	d.Fields = nil
	if len(raw) > 0 {
		d.Fields = raw
	}
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+2)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["initiatorUserId"] = d.InitiatorUserID
	out["partnerUserId"] = d.PartnerUserID
	return json.Marshal(out)
}
