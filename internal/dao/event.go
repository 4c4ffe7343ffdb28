package dao

// EventKind names a lifecycle event.
type EventKind string

const (
	EventDaoInitialized   EventKind = "DaoInitialized"
	EventProposalCreated  EventKind = "ProposalCreated"
	EventProposalApproved EventKind = "ProposalApproved"
	EventVoteCast         EventKind = "VoteCast"
	EventProposalExecuted EventKind = "ProposalExecuted"
	EventPaymentClaimed   EventKind = "PaymentClaimed"
	EventTokensStaked     EventKind = "TokensStaked"
	EventTokensUnstaked   EventKind = "TokensUnstaked"
)

// Event is an immutable lifecycle record. ID is content-addressed over
// (DaoID, Seq, Kind, At, Payload).
type Event struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	DaoID     string         `json:"dao_id"`
	RequestID string         `json:"request_id"`
	Kind      EventKind      `json:"kind"`
	At        int64          `json:"at"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent builds an event and computes its ID. Payload values must be
// canonical-JSON safe (see MarshalCanonical).
func NewEvent(daoID, requestID string, seq int64, kind EventKind, at int64, payload map[string]any) (Event, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	id, err := EventID(daoID, seq, kind, at, payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        id,
		Seq:       seq,
		DaoID:     daoID,
		RequestID: requestID,
		Kind:      kind,
		At:        at,
		Payload:   payload,
	}, nil
}
