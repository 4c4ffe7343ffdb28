package dao

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for a future algorithm change.
const (
	DomainEvent  = "treasury/event/v1"
	DomainAction = "treasury/action/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an event. The request ID
// is excluded: it names the call, not what happened, so replaying the
// same history under fresh request IDs yields the same event IDs.
func EventID(daoID string, seq int64, kind EventKind, at int64, payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	obj := map[string]any{
		"dao_id":  daoID,
		"seq":     seq,
		"kind":    string(kind),
		"at":      at,
		"payload": payload,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// ActionHash fingerprints an action so two proposals carrying the same
// effect can be recognized in audit output.
func ActionHash(a Action) (string, error) {
	fields, err := ActionFields(a)
	if err != nil {
		return "", err
	}
	canonical, err := MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("ActionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(daoID string, seq int64, kind EventKind, at int64, payload map[string]any) string {
	id, err := EventID(daoID, seq, kind, at, payload)
	if err != nil {
		panic(err)
	}
	return id
}
