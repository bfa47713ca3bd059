package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryFunds covers events that move value in or out of escrow.
	// These are written in the same transaction as the ledger change.
	CategoryFunds EventCategory = "funds"

	// CategoryClaims covers events that only change who holds a name.
	CategoryClaims EventCategory = "claims"
)

// Event is emitted from ledger transitions. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// NameHash is the hex digest of the affected name.
	NameHash string
	// Name is empty for reservations, which only reveal the hash.
	Name string
	// Actor is the account that issued the call; Owner is the record owner
	// after the transition. They differ when escrow is settled on takeover.
	Actor  string
	Owner  string
	Amount string
	// ExpiresAt is the reservation or registration expiry set by the call.
	ExpiresAt uint64
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	EventNameReserved   AuditEvent = "name_reserved"
	EventNameRegistered AuditEvent = "name_registered"
	EventNameRenewed    AuditEvent = "name_renewed"
	EventNameWithdrawn  AuditEvent = "name_withdrawn"
	EventEscrowSettled  AuditEvent = "escrow_settled"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventNameReserved:   CategoryClaims,
	EventNameRegistered: CategoryFunds,
	EventNameRenewed:    CategoryFunds,
	EventNameWithdrawn:  CategoryFunds,
	EventEscrowSettled:  CategoryFunds,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryClaims.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryClaims
}
