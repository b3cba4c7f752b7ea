package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

const (
	AuditEntityFee         = "monthly_fee"
	AuditEntityTransaction = "transaction"
	AuditEntityHostel      = "hostel"
)

const (
	AuditActionPaymentRecorded     = "payment.recorded"
	AuditActionAdjustmentRecorded  = "adjustment.recorded"
	AuditActionTransactionUpdated  = "transaction.updated"
	AuditActionTransactionDeleted  = "transaction.deleted"
	AuditActionFeeRecalculated     = "fee.recalculated"
	AuditActionFeeCreated          = "fee.created"
	AuditActionCarryForwardUpdated = "fee.carry_forward_updated"
	AuditActionPeriodGenerated     = "period.generated"
)

// AuditEntry is an old/new snapshot of a ledger change.
type AuditEntry struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	EntityType string            `json:"entity_type" db:"entity_type"`
	EntityID   string            `json:"entity_id" db:"entity_id"`
	Action     string            `json:"action" db:"action"`
	OldValues  types.JSONText    `json:"old_values,omitempty" db:"old_values"`
	NewValues  types.JSONText    `json:"new_values,omitempty" db:"new_values"`
	Metadata   map[string]string `json:"metadata,omitempty" db:"-"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

type AuditOption func(*AuditEntry)

func WithOld(v any) AuditOption {
	return func(e *AuditEntry) {
		e.OldValues = snapshot(v)
	}
}

func WithNew(v any) AuditOption {
	return func(e *AuditEntry) {
		e.NewValues = snapshot(v)
	}
}

func WithMetadata(key, value string) AuditOption {
	return func(e *AuditEntry) {
		e.Metadata[key] = value
	}
}

func NewAuditEntry(entityType, entityID, action string, now time.Time, opts ...AuditOption) *AuditEntry {
	e := &AuditEntry{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Metadata:   make(map[string]string),
		CreatedAt:  now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func snapshot(v any) types.JSONText {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return types.JSONText(b)
}
