package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	ActorID      string // Who performed the action
	OnBehalfOf   string // Account acted upon under delegation, if any
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionRentalAcquire    AuditAction = "rental.acquire"
	AuditActionRentalCancel     AuditAction = "rental.cancel"
	AuditActionWalletDeposit    AuditAction = "wallet.deposit"
	AuditActionDelegationIssued AuditAction = "delegation.issue"
	AuditActionPricingUpdate    AuditAction = "pricing.update"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID    string
	OnBehalfOf string
	Action     string
	Limit      int
	Offset     int
}

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}
