// Package ruledata provides read-only accessors for the rule records the
// validation engine evaluates against: licences, customer compliance
// profiles, and quantity thresholds. Lookups are side-effect-free; a missing
// record (sentinel.ErrNotFound) is a distinct outcome from an unreachable
// dependency (sentinel.ErrUnavailable) and callers must never conflate them.
package ruledata

import (
	"time"

	"gdpgate/internal/domain"

	dErrors "gdpgate/pkg/domain-errors"
)

// LicenceStatus is the lifecycle state of a licence record.
type LicenceStatus string

const (
	LicenceValid     LicenceStatus = "valid"
	LicenceExpired   LicenceStatus = "expired"
	LicenceSuspended LicenceStatus = "suspended"
	LicenceRevoked   LicenceStatus = "revoked"
	LicencePending   LicenceStatus = "pending"
)

var validLicenceStatuses = map[LicenceStatus]bool{
	LicenceValid:     true,
	LicenceExpired:   true,
	LicenceSuspended: true,
	LicenceRevoked:   true,
	LicencePending:   true,
}

// ParseLicenceStatus constructs a LicenceStatus from external input.
func ParseLicenceStatus(s string) (LicenceStatus, error) {
	st := LicenceStatus(s)
	if !validLicenceStatuses[st] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid licence status: "+s)
	}
	return st, nil
}

// HolderType states what kind of party holds a licence.
type HolderType string

const (
	HolderCustomer HolderType = "customer"
	HolderVendor   HolderType = "vendor"
	HolderWarehouse HolderType = "warehouse"
)

// Licence is a controlled-substance authorization issued to a counterparty.
type Licence struct {
	Number           string        `json:"number"`
	Type             string        `json:"type"`
	HolderType       HolderType    `json:"holder_type"`
	HolderID         string        `json:"holder_id"`
	IssuingAuthority string        `json:"issuing_authority"`
	IssueDate        time.Time     `json:"issue_date"`
	ExpiryDate       *time.Time    `json:"expiry_date,omitempty"`
	Status           LicenceStatus `json:"status"`
	// SubstanceScopes lists the substance codes this licence covers. Empty
	// means the licence covers no scope (never matches).
	SubstanceScopes []string `json:"substance_scopes"`
}

// IsCurrent reports whether the licence authorizes activity at the given
// date: status valid and either no expiry or expiry on/after the date.
func (l Licence) IsCurrent(at time.Time) bool {
	if l.Status != LicenceValid {
		return false
	}
	if l.ExpiryDate == nil {
		return true
	}
	return !l.ExpiryDate.Before(at)
}

// Covers reports whether the licence's scope includes the substance code.
func (l Licence) Covers(substanceCode string) bool {
	for _, s := range l.SubstanceScopes {
		if s == substanceCode {
			return true
		}
	}
	return false
}

// ApprovalStatus is a customer's compliance approval state.
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
	ApprovalSuspended   ApprovalStatus = "suspended"
	ApprovalUnderReview ApprovalStatus = "under_review"
)

// GDPStatus is a customer's Good Distribution Practice qualification state.
type GDPStatus string

const (
	GDPNotRequired  GDPStatus = "not_required"
	GDPPending      GDPStatus = "pending"
	GDPQualified    GDPStatus = "qualified"
	GDPDisqualified GDPStatus = "disqualified"
	GDPUnderReview  GDPStatus = "under_review"
)

// CustomerProfile is the compliance standing of a customer. Mutated by
// compliance staff through channels outside this service.
type CustomerProfile struct {
	Customer           domain.CustomerKey `json:"customer"`
	BusinessCategory   string             `json:"business_category"`
	ApprovalStatus     ApprovalStatus     `json:"approval_status"`
	GDPStatus          GDPStatus          `json:"gdp_status"`
	Suspended          bool               `json:"suspended"`
	SuspensionReason   string             `json:"suspension_reason,omitempty"`
	NextReverification *time.Time         `json:"next_reverification,omitempty"`
}

// ReverificationDue reports whether the periodic re-check date has passed.
func (p CustomerProfile) ReverificationDue(now time.Time) bool {
	return p.NextReverification != nil && p.NextReverification.Before(now)
}

// Threshold is a configured quantity ceiling for a substance scope.
type Threshold struct {
	ID string `json:"id"`
	// SubstanceCodes this threshold applies to.
	SubstanceCodes []string `json:"substance_codes"`
	Limit          float64  `json:"limit"`
	Unit           string   `json:"unit"`
	// WarningPercent marks the warning band: quantities at or above
	// limit*WarningPercent/100 but below the limit produce a non-blocking
	// warning.
	WarningPercent float64 `json:"warning_percent"`
	// MaxOverridePercent caps override-eligible excess. Zero means any
	// excess is an absolute rejection.
	MaxOverridePercent float64    `json:"max_override_percent"`
	EffectiveFrom      *time.Time `json:"effective_from,omitempty"`
	EffectiveTo        *time.Time `json:"effective_to,omitempty"`
}

// IsActive reports whether the threshold is inside its effective window. An
// inactive threshold is excluded from evaluation, not a violation.
func (t Threshold) IsActive(at time.Time) bool {
	if t.EffectiveFrom != nil && at.Before(*t.EffectiveFrom) {
		return false
	}
	if t.EffectiveTo != nil && at.After(*t.EffectiveTo) {
		return false
	}
	return true
}

// AppliesTo reports whether the threshold scope includes the substance code.
func (t Threshold) AppliesTo(substanceCode string) bool {
	for _, s := range t.SubstanceCodes {
		if s == substanceCode {
			return true
		}
	}
	return false
}
