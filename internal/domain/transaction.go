// Package domain holds the transaction model shared by the qualifier,
// threshold evaluator, and validation orchestrator. Enums are constructed via
// Parse functions at trust boundaries; internal logic never re-validates raw
// strings.
package domain

import (
	"time"

	dErrors "gdpgate/pkg/domain-errors"
)

// TransactionType classifies commercial movements of controlled substances.
type TransactionType string

const (
	TransactionOrder    TransactionType = "order"
	TransactionShipment TransactionType = "shipment"
	TransactionReturn   TransactionType = "return"
	TransactionTransfer TransactionType = "transfer"
)

var validTransactionTypes = map[TransactionType]bool{
	TransactionOrder:    true,
	TransactionShipment: true,
	TransactionReturn:   true,
	TransactionTransfer: true,
}

// ParseTransactionType constructs a TransactionType from external input.
func ParseTransactionType(s string) (TransactionType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "transaction type cannot be empty")
	}
	t := TransactionType(s)
	if !validTransactionTypes[t] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid transaction type: "+s)
	}
	return t, nil
}

// IsValid checks if the type is one of the supported enum values.
func (t TransactionType) IsValid() bool { return validTransactionTypes[t] }

func (t TransactionType) String() string { return string(t) }

// Direction states which way goods move relative to the distributing entity.
type Direction string

const (
	DirectionInternal Direction = "internal"
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

var validDirections = map[Direction]bool{
	DirectionInternal: true,
	DirectionInbound:  true,
	DirectionOutbound: true,
}

// ParseDirection constructs a Direction from external input.
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "direction cannot be empty")
	}
	d := Direction(s)
	if !validDirections[d] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid direction: "+s)
	}
	return d, nil
}

func (d Direction) IsValid() bool { return validDirections[d] }

func (d Direction) String() string { return string(d) }

// ValidationStatus is the lifecycle state of a transaction's verdict.
type ValidationStatus string

const (
	StatusPending          ValidationStatus = "pending"
	StatusValid            ValidationStatus = "valid"
	StatusInvalid          ValidationStatus = "invalid"
	StatusOverrideRequired ValidationStatus = "override_required"
	StatusOverrideApproved ValidationStatus = "override_approved"
)

// CustomerKey is the composite customer reference (ERP account + data area).
type CustomerKey struct {
	Account  string `json:"account"`
	DataArea string `json:"data_area"`
}

// Validate checks the key is fully populated.
func (k CustomerKey) Validate() error {
	if k.Account == "" || k.DataArea == "" {
		return dErrors.New(dErrors.CodeValidation, "customer account and data area are required")
	}
	return nil
}

// String renders the key in store-key form.
func (k CustomerKey) String() string { return k.Account + "@" + k.DataArea }

// TransactionLine is a single item position. Owned exclusively by its
// transaction; never shared.
type TransactionLine struct {
	ItemID        string  `json:"item_id"`
	SubstanceCode string  `json:"substance_code"`
	Quantity      float64 `json:"quantity"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	BatchNumber   string  `json:"batch_number,omitempty"`
}

// Transaction is the unit submitted for compliance validation. Immutable once
// validated except for status transitions driven by the override workflow.
type Transaction struct {
	ExternalID         string            `json:"external_id"`
	Type               TransactionType   `json:"type"`
	Direction          Direction         `json:"direction"`
	Customer           CustomerKey       `json:"customer"`
	OriginCountry      string            `json:"origin_country"`
	DestinationCountry string            `json:"destination_country"`
	Lines              []TransactionLine `json:"lines"`
	Date               time.Time         `json:"date"`
	Status             ValidationStatus  `json:"status"`
}

// Validate enforces structural invariants before any rule evaluation runs.
func (t *Transaction) Validate() error {
	if t.ExternalID == "" {
		return dErrors.New(dErrors.CodeValidation, "transaction external id is required")
	}
	if !t.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid transaction type")
	}
	if !t.Direction.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid transaction direction")
	}
	if err := t.Customer.Validate(); err != nil {
		return err
	}
	if !isCountryCode(t.OriginCountry) || !isCountryCode(t.DestinationCountry) {
		return dErrors.New(dErrors.CodeValidation, "origin and destination must be ISO alpha-2 country codes")
	}
	if len(t.Lines) == 0 {
		return dErrors.New(dErrors.CodeValidation, "transaction must have at least one line")
	}
	for i, line := range t.Lines {
		if line.ItemID == "" {
			return dErrors.Newf(dErrors.CodeValidation, "line %d: item id is required", i)
		}
		if line.SubstanceCode == "" {
			return dErrors.Newf(dErrors.CodeValidation, "line %d: substance code is required", i)
		}
		if line.Quantity <= 0 {
			return dErrors.Newf(dErrors.CodeValidation, "line %d: quantity must be positive", i)
		}
	}
	return nil
}

// EvaluationDate is the date rules evaluate against: the transaction date
// when present, otherwise now.
func (t *Transaction) EvaluationDate(now time.Time) time.Time {
	if t.Date.IsZero() {
		return now
	}
	return t.Date
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
