package handler

import (
	"time"

	"gdpgate/internal/domain"
)

// LineRequest is one transaction line as submitted by ERP/WMS integrations.
type LineRequest struct {
	ItemID        string  `json:"item_id"`
	SubstanceCode string  `json:"substance_code"`
	Quantity      float64 `json:"quantity"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	BatchNumber   string  `json:"batch_number,omitempty"`
}

// ValidateRequest is the inbound validation payload. Type and direction are
// parsed into closed enums at this boundary.
type ValidateRequest struct {
	ExternalID         string        `json:"external_id"`
	Type               string        `json:"type"`
	Direction          string        `json:"direction"`
	Customer           customerKey   `json:"customer"`
	OriginCountry      string        `json:"origin_country"`
	DestinationCountry string        `json:"destination_country"`
	Date               *time.Time    `json:"date,omitempty"`
	Lines              []LineRequest `json:"lines"`
	// OverrideJustification accompanies transactions expected to need an
	// override, so the request is created with the submitter's reasoning.
	OverrideJustification string `json:"override_justification,omitempty"`
}

type customerKey struct {
	Account  string `json:"account"`
	DataArea string `json:"data_area"`
}

// ToTransaction parses the payload into the domain model. Enum and structural
// validation happen in domain.Transaction.Validate.
func (r ValidateRequest) ToTransaction() (*domain.Transaction, error) {
	txType, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return nil, err
	}
	direction, err := domain.ParseDirection(r.Direction)
	if err != nil {
		return nil, err
	}
	tx := &domain.Transaction{
		ExternalID:         r.ExternalID,
		Type:               txType,
		Direction:          direction,
		Customer:           domain.CustomerKey{Account: r.Customer.Account, DataArea: r.Customer.DataArea},
		OriginCountry:      r.OriginCountry,
		DestinationCountry: r.DestinationCountry,
		Status:             domain.StatusPending,
	}
	if r.Date != nil {
		tx.Date = *r.Date
	}
	for _, line := range r.Lines {
		tx.Lines = append(tx.Lines, domain.TransactionLine{
			ItemID:        line.ItemID,
			SubstanceCode: line.SubstanceCode,
			Quantity:      line.Quantity,
			UnitOfMeasure: line.UnitOfMeasure,
			BatchNumber:   line.BatchNumber,
		})
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// WarehouseOperationRequest validates a warehouse movement before execution.
// It reuses the transaction rules with the operation mapped to a shipment.
type WarehouseOperationRequest struct {
	OperationID string        `json:"operation_id"`
	Warehouse   string        `json:"warehouse"`
	Customer    customerKey   `json:"customer"`
	Country     string        `json:"country"`
	Lines       []LineRequest `json:"lines"`
}

// ToTransaction maps the warehouse operation onto the transaction model.
func (r WarehouseOperationRequest) ToTransaction() (*domain.Transaction, error) {
	tx := &domain.Transaction{
		ExternalID:         r.OperationID,
		Type:               domain.TransactionShipment,
		Direction:          domain.DirectionOutbound,
		Customer:           domain.CustomerKey{Account: r.Customer.Account, DataArea: r.Customer.DataArea},
		OriginCountry:      r.Country,
		DestinationCountry: r.Country,
		Status:             domain.StatusPending,
	}
	for _, line := range r.Lines {
		tx.Lines = append(tx.Lines, domain.TransactionLine{
			ItemID:        line.ItemID,
			SubstanceCode: line.SubstanceCode,
			Quantity:      line.Quantity,
			UnitOfMeasure: line.UnitOfMeasure,
			BatchNumber:   line.BatchNumber,
		})
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}
