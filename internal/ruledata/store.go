package ruledata

import (
	"context"

	"gdpgate/internal/domain"
)

// LicenceStore reads licence records. Implementations return
// sentinel.ErrNotFound when a record is absent and sentinel.ErrUnavailable
// (wrapped) when the backing dependency cannot be reached.
type LicenceStore interface {
	FindByNumber(ctx context.Context, number string) (*Licence, error)
	// ListByHolder returns all licences held by the given customer,
	// regardless of status; the qualifier decides currency.
	ListByHolder(ctx context.Context, customer domain.CustomerKey) ([]Licence, error)
}

// ProfileStore reads customer compliance profiles.
type ProfileStore interface {
	FindByCustomer(ctx context.Context, customer domain.CustomerKey) (*CustomerProfile, error)
}

// ThresholdStore reads threshold definitions.
type ThresholdStore interface {
	// ListByScope returns every threshold whose scope includes the
	// substance code, active or not; the evaluator applies effective
	// windows.
	ListByScope(ctx context.Context, substanceCode string) ([]Threshold, error)
}
