package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store (a rule being absent is a
//   distinct outcome from the store being unreachable)
// - ErrConflict: entity already exists or a unique constraint was violated
// - ErrInvalidState: entity in wrong state for requested transition
// - ErrExpired: entity aged past its configured lifetime
// - ErrUnavailable: dependency unreachable; must never pass as a business verdict
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")
	ErrUnavailable  = errors.New("unavailable")
)
