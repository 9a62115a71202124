package entity

import "errors"

var (
	// ErrUnknownChain is returned when no network or registry is configured for a chain.
	ErrUnknownChain = errors.New("unknown chain")
	// ErrFarmNotFound is returned when a pid or lp symbol is not present for a chain.
	ErrFarmNotFound = errors.New("farm not found")
	// ErrInvalidAccount is returned for account strings that are not hex addresses.
	ErrInvalidAccount = errors.New("invalid account address")
	// ErrNoCoreFarms is returned when a chain has no core farm subset.
	ErrNoCoreFarms = errors.New("no core farms for chain")
)
