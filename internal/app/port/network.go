package port

import (
	"context"

	"farm_poller/internal/domain/entity"
)

// ChainDataClient reads farm data for a chain. Any returned error is treated
// by the poller as transient.
type ChainDataClient interface {
	// FetchPoolLength returns the number of pools registered in the chain's MasterChef.
	FetchPoolLength(ctx context.Context, chainID uint64) (int, error)

	// FetchPublicFarmData returns chain-wide metrics for the given pids. The
	// variant selects the data source.
	FetchPublicFarmData(ctx context.Context, chainID uint64, pids []int, variant entity.FlagVariant) (map[int]entity.PublicFarmSnapshot, error)

	// FetchUserFarmData returns the account's positions for the given pids.
	FetchUserFarmData(ctx context.Context, chainID uint64, account string, pids []int) (map[int]entity.UserFarmSnapshot, error)
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all available network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByChainID returns the definition for a chain and true, or false when unknown.
	GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool)
}

// FarmRegistry is the configuration source for a chain's farm list.
type FarmRegistry interface {
	// GetFarmRegistry returns the chain's farms ordered by pid.
	GetFarmRegistry(ctx context.Context, chainID uint64) ([]entity.FarmConfig, error)
}
