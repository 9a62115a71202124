package client

import (
	"context"
	"fmt"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
)

// ChainReaderProvider hands out the on-chain reader for a chain.
type ChainReaderProvider interface {
	GetClient(ctx context.Context, chainID uint64) (*EVMClient, error)
}

// PublicFarmAPI is the alternate data source used under the api flag.
type PublicFarmAPI interface {
	GetPublicFarmData(ctx context.Context, apiChainID string, pids []int) (map[int]entity.PublicFarmSnapshot, error)
}

// FarmDataClient implements port.ChainDataClient. Public data comes from the
// farms API when the variant is api and from MasterChef otherwise; pool length
// and user data always come from chain.
type FarmDataClient struct {
	chains   ChainReaderProvider
	networks port.NetworkDefinitionProvider
	registry port.FarmRegistry
	api      PublicFarmAPI
	pricer   port.FarmPricer
	logger   port.Logger
}

// NewFarmDataClient wires the data sources together. api may be nil, in which
// case the api variant falls back to chain reads.
func NewFarmDataClient(
	chains ChainReaderProvider,
	networks port.NetworkDefinitionProvider,
	registry port.FarmRegistry,
	api PublicFarmAPI,
	pricer port.FarmPricer,
	logger port.Logger,
) *FarmDataClient {
	return &FarmDataClient{
		chains:   chains,
		networks: networks,
		registry: registry,
		api:      api,
		pricer:   pricer,
		logger:   logger.With("component", "farm_data_client"),
	}
}

// FetchPoolLength implements port.ChainDataClient.
func (c *FarmDataClient) FetchPoolLength(ctx context.Context, chainID uint64) (int, error) {
	reader, err := c.chains.GetClient(ctx, chainID)
	if err != nil {
		return 0, err
	}
	return reader.FetchPoolLength(ctx)
}

// FetchPublicFarmData implements port.ChainDataClient.
func (c *FarmDataClient) FetchPublicFarmData(ctx context.Context, chainID uint64, pids []int, variant entity.FlagVariant) (map[int]entity.PublicFarmSnapshot, error) {
	if variant.IsAPI() && c.api != nil {
		netDef, ok := c.networks.GetNetworkDefinitionByChainID(chainID)
		if !ok {
			return nil, fmt.Errorf("chain %d: %w", chainID, entity.ErrUnknownChain)
		}
		return c.api.GetPublicFarmData(ctx, netDef.FarmsAPIChainID, pids)
	}

	farms, err := c.farmsFor(ctx, chainID, pids)
	if err != nil {
		return nil, err
	}
	reader, err := c.chains.GetClient(ctx, chainID)
	if err != nil {
		return nil, err
	}
	data, err := reader.FetchPublicFarmData(ctx, farms)
	if err != nil {
		return nil, err
	}
	if c.pricer != nil {
		data = c.pricer.PriceFarms(farms, data)
	}
	return data, nil
}

// FetchUserFarmData implements port.ChainDataClient.
func (c *FarmDataClient) FetchUserFarmData(ctx context.Context, chainID uint64, account string, pids []int) (map[int]entity.UserFarmSnapshot, error) {
	farms, err := c.farmsFor(ctx, chainID, pids)
	if err != nil {
		return nil, err
	}
	reader, err := c.chains.GetClient(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return reader.FetchUserFarmData(ctx, account, farms)
}

// farmsFor resolves pids to registry entries, skipping pids the registry does
// not know.
func (c *FarmDataClient) farmsFor(ctx context.Context, chainID uint64, pids []int) ([]entity.FarmConfig, error) {
	registry, err := c.registry.GetFarmRegistry(ctx, chainID)
	if err != nil {
		return nil, err
	}
	byPid := make(map[int]entity.FarmConfig, len(registry))
	for _, f := range registry {
		byPid[f.Pid] = f
	}

	farms := make([]entity.FarmConfig, 0, len(pids))
	for _, pid := range pids {
		f, ok := byPid[pid]
		if !ok {
			c.logger.Warn("Pid not in farm registry, skipping", "chain_id", chainID, "pid", pid)
			continue
		}
		farms = append(farms, f)
	}
	return farms, nil
}
