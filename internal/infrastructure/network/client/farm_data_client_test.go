package client

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm_poller/internal/domain/entity"
	"farm_poller/internal/pkg/logger"
)

type stubReaders struct{ client *EVMClient }

func (s stubReaders) GetClient(_ context.Context, chainID uint64) (*EVMClient, error) {
	if chainID != 56 {
		return nil, entity.ErrUnknownChain
	}
	return s.client, nil
}

type stubNetworks struct{}

func (stubNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition { return nil }

func (stubNetworks) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if chainID != 56 {
		return entity.NetworkDefinition{}, false
	}
	return entity.NetworkDefinition{ChainID: 56, FarmsAPIChainID: "bsc"}, true
}

type stubRegistry struct{}

func (stubRegistry) GetFarmRegistry(context.Context, uint64) ([]entity.FarmConfig, error) {
	return []entity.FarmConfig{cakeBnbFarm}, nil
}

type stubAPI struct {
	chainID string
	pids    []int
}

func (s *stubAPI) GetPublicFarmData(_ context.Context, apiChainID string, pids []int) (map[int]entity.PublicFarmSnapshot, error) {
	s.chainID, s.pids = apiChainID, pids
	return map[int]entity.PublicFarmSnapshot{2: {Pid: 2, TokenPriceBusd: decimal.NewFromInt(5)}}, nil
}

type markingPricer struct{ called bool }

func (m *markingPricer) PriceFarms(_ []entity.FarmConfig, data map[int]entity.PublicFarmSnapshot) map[int]entity.PublicFarmSnapshot {
	m.called = true
	for pid, s := range data {
		s.TokenPriceBusd = decimal.NewFromInt(1)
		data[pid] = s
	}
	return data
}

func TestFarmDataClient_APIVariantUsesFarmsAPI(t *testing.T) {
	api := &stubAPI{}
	pricer := &markingPricer{}
	c := NewFarmDataClient(stubReaders{}, stubNetworks{}, stubRegistry{}, api, pricer, logger.NewDiscard())

	got, err := c.FetchPublicFarmData(context.Background(), 56, []int{2, 3}, entity.FlagAPI)
	require.NoError(t, err)

	assert.Equal(t, "bsc", api.chainID)
	assert.Equal(t, []int{2, 3}, api.pids)
	assert.True(t, decimal.NewFromInt(5).Equal(got[2].TokenPriceBusd))
	assert.False(t, pricer.called)

	_, err = c.FetchPublicFarmData(context.Background(), 1, []int{2}, entity.FlagAPI)
	assert.ErrorIs(t, err, entity.ErrUnknownChain)
}

func TestFarmDataClient_DefaultVariantReadsChainAndPrices(t *testing.T) {
	chain, srv := newFakeChain(t)
	chain.seedPublic(t)
	pricer := &markingPricer{}
	api := &stubAPI{}
	c := NewFarmDataClient(stubReaders{client: newTestEVMClient(t, srv, 50)}, stubNetworks{}, stubRegistry{}, api, pricer, logger.NewDiscard())

	// pid 99 is not in the registry and is skipped.
	got, err := c.FetchPublicFarmData(context.Background(), 56, []int{2, 99}, entity.FlagDefault)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.True(t, pricer.called)
	assert.True(t, decimal.NewFromInt(1).Equal(got[2].TokenPriceBusd))
	assert.Empty(t, api.chainID)
}

func TestFarmDataClient_PoolLengthAndUser(t *testing.T) {
	chain, srv := newFakeChain(t)
	chain.expect(t, masterChefAddr, parsedMasterChefABI, "poolLength", nil, big.NewInt(7))
	c := NewFarmDataClient(stubReaders{client: newTestEVMClient(t, srv, 50)}, stubNetworks{}, stubRegistry{}, nil, nil, logger.NewDiscard())

	n, err := c.FetchPoolLength(context.Background(), 56)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = c.FetchPoolLength(context.Background(), 1)
	assert.True(t, errors.Is(err, entity.ErrUnknownChain))

	_, err = c.FetchUserFarmData(context.Background(), 56, "not-hex", []int{2})
	assert.ErrorIs(t, err, entity.ErrInvalidAccount)
}
