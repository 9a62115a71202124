package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/infrastructure/configloader"
)

const (
	defaultProviderConnectionTimeout = 10 * time.Second
)

// EVMClientProvider dials and caches one EVMClient per chain.
type EVMClientProvider struct {
	networks          port.NetworkDefinitionProvider
	clients           map[uint64]*EVMClient
	mu                sync.Mutex
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCfg            configloader.RpcClientConfig
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(
	networks port.NetworkDefinitionProvider,
	rpcCfg configloader.RpcClientConfig,
	logger port.Logger,
) *EVMClientProvider {
	return &EVMClientProvider{
		networks:          networks,
		clients:           make(map[uint64]*EVMClient),
		logger:            logger.With("component", "evm_client_provider"),
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCfg:            rpcCfg,
	}
}

// GetClient returns the cached client for chainID, dialling it on first use.
func (p *EVMClientProvider) GetClient(ctx context.Context, chainID uint64) (*EVMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[chainID]; exists {
		return client, nil
	}

	netDef, ok := p.networks.GetNetworkDefinitionByChainID(chainID)
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, entity.ErrUnknownChain)
	}

	p.logger.Info("Creating new EVM client", "network", netDef.Name, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := p.dial(ctx, netDef)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", netDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Name, err)
	}

	p.clients[chainID] = newClient
	return newClient, nil
}

func (p *EVMClientProvider) dial(ctx context.Context, netDef entity.NetworkDefinition) (*EVMClient, error) {
	batch := BatchConfig{
		CallTimeout:   time.Duration(p.rpcCfg.DefaultTimeoutMs) * time.Millisecond,
		MaxBatchSize:  p.rpcCfg.MaxBatchSize,
		MaxConcurrent: p.rpcCfg.MaxConcurrentBatches,
	}
	if p.rpcCfg.RateLimit > 0 {
		batch.Limiter = rate.NewLimiter(rate.Limit(p.rpcCfg.RateLimit), max(p.rpcCfg.BurstLimit, 1))
	}

	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error
	for _, rpcURL := range rpcURLs {
		dialCtx, cancel := context.WithTimeout(ctx, p.connectionTimeout)
		ethClient, err := ethclient.DialContext(dialCtx, rpcURL)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}

		client, err := NewEVMClient(ethClient.Client(), netDef, batch)
		if err != nil {
			ethClient.Close()
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// Close closes every cached client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
