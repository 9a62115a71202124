package networkdefinition

import (
	"fmt"
	"sort"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/infrastructure/configloader"
)

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	allNetworkDefs    map[uint64]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "Ethereum Mainnet",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL: "https://etherscan.io",
		FarmsAPIChainID:  "1",
	}
	Goerli = entity.NetworkDefinition{
		ChainID:          5,
		Name:             "Goerli Testnet",
		Identifier:       "goerli",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://ethereum-goerli.publicnode.com",
		BlockExplorerURL: "https://goerli.etherscan.io",
		FarmsAPIChainID:  "5",
	}
	BSC = entity.NetworkDefinition{
		ChainID:           56,
		Name:              "BNB Smart Chain",
		Identifier:        "bsc",
		NativeSymbol:      "BNB",
		PrimaryRPCURL:     "https://bsc-dataseed1.binance.org/",
		FallbackRPCURLs:   []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		MasterChefAddress: "0x73feaa1eE314F8c655E354234017bE2193C9E24E",
		BlockExplorerURL:  "https://bscscan.com",
		FarmsAPIChainID:   "56",
	}
	BSCTestnet = entity.NetworkDefinition{
		ChainID:          97,
		Name:             "BNB Smart Chain Testnet",
		Identifier:       "bsc-testnet",
		NativeSymbol:     "tBNB",
		PrimaryRPCURL:    "https://data-seed-prebsc-1-s1.binance.org:8545/",
		FallbackRPCURLs:  []string{"https://bsc-testnet.publicnode.com"},
		BlockExplorerURL: "https://testnet.bscscan.com",
		FarmsAPIChainID:  "97",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:          137,
		Name:             "Polygon PoS",
		Identifier:       "polygon",
		NativeSymbol:     "MATIC",
		PrimaryRPCURL:    "https://polygon-rpc.com/",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
		FarmsAPIChainID:  "137",
	}
)

var allKnownDefinitions = map[uint64]entity.NetworkDefinition{ //nolint:gochecknoglobals // Global for definitions
	Ethereum.ChainID:   Ethereum,
	Goerli.ChainID:     Goerli,
	BSC.ChainID:        BSC,
	BSCTestnet.ChainID: BSCTestnet,
	Polygon.ChainID:    Polygon,
}

// NewNetworkDefinitionProvider creates a provider whose active networks are
// the configured nodes layered over the built-in definitions. With no
// configured nodes every built-in network is active.
func NewNetworkDefinitionProvider(log port.Logger, nodes []configloader.NetworkNode) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:            log,
		allNetworkDefs:    make(map[uint64]entity.NetworkDefinition, len(allKnownDefinitions)),
		activeNetworkDefs: make([]entity.NetworkDefinition, 0),
	}
	for id, def := range allKnownDefinitions {
		p.allNetworkDefs[id] = def
	}

	if len(nodes) == 0 {
		for _, def := range p.allNetworkDefs {
			p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		}
	}

	for _, node := range nodes {
		def, known := p.allNetworkDefs[node.ChainID]
		if !known {
			def = entity.NetworkDefinition{ChainID: node.ChainID, Identifier: fmt.Sprintf("chain-%d", node.ChainID)}
			p.logger.Debug("Network has no built-in definition, using configuration only", "chain_id", node.ChainID)
		}
		def = overlay(def, node)
		if def.PrimaryRPCURL == "" {
			p.logger.Warn("Network has no RPC endpoint, skipping", "chain_id", node.ChainID, "name", def.Name)
			continue
		}
		p.allNetworkDefs[def.ChainID] = def
		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
	}

	sort.Slice(p.activeNetworkDefs, func(i, j int) bool {
		return p.activeNetworkDefs[i].ChainID < p.activeNetworkDefs[j].ChainID
	})

	p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Active networks: %d", len(p.activeNetworkDefs)))
	for _, netDef := range p.activeNetworkDefs {
		p.logger.Debug(fmt.Sprintf("  - Active network: %s (ChainID: %d, MasterChef: %s)", netDef.Name, netDef.ChainID, netDef.MasterChefAddress))
	}
	return p
}

func overlay(def entity.NetworkDefinition, node configloader.NetworkNode) entity.NetworkDefinition {
	if node.Name != "" {
		def.Name = node.Name
	}
	if node.Endpoint != "" {
		def.PrimaryRPCURL = node.Endpoint
	}
	if len(node.FallbackEndpoints) > 0 {
		def.FallbackRPCURLs = append([]string(nil), node.FallbackEndpoints...)
	}
	if node.MasterChefAddress != "" {
		def.MasterChefAddress = node.MasterChefAddress
	}
	if node.FarmsAPIChainID != "" {
		def.FarmsAPIChainID = node.FarmsAPIChainID
	}
	return def
}

// GetAllNetworkDefinitions returns the list of active network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	if _, known := p.allNetworkDefs[chainID]; known {
		p.logger.Warn(fmt.Sprintf("Network with ChainID %d found in all definitions but not in active tracked list.", chainID))
	}
	return entity.NetworkDefinition{}, false
}
