package entity

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID           uint64   `json:"chainId" yaml:"chainId"`
	Name              string   `json:"name" yaml:"name"`
	Identifier        string   `json:"identifier" yaml:"identifier"` // e.g. "bsc", "ethereum"
	NativeSymbol      string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	PrimaryRPCURL     string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs   []string `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	MasterChefAddress string   `json:"masterChefAddress" yaml:"masterChefAddress"`
	FarmsAPIChainID   string   `json:"farmsApiChainId,omitempty" yaml:"farmsApiChainId,omitempty"`
	BlockExplorerURL  string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}
