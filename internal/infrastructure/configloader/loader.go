package configloader

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Poller    PollerConfig    `yaml:"poller"`
	Session   SessionConfig   `yaml:"session"`
	Networks  []NetworkNode   `yaml:"networks"`
	Registry  RegistryConfig  `yaml:"registry"`
	FarmsAPI  FarmsAPIConfig  `yaml:"farmsApi"`
	RpcClient RpcClientConfig `yaml:"rpcClient"`
	Cache     CacheConfig     `yaml:"cache"`
	Swagger   SwaggerConfig   `yaml:"swagger"`
}

// ServerConfig holds the server-specific configuration. Timeouts are in seconds.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// PollerConfig holds the refresh cadences in milliseconds.
type PollerConfig struct {
	FastIntervalMs int64 `yaml:"fastIntervalMs"`
	APIIntervalMs  int64 `yaml:"apiIntervalMs"`
	SlowIntervalMs int64 `yaml:"slowIntervalMs"`
	FetchTimeoutMs int64 `yaml:"fetchTimeoutMs"`
}

// FastInterval returns the core subset cadence.
func (c PollerConfig) FastInterval() time.Duration { return ms(c.FastIntervalMs) }

// APIInterval returns the public data cadence under the api flag.
func (c PollerConfig) APIInterval() time.Duration { return ms(c.APIIntervalMs) }

// SlowInterval returns the default cadence.
func (c PollerConfig) SlowInterval() time.Duration { return ms(c.SlowIntervalMs) }

// FetchTimeout returns the per-fetch safety timeout.
func (c PollerConfig) FetchTimeout() time.Duration { return ms(c.FetchTimeoutMs) }

// SessionConfig is the chain context and flag the daemon starts with.
type SessionConfig struct {
	ChainID uint64 `yaml:"chainId"`
	Account string `yaml:"account"`
	Flag    string `yaml:"flag"`
}

// NetworkNode holds the configuration for a specific blockchain network node.
type NetworkNode struct {
	ChainID           uint64   `yaml:"chainID"`
	Name              string   `yaml:"name"`
	Endpoint          string   `yaml:"endpoint"`
	FallbackEndpoints []string `yaml:"fallbackEndpoints"`
	MasterChefAddress string   `yaml:"masterChefAddress"`
	FarmsAPIChainID   string   `yaml:"farmsApiChainId"`
}

// RegistryConfig points at the per-chain farm registry files.
type RegistryConfig struct {
	Dir             string `yaml:"dir"`
	CacheTTLMinutes int    `yaml:"cacheTTLMinutes"`
}

// FarmsAPIConfig holds the configuration for the alternate farms API.
type FarmsAPIConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// RpcClientConfig holds configuration for RPC clients.
type RpcClientConfig struct {
	DefaultTimeoutMs     int64   `yaml:"defaultTimeoutMs"`
	RateLimit            float64 `yaml:"rateLimit"`
	BurstLimit           int     `yaml:"burstLimit"`
	MaxBatchSize         int     `yaml:"maxBatchSize"`
	MaxConcurrentBatches int     `yaml:"maxConcurrentBatches"`
}

// CacheConfig holds configuration for the snapshot cache.
type CacheConfig struct {
	UserTTLMinutes int `yaml:"userTTLMinutes"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

// LoadConfig loads configuration from a YAML file, fills defaults and
// validates the network list.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Poller.FastIntervalMs <= 0 {
		cfg.Poller.FastIntervalMs = 10_000
		logrus.Infof("Poller.FastIntervalMs not set, defaulting to %d ms", cfg.Poller.FastIntervalMs)
	}
	if cfg.Poller.APIIntervalMs <= 0 {
		cfg.Poller.APIIntervalMs = 50_000
		logrus.Infof("Poller.APIIntervalMs not set, defaulting to %d ms", cfg.Poller.APIIntervalMs)
	}
	if cfg.Poller.SlowIntervalMs <= 0 {
		cfg.Poller.SlowIntervalMs = 300_000
		logrus.Infof("Poller.SlowIntervalMs not set, defaulting to %d ms", cfg.Poller.SlowIntervalMs)
	}
	if cfg.Poller.FetchTimeoutMs <= 0 {
		cfg.Poller.FetchTimeoutMs = 30_000
		logrus.Infof("Poller.FetchTimeoutMs not set, defaulting to %d ms", cfg.Poller.FetchTimeoutMs)
	}

	if cfg.Registry.Dir == "" {
		cfg.Registry.Dir = "data/farms"
		logrus.Infof("Registry.Dir not set, defaulting to %s", cfg.Registry.Dir)
	}
	if cfg.Registry.CacheTTLMinutes <= 0 {
		cfg.Registry.CacheTTLMinutes = 60
	}

	if cfg.FarmsAPI.RequestTimeoutMillis <= 0 {
		cfg.FarmsAPI.RequestTimeoutMillis = 10_000
		logrus.Infof("FarmsAPI.RequestTimeoutMillis not set, defaulting to %d ms", cfg.FarmsAPI.RequestTimeoutMillis)
	}

	if cfg.RpcClient.DefaultTimeoutMs <= 0 {
		cfg.RpcClient.DefaultTimeoutMs = 10_000
		logrus.Infof("RpcClient.DefaultTimeoutMs not set, defaulting to %d ms", cfg.RpcClient.DefaultTimeoutMs)
	}
	if cfg.RpcClient.RateLimit <= 0 {
		cfg.RpcClient.RateLimit = 10
	}
	if cfg.RpcClient.BurstLimit <= 0 {
		cfg.RpcClient.BurstLimit = 5
	}
	if cfg.RpcClient.MaxBatchSize <= 0 {
		cfg.RpcClient.MaxBatchSize = 100
	}
	if cfg.RpcClient.MaxConcurrentBatches <= 0 {
		cfg.RpcClient.MaxConcurrentBatches = 4
	}

	if cfg.Cache.UserTTLMinutes <= 0 {
		cfg.Cache.UserTTLMinutes = 30
	}
	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "docs/swagger.yaml"
	}
}

// Validate checks the network list and the initial session.
func (c *Config) Validate() error {
	seen := make(map[uint64]struct{}, len(c.Networks))
	for i, n := range c.Networks {
		if n.ChainID == 0 {
			return fmt.Errorf("networks[%d]: chainID is required", i)
		}
		if _, dup := seen[n.ChainID]; dup {
			return fmt.Errorf("networks[%d]: duplicate chainID %d", i, n.ChainID)
		}
		seen[n.ChainID] = struct{}{}
		if n.MasterChefAddress != "" && !common.IsHexAddress(n.MasterChefAddress) {
			return fmt.Errorf("networks[%d]: masterChefAddress %q is not a hex address", i, n.MasterChefAddress)
		}
		if n.Endpoint == "" {
			logrus.Warnf("Network '%s' (ChainID: %d) has no endpoint configured, the built-in RPC URL will be used.", n.Name, n.ChainID)
		}
	}
	if c.Session.Account != "" && !common.IsHexAddress(c.Session.Account) {
		return fmt.Errorf("session.account %q is not a hex address", c.Session.Account)
	}
	return nil
}
