// Package farmloader reads per-chain farm registries from YAML files.
package farmloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/pkg/utils"
)

const defaultFarmDirectoryPath = "data/farms"

// registryFile is the on-disk layout of <dir>/<chainId>.yml.
type registryFile struct {
	ChainID uint64              `yaml:"chainId"`
	Farms   []entity.FarmConfig `yaml:"farms"`
}

// FarmFileLoader implements port.FarmRegistry.
type FarmFileLoader struct {
	dir    string
	cache  *cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger port.Logger
}

// NewFarmLoader creates a loader for dir. Parsed registries are cached for ttl.
func NewFarmLoader(dir string, ttl time.Duration, logger port.Logger) *FarmFileLoader {
	if dir == "" {
		dir = defaultFarmDirectoryPath
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FarmFileLoader{
		dir:    dir,
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
		logger: logger.With("component", "farm_loader"),
	}
}

// GetFarmRegistry returns the chain's farms ordered by pid. A chain without a
// registry file yields entity.ErrUnknownChain.
func (l *FarmFileLoader) GetFarmRegistry(ctx context.Context, chainID uint64) ([]entity.FarmConfig, error) {
	key := strconv.FormatUint(chainID, 10)
	if v, ok := l.cache.Get(key); ok {
		return cloneFarms(v.([]entity.FarmConfig)), nil
	}

	ch := l.group.DoChan(key, func() (any, error) {
		farms, err := l.load(chainID)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, farms, l.ttl)
		return farms, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneFarms(res.Val.([]entity.FarmConfig)), nil
	}
}

// Invalidate drops the cached registry for a chain.
func (l *FarmFileLoader) Invalidate(chainID uint64) {
	l.cache.Delete(strconv.FormatUint(chainID, 10))
}

func (l *FarmFileLoader) load(chainID uint64) ([]entity.FarmConfig, error) {
	path, err := l.findFile(chainID)
	if err != nil {
		return nil, err
	}

	file, err := utils.LoadYAMLFile[registryFile](path)
	if err != nil {
		l.logger.Warn("Failed to parse farm registry", "path", path, "error", err)
		return nil, fmt.Errorf("failed to parse farm registry %s: %w", path, err)
	}
	if file.ChainID != 0 && file.ChainID != chainID {
		return nil, fmt.Errorf("farm registry %s declares chain %d, expected %d", path, file.ChainID, chainID)
	}

	seen := make(map[int]struct{}, len(file.Farms))
	farms := make([]entity.FarmConfig, 0, len(file.Farms))
	for _, f := range file.Farms {
		if _, dup := seen[f.Pid]; dup {
			return nil, fmt.Errorf("farm registry %s: duplicate pid %d", path, f.Pid)
		}
		seen[f.Pid] = struct{}{}
		if f.LpAddress != "" && !common.IsHexAddress(f.LpAddress) {
			l.logger.Warn("Farm has invalid lp address, skipping farm", "path", path, "pid", f.Pid, "lp_address", f.LpAddress)
			continue
		}
		if f.Token.Decimals == 0 {
			f.Token.Decimals = 18
		}
		if f.QuoteToken.Decimals == 0 {
			f.QuoteToken.Decimals = 18
		}
		farms = append(farms, f)
	}
	sort.Slice(farms, func(i, j int) bool { return farms[i].Pid < farms[j].Pid })

	l.logger.Info("Loaded farm registry", "chain_id", chainID, "path", path, "count", len(farms))
	return farms, nil
}

func (l *FarmFileLoader) findFile(chainID uint64) (string, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(l.dir, strconv.FormatUint(chainID, 10)+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat farm registry %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no farm registry for chain %d in %s: %w", chainID, l.dir, entity.ErrUnknownChain)
}

func cloneFarms(in []entity.FarmConfig) []entity.FarmConfig {
	out := make([]entity.FarmConfig, len(in))
	copy(out, in)
	return out
}
