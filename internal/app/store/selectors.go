package store

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"farm_poller/internal/domain/entity"
)

func normalizeAccount(account string) string {
	return entity.ChainContext{Account: account}.Normalized().Account
}

// Farms projects the chain's farms, merged with the account's positions when
// account is non-empty. Registry order is kept; before the registry is seeded
// the farms known from public snapshots are listed by pid.
func (s *SnapshotStore) Farms(chainID uint64, account string) entity.FarmsState {
	account = normalizeAccount(account)
	pub := s.publicEntry(chainID)
	user, userLoaded := s.user(chainID, account)

	configs := s.registry(chainID)
	if len(configs) == 0 && len(pub.byPid) > 0 {
		configs = make([]entity.FarmConfig, 0, len(pub.byPid))
		for pid := range pub.byPid {
			configs = append(configs, entity.FarmConfig{Pid: pid})
		}
		sort.Slice(configs, func(i, j int) bool { return configs[i].Pid < configs[j].Pid })
	}

	state := entity.FarmsState{
		ChainID:        chainID,
		Data:           make([]entity.Farm, 0, len(configs)),
		PoolLength:     s.PoolLength(chainID),
		UserDataLoaded: userLoaded,
		LoadedAt:       pub.loadedAt,
	}
	for _, cfg := range configs {
		state.Data = append(state.Data, buildFarm(cfg, pub, user))
	}
	return state
}

func buildFarm(cfg entity.FarmConfig, pub publicEntry, user map[int]entity.UserFarmSnapshot) entity.Farm {
	farm := entity.Farm{FarmConfig: cfg}
	if p, ok := pub.byPid[cfg.Pid]; ok {
		farm.Public = &p
	}
	if u, ok := user[cfg.Pid]; ok {
		farm.UserData = &u
	}
	return farm
}

// PoolLength returns the last fetched MasterChef pool count, or 0.
func (s *SnapshotStore) PoolLength(chainID uint64) int {
	if v, ok := s.cache.Get(poolLengthKey(chainID)); ok {
		return v.(int)
	}
	return 0
}

// FarmFromPid returns the farm with the given pid.
func (s *SnapshotStore) FarmFromPid(chainID uint64, pid int) (entity.Farm, bool) {
	pub := s.publicEntry(chainID)
	for _, cfg := range s.registry(chainID) {
		if cfg.Pid == pid {
			return buildFarm(cfg, pub, nil), true
		}
	}
	if _, ok := pub.byPid[pid]; ok {
		return buildFarm(entity.FarmConfig{Pid: pid}, pub, nil), true
	}
	return entity.Farm{}, false
}

// FarmFromLpSymbol returns the farm whose lp symbol matches, ignoring case.
func (s *SnapshotStore) FarmFromLpSymbol(chainID uint64, lpSymbol string) (entity.Farm, bool) {
	for _, cfg := range s.registry(chainID) {
		if strings.EqualFold(cfg.LpSymbol, lpSymbol) {
			return buildFarm(cfg, s.publicEntry(chainID), nil), true
		}
	}
	return entity.Farm{}, false
}

// FarmUser returns the account's position in a farm; zero amounts when unknown.
func (s *SnapshotStore) FarmUser(chainID uint64, account string, pid int) entity.UserFarmSnapshot {
	user, _ := s.user(chainID, normalizeAccount(account))
	if u, ok := user[pid]; ok {
		return u
	}
	return entity.UserFarmSnapshot{Pid: pid}
}

// BusdPriceFromPid returns the farm token's BUSD price, or zero.
func (s *SnapshotStore) BusdPriceFromPid(chainID uint64, pid int) decimal.Decimal {
	farm, ok := s.FarmFromPid(chainID, pid)
	if !ok || farm.Public == nil {
		return decimal.Zero
	}
	return farm.Public.TokenPriceBusd
}

// LpTokenPrice values one lp token in BUSD: twice the farm-token side of the
// pool divided by the lp supply. Token-only farms are priced as their token.
func (s *SnapshotStore) LpTokenPrice(chainID uint64, lpSymbol string, isTokenOnly bool) decimal.Decimal {
	farm, ok := s.FarmFromLpSymbol(chainID, lpSymbol)
	if !ok || farm.Public == nil {
		return decimal.Zero
	}
	p := farm.Public
	if isTokenOnly {
		return p.TokenPriceBusd
	}
	if !p.LpTotalSupply.IsPositive() || !p.LpTotalInQuoteToken.IsPositive() {
		return decimal.Zero
	}
	overall := p.TokenPriceBusd.Mul(p.TokenAmountTotal).Mul(decimal.NewFromInt(2))
	return overall.Div(p.LpTotalSupply)
}
