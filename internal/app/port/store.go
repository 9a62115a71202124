package port

import (
	"github.com/shopspring/decimal"

	"farm_poller/internal/domain/entity"
)

// SnapshotSink accepts snapshot writes from the scheduler.
type SnapshotSink interface {
	// Commit stores a snapshot fetched with logical sequence seq. It returns
	// false when a later fetch for the same key has already been committed.
	Commit(key entity.FetchKey, seq uint64, snapshot entity.Snapshot) bool
	// Forget drops the commit bookkeeping of a key that is no longer polled.
	// Cached data stays readable.
	Forget(key entity.FetchKey)
}

// SnapshotReader serves read-only projections of the cache. Implementations
// must never trigger a fetch.
type SnapshotReader interface {
	Farms(chainID uint64, account string) entity.FarmsState
	PoolLength(chainID uint64) int
	FarmFromPid(chainID uint64, pid int) (entity.Farm, bool)
	FarmFromLpSymbol(chainID uint64, lpSymbol string) (entity.Farm, bool)
	FarmUser(chainID uint64, account string, pid int) entity.UserFarmSnapshot
	BusdPriceFromPid(chainID uint64, pid int) decimal.Decimal
	LpTokenPrice(chainID uint64, lpSymbol string, isTokenOnly bool) decimal.Decimal
}

// CommitEvent describes one accepted cache write.
type CommitEvent struct {
	Key entity.FetchKey `json:"key"`
	Seq uint64          `json:"seq"`
}
