package port

import "farm_poller/internal/domain/entity"

// FarmPricer fills BUSD prices into public farm snapshots from the pool ratios
// of the farms themselves.
type FarmPricer interface {
	PriceFarms(farms []entity.FarmConfig, data map[int]entity.PublicFarmSnapshot) map[int]entity.PublicFarmSnapshot
}
