package port

import "farm_poller/internal/domain/entity"

// FlagSource exposes the current farm feature-flag variant.
type FlagSource interface {
	FarmFlag() entity.FlagVariant
}

// ChainContextSource exposes the selected chain and connected account.
type ChainContextSource interface {
	ChainContext() entity.ChainContext
}
