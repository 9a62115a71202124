package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token describes one side of a farm's liquidity pair.
type Token struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Address  string `json:"address" yaml:"address"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// FarmConfig is a farm registry entry. Pid is unique within a chain's registry.
type FarmConfig struct {
	Pid         int    `json:"pid" yaml:"pid"`
	LpSymbol    string `json:"lpSymbol" yaml:"lpSymbol"`
	LpAddress   string `json:"lpAddress" yaml:"lpAddress"`
	Token       Token  `json:"token" yaml:"token"`
	QuoteToken  Token  `json:"quoteToken" yaml:"quoteToken"`
	IsTokenOnly bool   `json:"isTokenOnly,omitempty" yaml:"isTokenOnly,omitempty"`
}

// PublicFarmSnapshot holds chain-wide metrics for one farm as of its last successful fetch.
type PublicFarmSnapshot struct {
	Pid                   int             `json:"pid"`
	AllocPoint            decimal.Decimal `json:"allocPoint"`
	PoolWeight            decimal.Decimal `json:"poolWeight"`
	Multiplier            string          `json:"multiplier"`
	RewardPerBlock        decimal.Decimal `json:"rewardPerBlock"`
	LpTotalSupply         decimal.Decimal `json:"lpTotalSupply"`
	LpTokenBalanceMC      decimal.Decimal `json:"lpTokenBalanceMC"`
	TokenAmountTotal      decimal.Decimal `json:"tokenAmountTotal"`
	QuoteTokenAmountTotal decimal.Decimal `json:"quoteTokenAmountTotal"`
	LpTotalInQuoteToken   decimal.Decimal `json:"lpTotalInQuoteToken"`
	TokenPriceVsQuote     decimal.Decimal `json:"tokenPriceVsQuote"`
	TokenPriceBusd        decimal.Decimal `json:"tokenPriceBusd"`
	QuoteTokenPriceBusd   decimal.Decimal `json:"quoteTokenPriceBusd"`
	FetchedAt             time.Time       `json:"fetchedAt"`
}

// UserFarmSnapshot holds one account's position in one farm.
type UserFarmSnapshot struct {
	Pid           int             `json:"pid"`
	Allowance     decimal.Decimal `json:"allowance"`
	TokenBalance  decimal.Decimal `json:"tokenBalance"`
	StakedBalance decimal.Decimal `json:"stakedBalance"`
	Earnings      decimal.Decimal `json:"earnings"`
}

// Farm is the read model served to consumers: registry data merged with the
// latest public and user snapshots.
type Farm struct {
	FarmConfig
	Public   *PublicFarmSnapshot `json:"public,omitempty"`
	UserData *UserFarmSnapshot   `json:"userData,omitempty"`
}

// FarmsState is the projection of the cache for one chain and optional account.
type FarmsState struct {
	ChainID        uint64    `json:"chainId"`
	Data           []Farm    `json:"data"`
	PoolLength     int       `json:"poolLength"`
	UserDataLoaded bool      `json:"userDataLoaded"`
	LoadedAt       time.Time `json:"loadedAt,omitempty"`
}
