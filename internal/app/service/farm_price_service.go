package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
)

const (
	stablecoinBUSDSymbol = "BUSD"
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinBUSDSymbol: {},
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

// wrapped native tokens price the same as their native asset
var wrappedAliases = map[string]string{
	"WBNB":   "BNB",
	"WETH":   "ETH",
	"WMATIC": "MATIC",
}

// FarmPriceService implements port.FarmPricer. Stablecoins anchor at 1 BUSD;
// every other token is priced by walking farm pairs outward from a priced side.
type FarmPriceService struct {
	logger port.Logger
}

// NewFarmPriceService creates a new FarmPriceService.
func NewFarmPriceService(l port.Logger) *FarmPriceService {
	return &FarmPriceService{logger: l.With("component", "farm_price_service")}
}

func priceSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := wrappedAliases[s]; ok {
		return alias
	}
	return s
}

// PriceFarms returns a copy of data with TokenPriceBusd and QuoteTokenPriceBusd
// set. Farms whose pair cannot be connected to a stablecoin keep zero prices.
func (s *FarmPriceService) PriceFarms(farms []entity.FarmConfig, data map[int]entity.PublicFarmSnapshot) map[int]entity.PublicFarmSnapshot {
	prices := make(map[string]decimal.Decimal)
	for sym := range stablecoinSymbols {
		prices[sym] = decimal.NewFromInt(1)
	}

	// Each pass can price at most one more hop away from a stablecoin.
	for pass := 0; pass <= len(farms); pass++ {
		progress := false
		for _, f := range farms {
			snap, ok := data[f.Pid]
			if !ok || !snap.TokenPriceVsQuote.IsPositive() {
				continue
			}
			token, quote := priceSymbol(f.Token.Symbol), priceSymbol(f.QuoteToken.Symbol)
			tp, tokOK := prices[token]
			qp, quoteOK := prices[quote]
			switch {
			case quoteOK && !tokOK:
				prices[token] = snap.TokenPriceVsQuote.Mul(qp)
				progress = true
			case tokOK && !quoteOK:
				prices[quote] = tp.Div(snap.TokenPriceVsQuote)
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	out := make(map[int]entity.PublicFarmSnapshot, len(data))
	for pid, snap := range data {
		out[pid] = snap
	}
	unpriced := 0
	for _, f := range farms {
		snap, ok := out[f.Pid]
		if !ok {
			continue
		}
		snap.QuoteTokenPriceBusd = prices[priceSymbol(f.QuoteToken.Symbol)]
		snap.TokenPriceBusd = prices[priceSymbol(f.Token.Symbol)]
		if snap.TokenPriceBusd.IsZero() {
			unpriced++
		}
		out[f.Pid] = snap
	}
	if unpriced > 0 {
		s.logger.Debug("Some farms could not be priced", "count", unpriced, "total", len(farms))
	}
	return out
}
