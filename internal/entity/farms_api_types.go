package entity

// FarmsAPIResponse is the body of GET {baseURL}/{chainId}/farms.
type FarmsAPIResponse struct {
	UpdatedAt string        `json:"updatedAt"`
	Data      []FarmAPIData `json:"data"`
}

// FarmAPIData is one farm as served by the farms API. Amounts and prices are
// decimal strings; missing fields decode as empty.
type FarmAPIData struct {
	Pid                   int    `json:"pid"`
	LpSymbol              string `json:"lpSymbol"`
	LpAddress             string `json:"lpAddress"`
	AllocPoint            string `json:"allocPoint"`
	PoolWeight            string `json:"poolWeight"`
	Multiplier            string `json:"multiplier"`
	RewardPerBlock        string `json:"rewardPerBlock"`
	LpTotalSupply         string `json:"lpTotalSupply"`
	LpTokenBalanceMC      string `json:"lpTokenBalanceMC"`
	TokenAmountTotal      string `json:"tokenAmountTotal"`
	QuoteTokenAmountTotal string `json:"quoteTokenAmountTotal"`
	LpTotalInQuoteToken   string `json:"lpTotalInQuoteToken"`
	TokenPriceVsQuote     string `json:"tokenPriceVsQuote"`
	TokenPriceBusd        string `json:"tokenPriceBusd"`
	QuoteTokenPriceBusd   string `json:"quoteTokenPriceBusd"`
}

// FarmsAPIError is the error body returned with non-200 statuses.
type FarmsAPIError struct {
	Error string `json:"error"`
}
