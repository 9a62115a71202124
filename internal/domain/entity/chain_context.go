package entity

import "strings"

// ChainContext identifies whose farm data is being polled.
// A zero ChainID means no chain is selected; an empty Account means no wallet is connected.
type ChainContext struct {
	ChainID uint64 `json:"chainId"`
	Account string `json:"account,omitempty"`
}

// HasChain reports whether a chain is selected.
func (c ChainContext) HasChain() bool {
	return c.ChainID != 0
}

// HasAccount reports whether a wallet is connected.
func (c ChainContext) HasAccount() bool {
	return strings.TrimSpace(c.Account) != ""
}

// Normalized returns a copy with the account trimmed and lower-cased so that
// the same wallet always yields the same fetch keys.
func (c ChainContext) Normalized() ChainContext {
	return ChainContext{
		ChainID: c.ChainID,
		Account: strings.ToLower(strings.TrimSpace(c.Account)),
	}
}
