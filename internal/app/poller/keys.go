package poller

import (
	"sort"

	"farm_poller/internal/domain/entity"
)

// KeySet is a set of fetch keys sorted by ID.
type KeySet []entity.FetchKey

func newKeySet(keys ...entity.FetchKey) KeySet {
	set := KeySet(keys)
	sort.Slice(set, func(i, j int) bool { return set[i].ID() < set[j].ID() })
	return set
}

// Equal reports whether both sets hold the same keys.
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Get returns the key of the given kind.
func (s KeySet) Get(kind entity.ResourceKind) (entity.FetchKey, bool) {
	for _, k := range s {
		if k.Kind == kind {
			return k, true
		}
	}
	return entity.FetchKey{}, false
}

// IDs returns the key IDs in order.
func (s KeySet) IDs() []string {
	ids := make([]string, len(s))
	for i, k := range s {
		ids[i] = k.ID()
	}
	return ids
}

// DeriveFarmKeys returns the keys of the farms-with-user-data poll: pool length,
// public farm data and, with a connected account, user farm data.
func DeriveFarmKeys(c entity.ChainContext, variant entity.FlagVariant) KeySet {
	c = c.Normalized()
	variant = variant.OrDefault()
	if !c.HasChain() {
		return KeySet{}
	}

	keys := []entity.FetchKey{
		{Kind: entity.KindPoolLength, ChainID: c.ChainID},
		{Kind: entity.KindPublicFarmData, ChainID: c.ChainID, Variant: variant},
	}
	if c.HasAccount() {
		keys = append(keys, entity.FetchKey{Kind: entity.KindUserFarmData, ChainID: c.ChainID, Account: c.Account})
	}
	return newKeySet(keys...)
}

// DeriveCoreKeys returns the keys of the core-subset poll: the one-time initial
// registry load and, when active under variant, the fast core refresh. The
// core key carries no variant since the core fetch always reads chain.
func DeriveCoreKeys(c entity.ChainContext, variant entity.FlagVariant) KeySet {
	variant = variant.OrDefault()
	if !c.HasChain() {
		return KeySet{}
	}

	keys := []entity.FetchKey{{Kind: entity.KindInitialFarmData, ChainID: c.ChainID}}
	if Active(entity.KindCoreFarmData, variant) && len(CoreFarmPids(c.ChainID)) > 0 {
		keys = append(keys, entity.FetchKey{Kind: entity.KindCoreFarmData, ChainID: c.ChainID})
	}
	return newKeySet(keys...)
}

// DeriveKeys returns every key to poll for c and variant. Identical inputs
// always yield an Equal set.
func DeriveKeys(c entity.ChainContext, variant entity.FlagVariant) KeySet {
	farm := DeriveFarmKeys(c, variant)
	core := DeriveCoreKeys(c, variant)
	all := make([]entity.FetchKey, 0, len(farm)+len(core))
	all = append(all, farm...)
	all = append(all, core...)
	return newKeySet(all...)
}
