package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"farm_poller/internal/domain/entity"
)

func TestDeriveKeys_NoChain(t *testing.T) {
	keys := DeriveKeys(entity.ChainContext{Account: "0xabc"}, entity.FlagDefault)
	assert.Empty(t, keys)
}

func TestDeriveFarmKeys_Scenario(t *testing.T) {
	keys := DeriveFarmKeys(entity.ChainContext{ChainID: 56, Account: "0xABC"}, "default")

	want := newKeySet(
		entity.FetchKey{Kind: entity.KindPoolLength, ChainID: 56},
		entity.FetchKey{Kind: entity.KindPublicFarmData, ChainID: 56, Variant: entity.FlagDefault},
		entity.FetchKey{Kind: entity.KindUserFarmData, ChainID: 56, Account: "0xabc"},
	)
	assert.True(t, want.Equal(keys), "got %v", keys.IDs())

	switched := DeriveFarmKeys(entity.ChainContext{ChainID: 56, Account: "0xDEF"}, "default")
	user, ok := switched.Get(entity.KindUserFarmData)
	assert.True(t, ok)
	assert.Equal(t, "0xdef", user.Account)
}

func TestDeriveKeys_AccountScoped(t *testing.T) {
	keys := DeriveKeys(entity.ChainContext{ChainID: 56}, entity.FlagDefault)
	_, ok := keys.Get(entity.KindUserFarmData)
	assert.False(t, ok, "no account means no account-scoped keys")

	_, ok = keys.Get(entity.KindPublicFarmData)
	assert.True(t, ok)
	_, ok = keys.Get(entity.KindPoolLength)
	assert.True(t, ok)
	_, ok = keys.Get(entity.KindInitialFarmData)
	assert.True(t, ok)
	_, ok = keys.Get(entity.KindCoreFarmData)
	assert.True(t, ok)
}

func TestDeriveKeys_Deterministic(t *testing.T) {
	contexts := []entity.ChainContext{
		{},
		{ChainID: 1},
		{ChainID: 56, Account: "0xAbC"},
		{ChainID: 97, Account: " 0xabc "},
		{ChainID: 424242, Account: "0x1"},
	}
	for _, c := range contexts {
		for _, v := range []entity.FlagVariant{"", entity.FlagDefault, entity.FlagAPI} {
			a := DeriveKeys(c, v)
			b := DeriveKeys(c, v)
			assert.True(t, a.Equal(b), "context %+v variant %q", c, v)
		}
	}

	// Account casing and whitespace do not produce new keys.
	assert.True(t, DeriveKeys(entity.ChainContext{ChainID: 56, Account: "0xAbC"}, entity.FlagDefault).
		Equal(DeriveKeys(entity.ChainContext{ChainID: 56, Account: " 0xabc"}, entity.FlagDefault)))
	// The empty variant is the default variant.
	assert.True(t, DeriveKeys(entity.ChainContext{ChainID: 56}, "").
		Equal(DeriveKeys(entity.ChainContext{ChainID: 56}, entity.FlagDefault)))
}

func TestDeriveCoreKeys(t *testing.T) {
	t.Run("api flag keeps only the initial load", func(t *testing.T) {
		keys := DeriveCoreKeys(entity.ChainContext{ChainID: 56}, entity.FlagAPI)
		assert.Equal(t, []string{"initialFarmData:56"}, keys.IDs())
	})

	t.Run("default flag adds the core refresh", func(t *testing.T) {
		keys := DeriveCoreKeys(entity.ChainContext{ChainID: 56}, entity.FlagDefault)
		assert.Equal(t, []string{"coreFarmData:56", "initialFarmData:56"}, keys.IDs())
	})

	t.Run("core key does not depend on a non-api variant", func(t *testing.T) {
		assert.True(t, DeriveCoreKeys(entity.ChainContext{ChainID: 56}, entity.FlagDefault).
			Equal(DeriveCoreKeys(entity.ChainContext{ChainID: 56}, "beta")))
	})

	t.Run("chain without core farms", func(t *testing.T) {
		keys := DeriveCoreKeys(entity.ChainContext{ChainID: 42161}, entity.FlagDefault)
		assert.Equal(t, []string{"initialFarmData:42161"}, keys.IDs())
	})
}

func TestKeySet_Equal(t *testing.T) {
	a := DeriveKeys(entity.ChainContext{ChainID: 56}, entity.FlagDefault)
	b := DeriveKeys(entity.ChainContext{ChainID: 56}, entity.FlagAPI)
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	assert.True(t, KeySet{}.Equal(nil))
}

func TestCoreFarmPids(t *testing.T) {
	assert.Equal(t, []int{2, 3}, CoreFarmPids(56))
	assert.Equal(t, []int{124, 125}, CoreFarmPids(1))
	assert.Nil(t, CoreFarmPids(250))

	pids := CoreFarmPids(97)
	pids[0] = 999
	assert.Equal(t, []int{4, 10}, CoreFarmPids(97), "callers get a copy")
}
