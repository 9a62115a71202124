package utils

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDecimal(t *testing.T) {
	amount, _ := new(big.Int).SetString("1234500000000000000", 10)
	assert.True(t, decimal.RequireFromString("1.2345").Equal(ToDecimal(amount, 18)))
	assert.Equal(t, "1.2345", FormatBigInt(amount, 18))
	assert.Equal(t, "42", FormatBigInt(big.NewInt(42), 0))
	assert.True(t, ToDecimal(nil, 18).IsZero())
}

func TestSafeDiv(t *testing.T) {
	assert.True(t, SafeDiv(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.True(t, decimal.NewFromInt(2).Equal(SafeDiv(decimal.NewFromInt(6), decimal.NewFromInt(3))))
}

func TestBatch(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, Batch([]int{1, 2, 3}, 0))
	assert.Empty(t, Batch([]string(nil), 3))
}

func TestLoadYAMLFile(t *testing.T) {
	type doc struct {
		Name string `yaml:"name"`
	}
	path := filepath.Join(t.TempDir(), "doc.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: cake\n"), 0o600))

	got, err := LoadYAMLFile[doc](path)
	require.NoError(t, err)
	assert.Equal(t, "cake", got.Name)

	_, err = LoadYAMLFile[doc](filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
