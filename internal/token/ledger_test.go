package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_TransferFrom(t *testing.T) {
	alice := common.HexToAddress("0xa11ce")
	custody := common.HexToAddress("0xc0ffee")
	l := NewLedger("LT")
	l.Mint(alice, uint256.NewInt(100))

	t.Run("Test transfer without allowance fails", func(t *testing.T) {
		err := l.TransferFrom(custody, alice, custody, uint256.NewInt(10))
		require.ErrorIs(t, err, ErrInsufficientAllowance)
		assert.Equal(t, uint64(100), l.BalanceOf(alice).Uint64())
	})

	t.Run("Test transfer consumes allowance", func(t *testing.T) {
		l.Approve(alice, custody, uint256.NewInt(30))
		require.NoError(t, l.TransferFrom(custody, alice, custody, uint256.NewInt(20)))
		assert.Equal(t, uint64(80), l.BalanceOf(alice).Uint64())
		assert.Equal(t, uint64(20), l.BalanceOf(custody).Uint64())
		assert.Equal(t, uint64(10), l.Allowance(alice, custody).Uint64())
	})

	t.Run("Test allowance above balance still fails", func(t *testing.T) {
		l.Approve(alice, custody, uint256.NewInt(1000))
		err := l.TransferFrom(custody, alice, custody, uint256.NewInt(500))
		require.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, uint64(1000), l.Allowance(alice, custody).Uint64())
	})

	t.Run("Test plain transfer", func(t *testing.T) {
		require.NoError(t, l.Transfer(custody, alice, uint256.NewInt(20)))
		assert.Equal(t, uint64(100), l.BalanceOf(alice).Uint64())
		assert.True(t, l.BalanceOf(custody).IsZero())
		require.ErrorIs(t, l.Transfer(custody, alice, uint256.NewInt(1)), ErrInsufficientBalance)
	})

	assert.Equal(t, uint64(100), l.TotalSupply().Uint64())
}

func TestRegistry_Asset(t *testing.T) {
	l := NewLedger("LT")
	r := NewRegistry(l)

	a, err := r.Asset(l.Address())
	require.NoError(t, err)
	assert.Same(t, l, a)

	_, err = r.Asset(common.HexToAddress("0x1"))
	require.ErrorIs(t, err, ErrUnknownAsset)
}
