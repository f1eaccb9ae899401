package arkwallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func coin(value uint64) VirtualCoin {
	return VirtualCoin{Value: value}
}

func TestSelectCoinsPrefersSingleCoinWhenSufficient(t *testing.T) {
	coins := []VirtualCoin{coin(1000), coin(5000), coin(50000)}
	result, err := SelectCoins(coins, 4000, 1.0, DustAmount)
	require.NoError(t, err)
	require.Len(t, result.Selected, 1)
	require.Equal(t, uint64(5000), result.Selected[0].Value)
}

func TestSelectCoinsAccumulatesWhenNoSingleCoinSuffices(t *testing.T) {
	coins := []VirtualCoin{coin(1000), coin(1500), coin(2000)}
	result, err := SelectCoins(coins, 3800, 1.0, DustAmount)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.Total, uint64(3800)+result.Fee)
	require.Greater(t, len(result.Selected), 1)
}

func TestSelectCoinsSatisfiesTargetPlusFeeInvariant(t *testing.T) {
	coins := []VirtualCoin{coin(1000), coin(1200), coin(1300), coin(10000)}
	target := uint64(2000)
	result, err := SelectCoins(coins, target, 2.0, DustAmount)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.Total, target+result.Fee)
	require.True(t, result.Change == 0 || result.Change >= DustAmount)
}

func TestSelectCoinsInsufficientFunds(t *testing.T) {
	coins := []VirtualCoin{coin(100), coin(200)}
	_, err := SelectCoins(coins, 10000, 1.0, DustAmount)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSelectCoinsRejectsDustTarget(t *testing.T) {
	coins := []VirtualCoin{coin(100000)}
	_, err := SelectCoins(coins, 1, 1.0, DustAmount)
	require.ErrorIs(t, err, ErrDustAmount)
}

func TestSelectCoinsRejectsEmptySet(t *testing.T) {
	_, err := SelectCoins(nil, 1000, 1.0, DustAmount)
	require.ErrorIs(t, err, ErrNoCoins)
}

func TestSelectCoinsNeverOverselectsOnceSatisfied(t *testing.T) {
	coins := []VirtualCoin{coin(500), coin(500), coin(500), coin(100000)}
	result, err := SelectCoins(coins, 1000, 1.0, DustAmount)
	require.NoError(t, err)
	// A single large coin covers it; selection must not also grab the
	// small ones.
	require.Len(t, result.Selected, 1)
}
