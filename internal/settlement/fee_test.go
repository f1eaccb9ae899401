package settlement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateForfeitVSizeGrowsWithScript(t *testing.T) {
	small := EstimateForfeitVSize(40, 33)
	large := EstimateForfeitVSize(200, 33)
	require.Greater(t, large, small)
}

func TestEstimateForfeitFeeScalesWithRate(t *testing.T) {
	low := EstimateForfeitFee(80, 33, 1.0)
	high := EstimateForfeitFee(80, 33, 5.0)
	require.Greater(t, high, low)
	require.Equal(t, low*5, high)
}
