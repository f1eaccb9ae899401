package arkscript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustKey(b byte) []byte {
	k := make([]byte, 32)
	k[31] = b
	return k
}

func TestMultisigOrderMatters(t *testing.T) {
	a, err := Multisig([][]byte{mustKey(1), mustKey(2)})
	require.NoError(t, err)
	b, err := Multisig([][]byte{mustKey(2), mustKey(1)})
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b), "swapping key order must change the script")
}

func TestMultisigRejectsShortKey(t *testing.T) {
	_, err := Multisig([][]byte{mustKey(1), {0x01, 0x02}})
	require.ErrorIs(t, err, ErrInvalidScript)
}

func TestMultisigRejectsSingleKey(t *testing.T) {
	_, err := Multisig([][]byte{mustKey(1)})
	require.ErrorIs(t, err, ErrInvalidScript)
}

func TestCSVMultisigRejectsOutOfRangeTimelock(t *testing.T) {
	_, err := CSVMultisig(1<<31, TimelockBlocks, [][]byte{mustKey(1), mustKey(2)})
	require.ErrorIs(t, err, ErrInvalidScript)
}

func TestRelativeSequenceSecondsSetsTypeFlag(t *testing.T) {
	blocks, err := RelativeSequence(10, TimelockBlocks)
	require.NoError(t, err)
	seconds, err := RelativeSequence(10, TimelockSeconds)
	require.NoError(t, err)
	require.NotEqual(t, blocks, seconds)
	require.Equal(t, int64(sequenceTypeFlag)|10, seconds)
}

func TestCLTVMultisigScriptIsWellFormed(t *testing.T) {
	script, err := CLTVMultisig(700_000, [][]byte{mustKey(1), mustKey(2)})
	require.NoError(t, err)
	require.NotEmpty(t, script)
}

func TestConditionalPrependsCondition(t *testing.T) {
	cond := []byte{0x51} // OP_TRUE
	script, err := Conditional(cond, [][]byte{mustKey(1), mustKey(2)})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(script, cond))
}
