package arkscript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTreeFindLeafRoundTrip(t *testing.T) {
	leafA, err := Multisig([][]byte{mustKey(1), mustKey(2)})
	require.NoError(t, err)
	leafB, err := CSVMultisig(144, TimelockBlocks, [][]byte{mustKey(3), mustKey(4)})
	require.NoError(t, err)

	tree, err := BuildTree([][]byte{leafA, leafB})
	require.NoError(t, err)

	pkScript, err := tree.PkScript()
	require.NoError(t, err)
	require.Len(t, pkScript, 34)
	require.Equal(t, byte(0x51), pkScript[0]) // OP_1

	leaf, err := tree.FindLeaf(LeafHash(leafA))
	require.NoError(t, err)
	require.Equal(t, leafA, leaf.Script)
	require.NotEmpty(t, leaf.ControlBlock)
	require.Equal(t, tree.InternalKey(), leaf.InternalKey)
}

func TestFindLeafUnknownHash(t *testing.T) {
	leafA, err := Multisig([][]byte{mustKey(1), mustKey(2)})
	require.NoError(t, err)
	tree, err := BuildTree([][]byte{leafA})
	require.NoError(t, err)

	bogus := LeafHash([]byte{0x01, 0x02, 0x03})
	_, err = tree.FindLeaf(bogus)
	require.ErrorIs(t, err, ErrUnknownLeaf)
}

func TestBuildTreeRejectsEmpty(t *testing.T) {
	_, err := BuildTree(nil)
	require.ErrorIs(t, err, ErrInvalidScript)
}

func TestBuildTreeDeterministic(t *testing.T) {
	leafA, _ := Multisig([][]byte{mustKey(1), mustKey(2)})
	leafB, _ := Multisig([][]byte{mustKey(3), mustKey(4)})

	t1, err := BuildTree([][]byte{leafA, leafB})
	require.NoError(t, err)
	t2, err := BuildTree([][]byte{leafA, leafB})
	require.NoError(t, err)

	require.Equal(t, t1.TweakedKey().SerializeCompressed(), t2.TweakedKey().SerializeCompressed())
}
