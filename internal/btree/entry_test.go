package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/record"
)

func TestEncodeDecodeLeafEntry(t *testing.T) {
	rid := record.RowID{PageID: 123, SlotID: 7}
	key := KeyType(42)

	b := EncodeLeafEntry(key, rid)
	require.Len(t, b, LeafEntrySize)

	k2, rid2 := DecodeLeafEntry(b)
	require.Equal(t, key, k2)
	require.Equal(t, rid, rid2)
}

func TestEncodeDecodeInternalEntry(t *testing.T) {
	key := KeyType(-17)
	child := uint32(9)

	b := EncodeInternalEntry(key, child)
	require.Len(t, b, InternalEntrySize)

	k2, c2 := DecodeInternalEntry(b)
	require.Equal(t, key, k2)
	require.Equal(t, child, c2)
}
