package btree

import (
	"github.com/minisql-engine/core/internal/alias/bx"
	"github.com/minisql-engine/core/internal/record"
)

// KeyType is the key type supported by this B+-tree. Keys are fixed-size
// int64; see DESIGN.md for why variable-size keys were scoped out.
type KeyType = int64

const (
	// LeafEntrySize is one leaf entry: 8 bytes key + 4 bytes PageID + 4
	// bytes SlotID.
	LeafEntrySize = 8 + 4 + 4

	// InternalEntrySize is 8 bytes key + 4 bytes child page id.
	InternalEntrySize = 8 + 4
)

// EncodeLeafEntry encodes (key, rid) as [key int64][PageID int32][SlotID uint32].
func EncodeLeafEntry(key KeyType, rid record.RowID) []byte {
	buf := make([]byte, LeafEntrySize)
	bx.PutU64(buf[0:8], uint64(key))
	bx.PutU32(buf[8:12], uint32(rid.PageID))
	bx.PutU32(buf[12:16], rid.SlotID)
	return buf
}

// DecodeLeafEntry decodes a leaf entry into (key, rid).
func DecodeLeafEntry(b []byte) (KeyType, record.RowID) {
	if len(b) < LeafEntrySize {
		return 0, record.RowID{}
	}
	key := int64(bx.U64(b[0:8]))
	pageID := int32(bx.U32(b[8:12]))
	slotID := bx.U32(b[12:16])
	return key, record.RowID{PageID: pageID, SlotID: slotID}
}

// EncodeInternalEntry encodes (minKey, childPageID).
func EncodeInternalEntry(key KeyType, child uint32) []byte {
	buf := make([]byte, InternalEntrySize)
	bx.PutU64(buf[0:8], uint64(key))
	bx.PutU32(buf[8:12], child)
	return buf
}

// DecodeInternalEntry decodes an internal entry into (key, childPageID).
func DecodeInternalEntry(b []byte) (KeyType, uint32) {
	if len(b) < InternalEntrySize {
		return 0, 0
	}
	key := int64(bx.U64(b[0:8]))
	child := bx.U32(b[8:12])
	return key, child
}
