package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPage_InsertReadTuple(t *testing.T) {
	buf := make([]byte, PageSize)
	p := NewPage(buf, 7)
	require.Equal(t, uint32(7), p.PageID())
	require.Equal(t, 0, p.NumSlots())

	slot, err := p.InsertTuple([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 0, slot)

	got, err := p.ReadTuple(slot)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
	require.Equal(t, 1, p.NumSlots())
}

func TestPage_InsertTupleNoSpace(t *testing.T) {
	buf := make([]byte, PageSize)
	p := NewPage(buf, 1)

	big := make([]byte, PageSize)
	_, err := p.InsertTuple(big)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestPage_MarkDeleteApplyRollback(t *testing.T) {
	buf := make([]byte, PageSize)
	p := NewPage(buf, 1)

	slot, err := p.InsertTuple([]byte("row"))
	require.NoError(t, err)

	require.NoError(t, p.MarkDelete(slot))
	_, err = p.ReadTuple(slot)
	require.ErrorIs(t, err, ErrBadSlot)

	require.NoError(t, p.RollbackDelete(slot))
	got, err := p.ReadTuple(slot)
	require.NoError(t, err)
	require.Equal(t, []byte("row"), got)

	require.NoError(t, p.MarkDelete(slot))
	require.NoError(t, p.ApplyDelete(slot))
	_, err = p.ReadTuple(slot)
	require.ErrorIs(t, err, ErrBadSlot)
}

func TestPage_UpdateTupleInPlace(t *testing.T) {
	buf := make([]byte, PageSize)
	p := NewPage(buf, 1)

	slot, err := p.InsertTuple([]byte("abcdef"))
	require.NoError(t, err)

	require.NoError(t, p.UpdateTuple(slot, []byte("xyz")))
	got, err := p.ReadTuple(slot)
	require.NoError(t, err)
	require.Equal(t, []byte("xyz"), got)

	// Growing beyond the original footprint is rejected.
	err = p.UpdateTuple(slot, []byte("this-is-too-long"))
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestPage_SpecialRegionRoundTrip(t *testing.T) {
	buf := make([]byte, PageSize)
	p := NewPage(buf, 1)

	special := p.Special()
	require.Len(t, special, SpecialSize)
	special[0] = 0xAB

	reloaded := WrapPage(buf)
	require.Equal(t, byte(0xAB), reloaded.Special()[0])
}
