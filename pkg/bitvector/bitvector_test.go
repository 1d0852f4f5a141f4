package bitvector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndGetBits(t *testing.T) {
	bv := New()
	values := []struct {
		v uint64
		w uint
	}{
		{5, 3},
		{1000, 16},
		{0x1FFFFFFFFF, 37},
		{1, 1},
		{0, 5},
		{63, 6},
	}

	offsets := make([]uint64, len(values))
	for i, val := range values {
		offsets[i] = bv.Size()
		bv.AppendBits(val.v, val.w)
	}

	for i, val := range values {
		got := bv.GetBits(offsets[i], val.w)
		require.Equal(t, val.v, got, "field %d", i)
	}
}

func TestSetBitsOverwrite(t *testing.T) {
	bv := NewWithCapacity(128)
	bv.AppendBits(0, 128)
	bv.SetBits(10, 0x3F, 6)
	require.Equal(t, uint64(0x3F), bv.GetBits(10, 6))
	bv.SetBits(60, 0xABCD, 16) // crosses a word boundary
	require.Equal(t, uint64(0xABCD), bv.GetBits(60, 16))
}

func TestSetSingleBit(t *testing.T) {
	bv := New()
	bv.AppendBits(0, 200)
	bv.Set(5, true)
	bv.Set(130, true)
	require.Equal(t, uint64(1), bv.GetBits(5, 1))
	require.Equal(t, uint64(1), bv.GetBits(130, 1))
	require.Equal(t, uint64(0), bv.GetBits(6, 1))
}

func TestGetWord56Unaligned(t *testing.T) {
	bv := New()
	bv.AppendBits(0, 3)
	bv.AppendBits(0x1FFFFFFFFFFFFF, 53) // 53 bits of ones, offset by 3
	word := bv.GetWord56(3)
	require.Equal(t, uint64(0x1FFFFFFFFFFFFF), word&((1<<53)-1))
}

func TestPredecessor1(t *testing.T) {
	bv := New()
	bv.AppendBits(0, 10)
	bv.Set(3, true)
	bv.Set(7, true)

	require.Equal(t, int64(7), bv.Predecessor1(9))
	require.Equal(t, int64(7), bv.Predecessor1(7))
	require.Equal(t, int64(3), bv.Predecessor1(6))
	require.Equal(t, int64(-1), bv.Predecessor1(2))
}

func TestUnaryEnumeratorNext(t *testing.T) {
	bv := New()
	// bit pattern: 1 at positions 2, 5, 5+64=69 (cross word), 130
	bv.AppendBits(0, 140)
	bv.Set(2, true)
	bv.Set(5, true)
	bv.Set(69, true)
	bv.Set(130, true)

	en := NewUnaryEnumerator(bv, 0)
	var got []uint64
	for {
		pos, ok := en.Next()
		if !ok {
			break
		}
		got = append(got, pos)
	}
	require.Equal(t, []uint64{2, 5, 69, 130}, got)
}

func TestUnaryEnumeratorSkip(t *testing.T) {
	bv := New()
	bv.AppendBits(0, 200)
	ones := []uint64{1, 4, 10, 63, 64, 65, 128, 190}
	for _, p := range ones {
		bv.Set(p, true)
	}

	en := NewUnaryEnumerator(bv, 0)
	pos, ok := en.Skip(2) // skip to the 3rd one (index 2 => value 10)
	require.True(t, ok)
	require.Equal(t, uint64(10), pos)

	pos, ok = en.Next()
	require.True(t, ok)
	require.Equal(t, uint64(63), pos)
}

func TestUnaryEnumeratorSkip0(t *testing.T) {
	bv := New()
	bv.AppendBits(0, 80)
	bv.Set(20, true)
	bv.Set(75, true)

	en := NewUnaryEnumerator(bv, 0)
	pos, ok := en.Skip0(19) // skip 19 zero bits; should land exactly on the 1 at 20
	require.True(t, ok)
	require.Equal(t, uint64(20), pos)

	en2 := NewUnaryEnumerator(bv, 21)
	pos2, ok2 := en2.Skip0(53)
	require.True(t, ok2)
	require.Equal(t, uint64(75), pos2)
}
