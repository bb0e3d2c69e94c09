package buffer

import (
	"testing"

	"github.com/aledsdavies/corelib/internal/corerr"
	"github.com/stretchr/testify/require"
)

// Push/Pop/Peek/Get/Len behavior against a scripted sequence.
func TestRingBufferScenario(t *testing.T) {
	r := NewRingBuffer[int](3)
	require.NoError(t, r.Push(73))
	require.NoError(t, r.Push(42))
	require.NoError(t, r.Push(119))

	v, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, 73, v)

	require.NoError(t, r.Push(17))

	for i, want := range []int{42, 119, 17} {
		got, ok, err := r.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestRingBufferFIFOOrder(t *testing.T) {
	r := NewRingBuffer[int](5)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Push(i))
	}
	for i := 0; i < 5; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := r.Pop()
	require.False(t, ok)
}

func TestRingBufferNoCapacity(t *testing.T) {
	r := NewRingBuffer[int](2)
	require.NoError(t, r.Push(1))
	require.NoError(t, r.Push(2))
	err := r.Push(3)
	require.Error(t, err)
	require.True(t, corerr.Is(err, corerr.CodeNoCapacity))
}

func TestRingBufferOutOfBounds(t *testing.T) {
	r := NewRingBuffer[int](2)
	require.NoError(t, r.Push(1))

	_, ok, err := r.Get(0)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = r.Get(1)
	require.NoError(t, err)
	require.False(t, ok) // within capacity, beyond used

	_, _, err = r.Get(2)
	require.Error(t, err)
	require.True(t, corerr.Is(err, corerr.CodeOutOfBounds))
}

func TestRingBufferDerivedAccessors(t *testing.T) {
	r := NewRingBuffer[string](4)
	require.True(t, r.IsEmpty())
	require.Equal(t, 4, r.Cap())
	require.Equal(t, 4, r.FreeSpace())

	require.NoError(t, r.Push("a"))
	require.Equal(t, 1, r.Len())
	require.Equal(t, 3, r.FreeSpace())
	require.False(t, r.IsEmpty())

	v, ok := r.Peek()
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, 1, r.Len()) // Peek does not consume
}
