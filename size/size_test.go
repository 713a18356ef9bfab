package size

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_Primitives(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	for v, want := range map[any]int64{
		true:       1,
		int8(1):    1,
		int16(1):   2,
		int32(1):   4,
		int64(1):   8,
		1:          8,
		float64(1): 8,
	} {
		n, err := e.Estimate(v)
		require.NoError(t, err)
		assert.Equal(t, want, n, "value %v", v)
	}
}

func TestEstimate_Strings(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	short, err := e.Estimate("ab")
	require.NoError(t, err)
	long, err := e.Estimate(strings.Repeat("x", 1000))
	require.NoError(t, err)
	assert.Greater(t, long, short)
	assert.GreaterOrEqual(t, long, int64(1000))
}

func TestEstimate_SliceExtrapolates(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	small := make([]int64, 10)
	big := make([]int64, 10_000)
	sn, err := e.Estimate(small)
	require.NoError(t, err)
	bn, err := e.Estimate(big)
	require.NoError(t, err)

	// The big slice is only sampled, but its estimate must scale with
	// the element count.
	assert.Greater(t, bn, sn*100)
	assert.InDelta(t, float64(8*10_000), float64(bn), float64(8*10_000)) // within 2x
}

func TestEstimate_Map(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	m := map[string]int64{}
	for _, k := range []string{"a", "b", "c", "d"} {
		m[k] = 1
	}
	n, err := e.Estimate(m)
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))
}

func TestEstimate_StructFallsBackToJSON(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	type payload struct {
		Name string
		Body string
	}
	small, err := e.Estimate(payload{Name: "a", Body: "b"})
	require.NoError(t, err)
	large, err := e.Estimate(payload{Name: "a", Body: strings.Repeat("x", 4096)})
	require.NoError(t, err)
	assert.Greater(t, large, small, "serialized length must drive the estimate")
}

func TestEstimate_UnserializableUsesTypeFootprint(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	type weird struct {
		C chan int
	}
	n, err := e.Estimate(weird{C: make(chan int)})
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))

	// The reflective fallback result is cached per type.
	n2, err := e.Estimate(weird{C: make(chan int)})
	require.NoError(t, err)
	assert.Equal(t, n, n2)
}

func TestEstimate_Nil(t *testing.T) {
	t.Parallel()
	n, err := Of(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEstimate_Pointer(t *testing.T) {
	t.Parallel()
	e := NewEstimator()

	v := int64(7)
	n, err := e.Estimate(&v)
	require.NoError(t, err)
	assert.Equal(t, int64(16), n) // pointee + pointer
}
