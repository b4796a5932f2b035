package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weights() []Weight {
	return []Weight{
		{"landsat", 3},
		{"modis", 2},
		{"viirs", 1},
		{"plot", 1},
	}
}

func TestNewBuildsWeightedSequence(t *testing.T) {
	r := New(weights())
	require.Equal(t, 7, r.Len())
	assert.Equal(t,
		[]string{"landsat", "landsat", "landsat", "modis", "modis", "viirs", "plot"},
		r.Snapshot(),
	)
}

func TestNextRotatesHeadToTail(t *testing.T) {
	r := New(weights())

	got := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		got = append(got, r.Next())
	}

	assert.Equal(t,
		[]string{"landsat", "landsat", "landsat", "modis", "modis", "viirs", "plot"},
		got,
	)
}

// TestRoundTripRestoresInitialOrder is the literal scenario 6 from the spec:
// rotating sum(weights) times restores the original order.
func TestRoundTripRestoresInitialOrder(t *testing.T) {
	r := New(weights())
	initial := r.Snapshot()

	for i := 0; i < r.Len(); i++ {
		r.Next()
	}

	assert.Equal(t, initial, r.Snapshot())
}

func TestMultisetIsConstantAcrossRotation(t *testing.T) {
	r := New(weights())
	counts := func(s []string) map[string]int {
		m := map[string]int{}
		for _, c := range s {
			m[c]++
		}
		return m
	}
	initial := counts(r.Snapshot())

	for i := 0; i < 25; i++ {
		r.Next()
		assert.Equal(t, initial, counts(r.Snapshot()))
	}
}
