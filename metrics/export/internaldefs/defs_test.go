package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/authgate"
	"github.com/stretchr/testify/assert"
)

func TestEveryCounterHasADefinition(t *testing.T) {
	seen := map[authgate.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		assert.False(t, seen[def.ID], "duplicate id %d", def.ID)
		assert.False(t, names[def.Name], "duplicate name %s", def.Name)
		assert.True(t, strings.HasPrefix(def.Name, "authgate_"))
		assert.True(t, strings.HasSuffix(def.Name, "_total"))
		seen[def.ID] = true
		names[def.Name] = true
	}
	for _, def := range HistogramDefs {
		seen[def.ID] = true
	}
	for id := authgate.MetricID(0); id < authgate.MetricIDCount; id++ {
		assert.True(t, seen[id], "metric id %d has no definition", id)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	raw := NormalizeBuckets([]uint64{1, 2, 0, 3})
	assert.Equal(t, [8]uint64{1, 3, 3, 6, 6, 6, 6, 6}, CumulativeBuckets(raw))
	assert.Len(t, HistogramUpperBounds, len(HistogramBoundSuffix)-1)
}
