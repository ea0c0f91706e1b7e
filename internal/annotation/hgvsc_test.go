package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func i64(v int64) *int64 { return &v }

func TestHGVScDistances(t *testing.T) {
	tests := []struct {
		hgvsc  string
		exon   *int64
		coding *int64
	}{
		{"c.279G>A", i64(0), i64(0)},
		{"c.248-1_248insA", i64(0), i64(0)},
		{"c.11712-20dupT", i64(-20), nil},
		{"c.1624+24T>A", i64(24), nil},
		{"c.*14G>A", i64(0), i64(14)},
		{"c.-315_-314delAC", i64(0), i64(-314)},
		{"c.*431-1_*431insA", i64(0), i64(431)},
		{"c.-5-10C>T", i64(-10), nil},
		{"c.100+3_100+7del", i64(3), nil},
		{"c.200-12_200-2delinsTT", i64(-2), nil},
		{"n.1234A>G", i64(0), i64(0)},
		{"c.76_77insAT", i64(0), i64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.hgvsc, func(t *testing.T) {
			exon, coding, err := HGVScDistances(tt.hgvsc)
			require.NoError(t, err)
			assert.Equal(t, tt.exon, exon)
			assert.Equal(t, tt.coding, coding)
		})
	}
}

func TestHGVScDistances_Unparseable(t *testing.T) {
	for _, h := range []string{"", "p.Arg12Cys", "c.(100_200)del", "NM_000059.3:c.1A>G", "c.?"} {
		exon, coding, err := HGVScDistances(h)
		assert.Error(t, err, h)
		assert.Nil(t, exon)
		assert.Nil(t, coding)
	}
}

func TestDistanceCalculator_LogsOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calc := NewDistanceCalculator(zap.New(core))

	for range 3 {
		exon, coding := calc.Distances("c.?")
		assert.Nil(t, exon)
		assert.Nil(t, coding)
	}
	calc.Distances("c.(1_2)del")
	assert.Equal(t, 2, logs.Len())

	exon, coding := calc.Distances("c.*14G>A")
	assert.Equal(t, i64(0), exon)
	assert.Equal(t, i64(14), coding)
}
