package plans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaFor(t *testing.T) {
	assert.Equal(t, 2, QuotaFor(Free))
	assert.Equal(t, 10, QuotaFor(Intermediate))
	assert.Equal(t, Unlimited, QuotaFor(Professional))
	assert.Equal(t, 2, QuotaFor(Plan("enterprise-legacy")), "unknown plans fall back to free")
}

func TestCanCreate(t *testing.T) {
	tests := []struct {
		plan Plan
		used int
		want bool
	}{
		{Free, 0, true},
		{Free, 1, true},
		{Free, 2, false},
		{Free, 5, false},
		{Intermediate, 9, true},
		{Intermediate, 10, false},
		{Professional, 10_000, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanCreate(tt.plan, tt.used), "%s used=%d", tt.plan, tt.used)
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 1, Remaining(Free, 1))
	assert.Equal(t, 0, Remaining(Free, 7), "never negative")
	assert.Equal(t, Unlimited, Remaining(Professional, 123))
}

func TestParse(t *testing.T) {
	p, err := Parse("  Professional ")
	require.NoError(t, err)
	assert.Equal(t, Professional, p)

	_, err = Parse("gold")
	assert.Error(t, err)
}

func TestHasFeature(t *testing.T) {
	assert.False(t, HasFeature(Free, FeatureESignature))
	assert.True(t, HasFeature(Intermediate, FeatureESignature))
	assert.False(t, HasFeature(Intermediate, FeatureCustomTemplates))
	assert.True(t, HasFeature(Professional, FeaturePrioritySupport))
}

func TestCatalogPrices(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 3)
	assert.Equal(t, int64(0), defs[0].PriceCents)
	assert.Equal(t, int64(2990), defs[1].PriceCents)
	assert.Equal(t, int64(5990), defs[2].PriceCents)
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	_, err := parseCatalog([]byte("plans:\n  - id: free\n    limit: 2\n  - id: free\n    limit: 3\n"))
	assert.Error(t, err)
}

func TestPeriodAdvance(t *testing.T) {
	marker := Period{Year: 2026, Month: time.March}

	next, reset := marker.Advance(time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC))
	assert.False(t, reset)
	assert.Equal(t, marker, next)

	next, reset = marker.Advance(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, reset)
	assert.Equal(t, Period{Year: 2026, Month: time.April}, next)

	next, reset = Period{Year: 2025, Month: time.December}.Advance(time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))
	assert.True(t, reset)
	assert.Equal(t, Period{Year: 2026, Month: time.January}, next)

	_, reset = Period{Year: 2027, Month: time.January}.Advance(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, reset, "a marker in the future is not rewound")
}
