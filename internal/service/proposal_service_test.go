package service

import (
	"context"
	"testing"
	"time"

	"proposta/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func insertProposal(t *testing.T, db *gorm.DB, userID uint, totalCents int64, createdAt time.Time) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		UserID:     userID,
		ClientName: "Cliente",
		Items:      []models.ProposalItem{{Name: "Serviço", ValueCents: totalCents}},
		TotalCents: totalCents,
		Template:   defaultProposalTemplate,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestProposalService_MetricsEmpty(t *testing.T) {
	now := time.Date(2026, time.May, 3, 9, 0, 0, 0, time.UTC)
	_, proposals, _ := newQuotaFixture(t, now)
	proposals.now = func() time.Time { return now }

	m, err := proposals.Metrics(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, m.TotalCount)
	assert.Zero(t, m.TotalValueCents)
	assert.Zero(t, m.RecentCount)
	assert.Zero(t, m.AverageValueCents)
	assert.Empty(t, m.Recent)
}

func TestProposalService_MetricsWindowAndLabels(t *testing.T) {
	now := time.Date(2026, time.May, 3, 9, 0, 0, 0, time.UTC)
	_, proposals, db := newQuotaFixture(t, now)
	proposals.now = func() time.Time { return now }
	cutoff := now.AddDate(0, 0, -30)

	insertProposal(t, db, 1, 10000, cutoff.Add(-time.Second))
	insertProposal(t, db, 1, 20000, cutoff)
	insertProposal(t, db, 1, 30000, now.Add(-3*24*time.Hour))
	insertProposal(t, db, 1, 40000, now.Add(-2*time.Hour))
	insertProposal(t, db, 1, 50000, now.Add(-8*24*time.Hour))
	insertProposal(t, db, 1, 60000, now.Add(-10*24*time.Hour))
	insertProposal(t, db, 2, 99900, now)
	deleted := insertProposal(t, db, 1, 70000, now.Add(-time.Hour))
	require.NoError(t, db.Delete(deleted).Error)

	m, err := proposals.Metrics(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 6, m.TotalCount)
	assert.EqualValues(t, 210000, m.TotalValueCents)
	assert.EqualValues(t, 35000, m.AverageValueCents)
	assert.EqualValues(t, 5, m.RecentCount, "cutoff is inclusive")

	require.Len(t, m.Recent, 5)
	values := make([]int64, len(m.Recent))
	labels := make([]string, len(m.Recent))
	for i, r := range m.Recent {
		values[i] = r.TotalCents
		labels[i] = r.StatusLabel
	}
	assert.Equal(t, []int64{40000, 30000, 50000, 60000, 20000}, values)
	assert.Equal(t, []string{RecencyNew, RecencyRecent, RecencyOlder, RecencyOlder, RecencyOlder}, labels)
}

func TestRecencyLabel(t *testing.T) {
	cases := map[time.Duration]string{
		0:                   RecencyNew,
		23 * time.Hour:      RecencyNew,
		24 * time.Hour:      RecencyRecent,
		7*24*time.Hour - 1:  RecencyRecent,
		7 * 24 * time.Hour:  RecencyOlder,
		-5 * time.Minute:    RecencyNew,
		90 * 24 * time.Hour: RecencyOlder,
	}
	for age, want := range cases {
		assert.Equal(t, want, recencyLabel(age), "age %s", age)
	}
}
