// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"proposta/internal/database"
	"proposta/internal/models"
	"proposta/internal/plans"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database. A single connection
// keeps the in-memory schema visible to every query, transactions included.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateContract inserts a proposal owned by userID and a draft contract for it.
func CreateContract(t *testing.T, db *gorm.DB, userID uint) *models.Contract {
	t.Helper()
	proposal := &models.Proposal{
		UserID:     userID,
		ClientName: gofakeit.Company(),
		Items:      []models.ProposalItem{{Name: gofakeit.BuzzWord(), ValueCents: 150000}},
		TotalCents: 150000,
		Template:   "modern",
	}
	require.NoError(t, db.Create(proposal).Error)

	contract := &models.Contract{
		ProposalID: proposal.ID,
		Content:    "CONTRATO DE PRESTAÇÃO DE SERVIÇOS\n\n" + gofakeit.Paragraph(2, 3, 12, " "),
		Status:     models.ContractStatusDraft,
	}
	require.NoError(t, db.Create(contract).Error)
	return contract
}

// CreateProfile stores a sender profile for userID.
func CreateProfile(t *testing.T, db *gorm.DB, userID uint) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: userID, Name: gofakeit.Name(), CompanyName: gofakeit.Company(), Location: gofakeit.City()}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SetPlan stores a subscription row for userID in the period containing now.
func SetPlan(t *testing.T, db *gorm.DB, userID uint, plan plans.Plan, used int, now time.Time) {
	t.Helper()
	period := plans.PeriodOf(now)
	require.NoError(t, db.Save(&models.Subscription{
		UserID:        userID,
		Plan:          string(plan),
		UsedProposals: used,
		PeriodMonth:   int(period.Month),
		PeriodYear:    period.Year,
	}).Error)
}

// FakePerson returns a random signatory name and email.
func FakePerson() (name, email string) {
	return gofakeit.Name(), gofakeit.Email()
}

// PNGDataURL renders a w×h PNG with a diagonal stroke as a data URL.
func PNGDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w && i < h; i++ {
		img.Set(i, i, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
