package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"proposta/internal/models"
	"proposta/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newRequest(contractID, creator uint, now time.Time, tokens ...string) *models.SignatureRequest {
	req := &models.SignatureRequest{
		ContractID: contractID,
		CreatedBy:  creator,
		Status:     models.SignatureRequestStatusPending,
		ExpiresAt:  now.Add(models.SignatureRequestTTL),
	}
	for _, tok := range tokens {
		name, email := testutil.FakePerson()
		req.Signatories = append(req.Signatories, models.Signatory{
			Name:              name,
			Email:             email,
			Status:            models.SignatoryStatusPending,
			VerificationToken: tok,
		})
	}
	return req
}

func TestSignatureRepository_CreateAndLoad(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)
	now := time.Now().UTC()

	req := newRequest(contract.ID, 1, now, "tok-a", "tok-b")
	require.NoError(t, repo.CreateRequest(ctx, req))
	require.NotZero(t, req.ID)

	loaded, err := repo.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Signatories, 2)
	assert.Equal(t, "tok-a", loaded.Signatories[0].VerificationToken)

	byToken, err := repo.GetSignatoryByToken(ctx, "tok-b")
	require.NoError(t, err)
	require.NotNil(t, byToken.SignatureRequest)
	assert.Equal(t, req.ID, byToken.SignatureRequest.ID)

	_, err = repo.GetSignatoryByToken(ctx, "nope")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NotContains(t, err.Error(), "nope")
}

func TestSignatureRepository_TokenUniqueAcrossRequests(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateRequest(ctx, newRequest(contract.ID, 1, now, "same-token")))
	err := repo.CreateRequest(ctx, newRequest(contract.ID, 1, now, "same-token"))
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestSignatureRepository_ResolveSignatoryOnlyFromPending(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)
	now := time.Now().UTC()

	req := newRequest(contract.ID, 1, now, "tok-1")
	require.NoError(t, repo.CreateRequest(ctx, req))
	id := req.Signatories[0].ID

	image := "data:image/webp;base64,AAAA"
	ok, err := repo.ResolveSignatory(ctx, id, SignatoryResolution{
		Status: models.SignatoryStatusSigned, SignedAt: now, IPAddress: "10.0.0.1", SignatureImage: &image,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ResolveSignatory(ctx, id, SignatoryResolution{Status: models.SignatoryStatusRejected, SignedAt: now})
	require.NoError(t, err)
	assert.False(t, ok, "second response must not apply")

	s, err := repo.GetSignatory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SignatoryStatusSigned, s.Status)
	require.NotNil(t, s.SignatureImage)
	require.NotNil(t, s.IPAddress)
	assert.Equal(t, "10.0.0.1", *s.IPAddress)

	statuses, err := repo.ListSignatoryStatuses(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.SignatoryStatus{models.SignatoryStatusSigned}, statuses)
}

func TestSignatureRepository_TransitionRequest(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)

	req := newRequest(contract.ID, 1, time.Now().UTC(), "tok-1")
	require.NoError(t, repo.CreateRequest(ctx, req))

	ok, err := repo.TransitionRequest(ctx, req.ID, models.SignatureRequestStatusPending, models.SignatureRequestStatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionRequest(ctx, req.ID, models.SignatureRequestStatusPending, models.SignatureRequestStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok, "completed never reverts")

	locked, err := repo.LockRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignatureRequestStatusCompleted, locked.Status)
}

func TestSignatureRepository_ListOverdueRequests(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)
	now := time.Now().UTC()

	overdue := newRequest(contract.ID, 1, now.Add(-8*24*time.Hour), "tok-old")
	fresh := newRequest(contract.ID, 1, now, "tok-new")
	require.NoError(t, repo.CreateRequest(ctx, overdue))
	require.NoError(t, repo.CreateRequest(ctx, fresh))

	got, err := repo.ListOverdueRequests(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}

func TestSignatureRepository_ListRequestsByCreator(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateRequest(ctx, newRequest(contract.ID, 1, now, "a1")))
	require.NoError(t, repo.CreateRequest(ctx, newRequest(contract.ID, 1, now, "a2", "a3")))
	require.NoError(t, repo.CreateRequest(ctx, newRequest(contract.ID, 2, now, "b1")))

	reqs, total, err := repo.ListRequestsByCreator(ctx, 1, 0, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Signatories, 2, "newest first")
}

func TestSignatureRepository_ListRequestsByCreatorForContract(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	first := testutil.CreateContract(t, db, 1)
	second := testutil.CreateContract(t, db, 1)
	now := time.Now().UTC()

	require.NoError(t, repo.CreateRequest(ctx, newRequest(first.ID, 1, now, "a1")))
	require.NoError(t, repo.CreateRequest(ctx, newRequest(second.ID, 1, now, "b1")))
	require.NoError(t, repo.CreateRequest(ctx, newRequest(second.ID, 1, now, "b2")))

	reqs, total, err := repo.ListRequestsByCreator(ctx, 1, first.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, reqs, 1)
	assert.Equal(t, first.ID, reqs[0].ContractID)

	_, total, err = repo.ListRequestsByCreator(ctx, 2, second.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "other creators see nothing")
}

func TestSignatureRepository_AuditEventsInOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSignatureRepository(db)
	ctx := context.Background()
	contract := testutil.CreateContract(t, db, 1)

	req := newRequest(contract.ID, 1, time.Now().UTC(), "tok-1")
	require.NoError(t, repo.CreateRequest(ctx, req))

	require.NoError(t, repo.AppendAuditEvent(ctx, &models.AuditEvent{
		SignatureRequestID: req.ID,
		EventType:          models.AuditSignatureRequestCreated,
		EventData:          map[string]any{"created_by": 1},
	}))
	sid := req.Signatories[0].ID
	require.NoError(t, repo.AppendAuditEvent(ctx, &models.AuditEvent{
		SignatureRequestID: req.ID,
		SignatoryID:        &sid,
		EventType:          models.AuditSignatureEmailSent,
		EventData:          map[string]any{"email": req.Signatories[0].Email},
	}))

	events, err := repo.ListAuditEvents(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.AuditSignatureRequestCreated, events[0].EventType)
	assert.EqualValues(t, 1, events[0].EventData["created_by"])
	assert.Equal(t, &sid, events[1].SignatoryID)
}

func TestSignatureRepository_ResolveSignatory_SQLShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSignatureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "signatories" SET .+ WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.ResolveSignatory(context.Background(), 9, SignatoryResolution{
		Status: models.SignatoryStatusSigned, SignedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepository_CreateRequest_PostgresErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unique token", &pgconn.PgError{Code: "23505"}, models.CodeConflict},
		{"missing contract", &pgconn.PgError{Code: "23503"}, models.CodeNotFound},
		{"connection lost", errors.New("conn reset"), models.CodePersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewSignatureRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(`INSERT INTO "signature_requests"`).WillReturnError(tt.err)
			mock.ExpectRollback()

			err := repo.CreateRequest(context.Background(), newRequest(3, 1, time.Now(), "t"))
			require.Error(t, err)
			assert.Equal(t, tt.code, models.ErrorCode(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
