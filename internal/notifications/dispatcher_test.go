package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"proposta/internal/models"
	"proposta/internal/observability"
	"proposta/internal/repository"
	"proposta/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func linkFor(token string) string { return "https://app.example/assinatura/" + token }

func seedSignatory(t *testing.T, db *gorm.DB) *models.Signatory {
	t.Helper()
	contract := testutil.CreateContract(t, db, 3)
	testutil.CreateProfile(t, db, 3)
	name, email := testutil.FakePerson()
	req := &models.SignatureRequest{
		ContractID: contract.ID,
		CreatedBy:  3,
		Status:     models.SignatureRequestStatusPending,
		ExpiresAt:  time.Date(2026, 4, 8, 15, 0, 0, 0, time.UTC),
		Signatories: []models.Signatory{{
			Name: name, Email: email, Status: models.SignatoryStatusPending,
			VerificationToken: "tok_abcdefghijklmnopqrstuvwxyz0123456789",
		}},
	}
	require.NoError(t, db.Create(req).Error)
	return &req.Signatories[0]
}

func TestSignatureDispatcher_QueuesInvitation(t *testing.T) {
	observability.EnableRepoLogging = false
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewTestDB(t)
	sig := seedSignatory(t, db)
	d := NewSignatureDispatcher(repository.NewStore(db), rdb, "mail:outbox", linkFor)
	ctx := context.Background()

	require.NoError(t, d.NotifySignatory(ctx, sig.ID, false))
	require.NoError(t, d.NotifySignatory(ctx, sig.ID, true))

	items, err := rdb.LRange(ctx, "mail:outbox", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 2)

	var reminder, invite MailMessage
	require.NoError(t, json.Unmarshal([]byte(items[0]), &reminder))
	require.NoError(t, json.Unmarshal([]byte(items[1]), &invite))

	assert.Equal(t, sig.Email, invite.To)
	assert.Equal(t, "signature_invitation", invite.Kind)
	assert.False(t, invite.Resend)
	assert.Contains(t, invite.Text, linkFor(sig.VerificationToken))
	assert.Contains(t, invite.Text, "08/04/2026")
	assert.NotEmpty(t, invite.ID)

	assert.True(t, reminder.Resend)
	assert.Equal(t, "signature_reminder", reminder.Kind)
	assert.Contains(t, reminder.Subject, "Lembrete")
	assert.NotEqual(t, invite.ID, reminder.ID)
}

func TestSignatureDispatcher_UnknownSignatory(t *testing.T) {
	db := testutil.NewTestDB(t)
	d := NewSignatureDispatcher(repository.NewStore(db), nil, "mail:outbox", linkFor)

	err := d.NotifySignatory(context.Background(), 404, false)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestSignatureDispatcher_WithoutRedisSucceeds(t *testing.T) {
	db := testutil.NewTestDB(t)
	sig := seedSignatory(t, db)
	d := NewSignatureDispatcher(repository.NewStore(db), nil, "mail:outbox", linkFor)

	assert.NoError(t, d.NotifySignatory(context.Background(), sig.ID, false))
}

func TestSignatureDispatcher_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	db := testutil.NewTestDB(t)
	sig := seedSignatory(t, db)
	d := NewSignatureDispatcher(repository.NewStore(db), rdb, "mail:outbox", linkFor)

	assert.Error(t, d.NotifySignatory(context.Background(), sig.ID, false))
}

func TestComposeInvitation_WithoutSenderProfile(t *testing.T) {
	sig := &models.Signatory{ID: 1, Name: "Bia", Email: "bia@example.com"}
	req := &models.SignatureRequest{ID: 2, ExpiresAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)}
	contract := &models.Contract{}

	msg := composeInvitation(sig, req, contract, nil, "https://x/assinatura/t", false)
	assert.Equal(t, "Proposta solicitou sua assinatura", msg.Subject)
	assert.Contains(t, msg.Text, "Olá Bia")
	assert.Equal(t, uint(2), msg.SignatureRequestID)
}
