package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"proposta/internal/models"
	"proposta/internal/plans"
	"proposta/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRequest(t *testing.T, env *testEnv, userID, contractID uint, emails ...string) models.SignatureRequest {
	t.Helper()
	signatories := make([]map[string]string, 0, len(emails))
	for i, email := range emails {
		signatories = append(signatories, map[string]string{"name": fmt.Sprintf("Signatário %d", i+1), "email": email})
	}
	var req models.SignatureRequest
	resp := env.do(t, http.MethodPost, "/api/signature-requests", userID, map[string]any{
		"contract_id": contractID,
		"signatories": signatories,
	}, &req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return req
}

func TestSignatureFlow_AllSign(t *testing.T) {
	env := newTestEnv(t, "")
	contract := testutil.CreateContract(t, env.db, 3)
	testutil.CreateProfile(t, env.db, 3)

	req := createRequest(t, env, 3, contract.ID, "ana@example.com", "bia@example.com")
	require.Len(t, req.Signatories, 2)
	assert.Equal(t, models.SignatureRequestStatusPending, req.Status)
	assert.Equal(t, models.SignatureRequestTTL, req.ExpiresAt.Sub(req.CreatedAt))

	outbox, err := env.rdb.LLen(context.Background(), "mail:outbox").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, outbox)

	for i, sig := range req.Signatories {
		require.Contains(t, sig.SigningLink, "https://app.example.com/assinatura/")
		token := tokenFromLink(t, sig.SigningLink)

		var view struct {
			ContractContent string `json:"contract_content"`
			RequestStatus   string `json:"request_status"`
		}
		resp := env.do(t, http.MethodGet, "/api/sign/"+token, 0, nil, &view)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, contract.Content, view.ContractContent)
		assert.Equal(t, "pending", view.RequestStatus)

		var signed models.Signatory
		resp = env.do(t, http.MethodPost, "/api/sign/"+token, 0, map[string]any{
			"status":          "signed",
			"signature_image": testutil.PNGDataURL(t, 300, 100),
		}, &signed)
		require.Equal(t, http.StatusOK, resp.StatusCode, "signatory %d", i)
		assert.Equal(t, models.SignatoryStatusSigned, signed.Status)
		require.NotNil(t, signed.SignatureImage)
		assert.Contains(t, *signed.SignatureImage, "data:image/webp;base64,")
	}

	var got models.SignatureRequest
	env.do(t, http.MethodGet, fmt.Sprintf("/api/signature-requests/%d", req.ID), 3, nil, &got)
	assert.Equal(t, models.SignatureRequestStatusCompleted, got.Status)

	// A second response on the same link is refused.
	token := tokenFromLink(t, req.Signatories[0].SigningLink)
	var errResp models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/api/sign/"+token, 0, map[string]any{"status": "rejected"}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodePreconditionFailed, errResp.Code)

	var events []models.AuditEvent
	env.do(t, http.MethodGet, fmt.Sprintf("/api/signature-requests/%d/audit", req.ID), 3, nil, &events)
	types := make([]models.AuditEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, models.AuditSignatureRequestCreated)
	assert.Contains(t, types, models.AuditSignatureEmailSent)
	assert.Contains(t, types, models.AuditSignatureSigned)
	assert.Contains(t, types, models.AuditSignatureRequestCompleted)
}

func TestSignatureFlow_RejectCancelsRequest(t *testing.T) {
	env := newTestEnv(t, "")
	contract := testutil.CreateContract(t, env.db, 3)
	req := createRequest(t, env, 3, contract.ID, "ana@example.com", "bia@example.com")

	first := tokenFromLink(t, req.Signatories[0].SigningLink)
	second := tokenFromLink(t, req.Signatories[1].SigningLink)

	resp := env.do(t, http.MethodPost, "/api/sign/"+first, 0, map[string]any{
		"status":  "rejected",
		"comment": "Valor acima do combinado",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var errResp models.ErrorResponse
	resp = env.do(t, http.MethodGet, "/api/sign/"+second, 0, nil, &errResp)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, models.CodeRequestExpiredOrCancelled, errResp.Code)

	resp = env.do(t, http.MethodPost, "/api/sign/"+second, 0, map[string]any{"status": "signed"}, nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestPublicSign_InvalidInput(t *testing.T) {
	env := newTestEnv(t, "")
	contract := testutil.CreateContract(t, env.db, 3)
	req := createRequest(t, env, 3, contract.ID, "ana@example.com")
	token := tokenFromLink(t, req.Signatories[0].SigningLink)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/sign/short", 0, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		env.do(t, http.MethodGet, "/api/sign/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", 0, nil, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPost, "/api/sign/"+token, 0, map[string]any{"status": "pending"}, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPost, "/api/sign/"+token, 0, map[string]any{
			"status":          "signed",
			"signature_image": "data:image/gif;base64,R0lGODlhAQABAAAAACw=",
		}, nil).StatusCode)

	// Nothing was recorded by the failed attempts.
	var got models.SignatureRequest
	env.do(t, http.MethodGet, fmt.Sprintf("/api/signature-requests/%d", req.ID), 3, nil, &got)
	assert.Equal(t, models.SignatoryStatusPending, got.Signatories[0].Status)
}

func TestCreateSignatureRequest_Validation(t *testing.T) {
	env := newTestEnv(t, "")
	contract := testutil.CreateContract(t, env.db, 3)

	cases := map[string][]map[string]string{
		"empty":         {},
		"blank name":    {{"name": " ", "email": "ana@example.com"}},
		"invalid email": {{"name": "Ana", "email": "ana"}},
		"duplicate":     {{"name": "Ana", "email": "ana@example.com"}, {"name": "Ana 2", "email": "ANA@example.com"}},
	}
	for name, signatories := range cases {
		t.Run(name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/signature-requests", 3, map[string]any{
				"contract_id": contract.ID,
				"signatories": signatories,
			}, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := env.do(t, http.MethodPost, "/api/signature-requests", 3, map[string]any{
		"contract_id": 9999,
		"signatories": []map[string]string{{"name": "Ana", "email": "ana@example.com"}},
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/signature-requests", 4, map[string]any{
		"contract_id": contract.ID,
		"signatories": []map[string]string{{"name": "Ana", "email": "ana@example.com"}},
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateSignatureRequest_PlanGate(t *testing.T) {
	env := newTestEnv(t, "e_signature_plan_gate=on")
	contract := testutil.CreateContract(t, env.db, 3)
	body := map[string]any{
		"contract_id": contract.ID,
		"signatories": []map[string]string{{"name": "Ana", "email": "ana@example.com"}},
	}

	var errResp models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/api/signature-requests", 3, body, &errResp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var flags struct {
		Evaluated map[string]bool `json:"evaluated"`
	}
	env.do(t, http.MethodGet, "/api/feature-flags", 3, nil, &flags)
	assert.True(t, flags.Evaluated["e_signature_plan_gate"])

	testutil.SetPlan(t, env.db, 3, plans.Intermediate, 0, time.Now())
	resp = env.do(t, http.MethodPost, "/api/signature-requests", 3, body, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSignatureRequest_OwnerOperations(t *testing.T) {
	env := newTestEnv(t, "")
	contract := testutil.CreateContract(t, env.db, 3)
	req := createRequest(t, env, 3, contract.ID, "ana@example.com")
	reqPath := fmt.Sprintf("/api/signature-requests/%d", req.ID)
	resendPath := fmt.Sprintf("/api/signatories/%d/resend", req.Signatories[0].ID)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, reqPath, 4, nil, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, reqPath+"/audit", 4, nil, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, reqPath+"/cancel", 4, nil, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, resendPath, 4, nil, nil).StatusCode)

	var resent struct {
		Sent bool `json:"sent"`
	}
	resp := env.do(t, http.MethodPost, resendPath, 3, nil, &resent)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, resent.Sent)

	var list struct {
		Items []models.SignatureRequest `json:"items"`
		Total int64                     `json:"total"`
	}
	env.do(t, http.MethodGet, "/api/signature-requests", 3, nil, &list)
	assert.EqualValues(t, 1, list.Total)
	env.do(t, http.MethodGet, "/api/signature-requests", 4, nil, &list)
	assert.EqualValues(t, 0, list.Total)

	var cancelled models.SignatureRequest
	resp = env.do(t, http.MethodPost, reqPath+"/cancel", 3, nil, &cancelled)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.SignatureRequestStatusCancelled, cancelled.Status)

	assert.Equal(t, http.StatusGone, env.do(t, http.MethodPost, reqPath+"/cancel", 3, nil, nil).StatusCode)
	assert.Equal(t, http.StatusGone, env.do(t, http.MethodPost, resendPath, 3, nil, nil).StatusCode)

	token := tokenFromLink(t, req.Signatories[0].SigningLink)
	assert.Equal(t, http.StatusGone, env.do(t, http.MethodGet, "/api/sign/"+token, 0, nil, nil).StatusCode)
}

func TestListSignatureRequests_ContractFilter(t *testing.T) {
	env := newTestEnv(t, "")
	first := testutil.CreateContract(t, env.db, 3)
	second := testutil.CreateContract(t, env.db, 3)
	want := createRequest(t, env, 3, first.ID, "ana@example.com")
	createRequest(t, env, 3, second.ID, "bruno@example.com")

	var list struct {
		Items []models.SignatureRequest `json:"items"`
		Total int64                     `json:"total"`
	}
	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/signature-requests?contract_id=%d", first.ID), 3, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, want.ID, list.Items[0].ID)

	env.do(t, http.MethodGet, "/api/signature-requests", 3, nil, &list)
	assert.EqualValues(t, 2, list.Total)

	resp = env.do(t, http.MethodGet, "/api/signature-requests?contract_id=-1", 3, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
