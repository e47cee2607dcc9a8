package server

import (
	"fmt"
	"net/http"
	"testing"

	"proposta/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createdProposalResponse struct {
	Proposal models.Proposal  `json:"proposal"`
	Contract *models.Contract `json:"contract"`
	Usage    struct {
		Used      int  `json:"used"`
		Remaining int  `json:"remaining"`
		CanCreate bool `json:"can_create"`
	} `json:"usage"`
}

func proposalBody(withContract bool) map[string]any {
	body := map[string]any{
		"client_name": "Padaria Pão Quente",
		"description": "Identidade visual",
		"items": []map[string]any{
			{"name": "Logo", "value_cents": 150000},
			{"name": "Cartões", "value_cents": 35000},
		},
		"include_contract": withContract,
	}
	if withContract {
		body["contract_content"] = "CONTRATO DE PRESTAÇÃO DE SERVIÇOS\n\nCLÁUSULA 1. Objeto."
	}
	return body
}

func TestCreateProposal_QuotaOnFreePlan(t *testing.T) {
	env := newTestEnv(t, "")

	for i := 1; i <= 2; i++ {
		var out createdProposalResponse
		resp := env.do(t, http.MethodPost, "/api/proposals", 3, proposalBody(i == 1), &out)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.EqualValues(t, 185000, out.Proposal.TotalCents)
		assert.Equal(t, i, out.Usage.Used)
		assert.Equal(t, 2-i, out.Usage.Remaining)
		if i == 1 {
			require.NotNil(t, out.Contract)
			assert.Equal(t, models.ContractStatusDraft, out.Contract.Status)
		} else {
			assert.Nil(t, out.Contract)
		}
	}

	var errResp models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/api/proposals", 3, proposalBody(false), &errResp)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, models.CodeQuotaExceeded, errResp.Code)

	var usage struct {
		Used      int  `json:"used"`
		CanCreate bool `json:"can_create"`
	}
	env.do(t, http.MethodGet, "/api/subscription", 3, nil, &usage)
	assert.Equal(t, 2, usage.Used)
	assert.False(t, usage.CanCreate)
}

func TestCreateProposal_Validation(t *testing.T) {
	env := newTestEnv(t, "")
	body := proposalBody(false)
	body["items"] = []map[string]any{}

	var errResp models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/api/proposals", 3, body, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errResp.Code)

	// A rejected proposal does not consume quota.
	var usage struct {
		Used int `json:"used"`
	}
	env.do(t, http.MethodGet, "/api/subscription", 3, nil, &usage)
	assert.Equal(t, 0, usage.Used)
}

func TestProposalCRUD(t *testing.T) {
	env := newTestEnv(t, "")

	var created createdProposalResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/proposals", 3, proposalBody(false), &created).StatusCode)
	path := fmt.Sprintf("/api/proposals/%d", created.Proposal.ID)

	var list struct {
		Items []models.Proposal `json:"items"`
		Total int64             `json:"total"`
	}
	env.do(t, http.MethodGet, "/api/proposals", 3, nil, &list)
	assert.EqualValues(t, 1, list.Total)

	update := proposalBody(false)
	update["client_name"] = "Padaria Nova"
	var updated models.Proposal
	resp := env.do(t, http.MethodPut, path, 3, update, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Padaria Nova", updated.ClientName)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, 4, nil, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, path, 4, nil, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/proposals/abc", 3, nil, nil).StatusCode)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, 3, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, 3, nil, nil).StatusCode)
}

func TestContracts(t *testing.T) {
	env := newTestEnv(t, "")

	var created createdProposalResponse
	env.do(t, http.MethodPost, "/api/proposals", 3, proposalBody(false), &created)
	contractsPath := fmt.Sprintf("/api/proposals/%d/contracts", created.Proposal.ID)

	var contract models.Contract
	resp := env.do(t, http.MethodPost, contractsPath, 3, map[string]string{"content": "Cláusula única."}, &contract)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.ContractStatusDraft, contract.Status)

	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPost, contractsPath, 3, map[string]string{"content": "  "}, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden,
		env.do(t, http.MethodPost, contractsPath, 4, map[string]string{"content": "x"}, nil).StatusCode)

	var contracts []models.Contract
	env.do(t, http.MethodGet, contractsPath, 3, nil, &contracts)
	assert.Len(t, contracts, 1)

	contractPath := fmt.Sprintf("/api/contracts/%d", contract.ID)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, contractPath, 3, nil, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, contractPath, 4, nil, nil).StatusCode)
}

func TestProfileAndPlan(t *testing.T) {
	env := newTestEnv(t, "")

	var profile models.Profile
	resp := env.do(t, http.MethodPut, "/api/profile", 3, map[string]string{
		"name":         "Ana Souza",
		"company_name": "Ana Design",
		"company_logo": "ftp://logo",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/profile", 3, map[string]string{
		"name":         "Ana Souza",
		"company_name": "Ana Design",
		"location":     "Recife, PE",
	}, &profile)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ana Design", profile.CompanyName)

	var usage struct {
		Plan      string `json:"plan"`
		Unlimited bool   `json:"unlimited"`
	}
	resp = env.do(t, http.MethodPut, "/api/subscription/plan", 3, map[string]string{"plan": "professional"}, &usage)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "professional", usage.Plan)
	assert.True(t, usage.Unlimited)

	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPut, "/api/subscription/plan", 3, map[string]string{"plan": "platinum"}, nil).StatusCode)
}

func TestProposalMetrics(t *testing.T) {
	env := newTestEnv(t, "")
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/proposals", 3, proposalBody(false), nil).StatusCode)
	}

	var m struct {
		TotalCount        int64 `json:"total_count"`
		TotalValueCents   int64 `json:"total_value_cents"`
		RecentCount       int64 `json:"recent_count"`
		AverageValueCents int64 `json:"average_value_cents"`
		Recent            []struct {
			ID          uint   `json:"id"`
			ClientName  string `json:"client_name"`
			StatusLabel string `json:"status_label"`
		} `json:"recent"`
	}
	resp := env.do(t, http.MethodGet, "/api/proposals/metrics", 3, nil, &m)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, m.TotalCount)
	assert.EqualValues(t, 370000, m.TotalValueCents)
	assert.EqualValues(t, 185000, m.AverageValueCents)
	assert.EqualValues(t, 2, m.RecentCount)
	require.Len(t, m.Recent, 2)
	assert.Equal(t, "nova", m.Recent[0].StatusLabel)
	assert.Equal(t, "Padaria Pão Quente", m.Recent[0].ClientName)

	resp = env.do(t, http.MethodGet, "/api/proposals/metrics", 4, nil, &m)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, m.TotalCount)
	assert.Zero(t, m.AverageValueCents)
	assert.Empty(t, m.Recent)
}
