package server

import (
	"proposta/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateProposal handles POST /api/proposals
// @Summary Create a proposal
// @Description Consumes one proposal from the monthly quota. A draft contract is created when include_contract is set.
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProposalInput true "Proposal"
// @Success 201 {object} service.CreatedProposal
// @Failure 400 {object} models.ErrorResponse
// @Failure 402 {object} models.ErrorResponse
// @Router /proposals [post]
func (s *Server) CreateProposal(c *fiber.Ctx) error {
	var in service.ProposalInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	created, err := s.svc.Proposals.Create(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListProposals handles GET /api/proposals
// @Summary List own proposals
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{items=[]models.Proposal,total=int}
// @Router /proposals [get]
func (s *Server) ListProposals(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	items, total, err := s.svc.Proposals.List(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": total})
}

// ProposalMetrics handles GET /api/proposals/metrics
// @Summary Dashboard metrics
// @Description Totals over all own proposals, the count created in the last 30 days and the five newest with a recency label (nova, recente, anterior).
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ProposalMetrics
// @Router /proposals/metrics [get]
func (s *Server) ProposalMetrics(c *fiber.Ctx) error {
	m, err := s.svc.Proposals.Metrics(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(m)
}

// GetProposal handles GET /api/proposals/:id
// @Summary Get a proposal
// @Tags proposals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.Proposal
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /proposals/{id} [get]
func (s *Server) GetProposal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p, err := s.svc.Proposals.Get(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(p)
}

// UpdateProposal handles PUT /api/proposals/:id
// @Summary Update a proposal
// @Tags proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Param request body service.ProposalInput true "Proposal"
// @Success 200 {object} models.Proposal
// @Router /proposals/{id} [put]
func (s *Server) UpdateProposal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.ProposalInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	p, err := s.svc.Proposals.Update(c.UserContext(), currentUserID(c), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(p)
}

// DeleteProposal handles DELETE /api/proposals/:id
// @Summary Delete a proposal
// @Tags proposals
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Success 204
// @Router /proposals/{id} [delete]
func (s *Server) DeleteProposal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.svc.Proposals.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateContract handles POST /api/proposals/:id/contracts
// @Summary Attach a contract to a proposal
// @Tags contracts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Param request body object{content=string} true "Contract text"
// @Success 201 {object} models.Contract
// @Router /proposals/{id}/contracts [post]
func (s *Server) CreateContract(c *fiber.Ctx) error {
	proposalID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	contract, err := s.svc.Contracts.Create(c.UserContext(), currentUserID(c), proposalID, req.Content)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contract)
}

// ListContracts handles GET /api/proposals/:id/contracts
// @Summary List contracts of a proposal
// @Tags contracts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Proposal ID"
// @Success 200 {array} models.Contract
// @Router /proposals/{id}/contracts [get]
func (s *Server) ListContracts(c *fiber.Ctx) error {
	proposalID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	contracts, err := s.svc.Contracts.ListByProposal(c.UserContext(), currentUserID(c), proposalID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(contracts)
}

// GetContract handles GET /api/contracts/:id
// @Summary Get a contract
// @Tags contracts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contract ID"
// @Success 200 {object} models.Contract
// @Router /contracts/{id} [get]
func (s *Server) GetContract(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	contract, err := s.svc.Contracts.Get(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(contract)
}
