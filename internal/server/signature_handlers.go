package server

import (
	"context"

	"proposta/internal/featureflags"
	"proposta/internal/models"
	"proposta/internal/plans"
	"proposta/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createSignatureRequestBody struct {
	ContractID  uint                     `json:"contract_id"`
	Signatories []service.SignatoryInput `json:"signatories"`
}

type signatureResponseBody struct {
	Status         models.SignatoryStatus `json:"status"`
	SignatureImage string                 `json:"signature_image,omitempty"`
	Comment        string                 `json:"comment,omitempty"`
}

// CreateSignatureRequest handles POST /api/signature-requests
// @Summary Request signatures on a contract
// @Description Creates the request with one signing link per signatory. Links expire after 7 days.
// @Tags signatures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createSignatureRequestBody true "Contract and signatories"
// @Success 201 {object} models.SignatureRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /signature-requests [post]
func (s *Server) CreateSignatureRequest(c *fiber.Ctx) error {
	var body createSignatureRequestBody
	if err := parseBody(c, &body); err != nil {
		return nil
	}
	userID := currentUserID(c)

	allowed, err := s.signaturesAllowed(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	if !allowed {
		return respond(c, models.NewForbiddenError("Your plan does not include electronic signatures"))
	}

	req, err := s.svc.Signatures.CreateSignatureRequest(c.UserContext(), service.CreateSignatureRequestInput{
		UserID:      userID,
		ContractID:  body.ContractID,
		Signatories: body.Signatories,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// signaturesAllowed applies the e_signature plan gate when its flag is on for the user.
func (s *Server) signaturesAllowed(ctx context.Context, userID uint) (bool, error) {
	subject, err := s.flagSubject(ctx, userID)
	if err != nil {
		return false, err
	}
	if !s.svc.FeatureFlags.EnabledFor(featureflags.ESignaturePlanGate, subject) {
		return true, nil
	}
	return s.svc.Quota.HasFeature(ctx, userID, plans.FeatureESignature)
}

// ListSignatureRequests handles GET /api/signature-requests
// @Summary List own signature requests
// @Tags signatures
// @Produce json
// @Security BearerAuth
// @Param contract_id query int false "Only requests for this contract"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} object{items=[]models.SignatureRequest,total=int}
// @Failure 400 {object} models.ErrorResponse
// @Router /signature-requests [get]
func (s *Server) ListSignatureRequests(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	contractID := c.QueryInt("contract_id", 0)
	if contractID < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid contract ID"))
	}
	items, total, err := s.svc.Signatures.ListSignatureRequests(c.UserContext(), currentUserID(c), uint(contractID), page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": total})
}

// GetSignatureRequest handles GET /api/signature-requests/:id
// @Summary Get a signature request
// @Tags signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Signature request ID"
// @Success 200 {object} models.SignatureRequest
// @Router /signature-requests/{id} [get]
func (s *Server) GetSignatureRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.svc.Signatures.GetSignatureRequest(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(req)
}

// ListAuditEvents handles GET /api/signature-requests/:id/audit
// @Summary Audit trail of a signature request
// @Tags signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Signature request ID"
// @Success 200 {array} models.AuditEvent
// @Router /signature-requests/{id}/audit [get]
func (s *Server) ListAuditEvents(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	events, err := s.svc.Signatures.ListAuditEvents(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(events)
}

// CancelSignatureRequest handles POST /api/signature-requests/:id/cancel
// @Summary Cancel a pending signature request
// @Tags signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Signature request ID"
// @Success 200 {object} models.SignatureRequest
// @Failure 409 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /signature-requests/{id}/cancel [post]
func (s *Server) CancelSignatureRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.svc.Signatures.CancelSignatureRequest(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(req)
}

// ResendSignatureRequest handles POST /api/signatories/:id/resend
// @Summary Resend the signing link to a pending signatory
// @Tags signatures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Signatory ID"
// @Success 202 {object} object{sent=bool}
// @Failure 409 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /signatories/{id}/resend [post]
func (s *Server) ResendSignatureRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	sent, err := s.svc.Signatures.ResendSignatureRequest(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"sent": sent})
}

// GetSigningView handles GET /api/sign/:token
// @Summary Public signing page data
// @Tags signing
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} service.SigningView
// @Failure 404 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /sign/{token} [get]
func (s *Server) GetSigningView(c *fiber.Ctx) error {
	view, err := s.svc.Signatures.GetSigningView(c.UserContext(), c.Params("token"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(view)
}

// RespondToSignature handles POST /api/sign/:token
// @Summary Sign or reject
// @Tags signing
// @Accept json
// @Produce json
// @Param token path string true "Verification token"
// @Param request body signatureResponseBody true "Response"
// @Success 200 {object} models.Signatory
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /sign/{token} [post]
func (s *Server) RespondToSignature(c *fiber.Ctx) error {
	var body signatureResponseBody
	if err := parseBody(c, &body); err != nil {
		return nil
	}

	sig, err := s.svc.Signatures.GetSignatoryByToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return respond(c, err)
	}

	updated, err := s.svc.Signatures.UpdateSignatureStatus(c.UserContext(), service.UpdateSignatureStatusInput{
		SignatoryID:    sig.ID,
		Status:         body.Status,
		SignatureImage: body.SignatureImage,
		Comment:        body.Comment,
		IPAddress:      c.IP(),
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(updated)
}
