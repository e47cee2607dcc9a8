package server

import (
	"context"

	"proposta/internal/featureflags"
	"proposta/internal/plans"
	"proposta/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPlans handles GET /api/plans
// @Summary List subscription plans
// @Tags subscription
// @Produce json
// @Success 200 {array} plans.Definition
// @Router /plans [get]
func (s *Server) GetPlans(c *fiber.Ctx) error {
	return c.JSON(plans.Catalog())
}

// GetProfile handles GET /api/profile
// @Summary Get the sender profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.svc.Profiles.Get(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/profile
// @Summary Update the sender profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Profile"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var in service.UpdateProfileInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	profile, err := s.svc.Profiles.Update(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(profile)
}

// GetSubscription handles GET /api/subscription
// @Summary Current plan and monthly usage
// @Tags subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Usage
// @Router /subscription [get]
func (s *Server) GetSubscription(c *fiber.Ctx) error {
	usage, err := s.svc.Quota.Usage(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(usage)
}

// ChangePlan handles PUT /api/subscription/plan
// @Summary Switch plan
// @Tags subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{plan=string} true "Plan identifier"
// @Success 200 {object} service.Usage
// @Failure 400 {object} models.ErrorResponse
// @Router /subscription/plan [put]
func (s *Server) ChangePlan(c *fiber.Ctx) error {
	var req struct {
		Plan string `json:"plan"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	usage, err := s.svc.Quota.ChangePlan(c.UserContext(), currentUserID(c), req.Plan)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(usage)
}

// GetFeatureFlags returns configured feature flags and their state for the current user.
// @Summary Feature flags
// @Tags flags
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	subject, err := s.flagSubject(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"raw":       s.svc.FeatureFlags.Raw(),
		"evaluated": s.svc.FeatureFlags.Snapshot(subject),
	})
}

func (s *Server) flagSubject(ctx context.Context, userID uint) (featureflags.Subject, error) {
	usage, err := s.svc.Quota.Usage(ctx, userID)
	if err != nil {
		return featureflags.Subject{}, err
	}
	return featureflags.Subject{UserID: userID, Plan: usage.Plan}, nil
}
