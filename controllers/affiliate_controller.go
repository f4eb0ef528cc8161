package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/services"
)

type AffiliateController struct {
	affiliates *services.AffiliateService
}

func NewAffiliateController(affiliates *services.AffiliateService) *AffiliateController {
	return &AffiliateController{affiliates: affiliates}
}

// RegisterAgent handles affiliate self-registration.
func (ac *AffiliateController) RegisterAgent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.AgentRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	agent, err := ac.affiliates.RegisterAgent(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "An agent with this email already exists",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to register agent",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Agent registered and pending approval",
		Data:    agent,
	})
}

// ApproveAgent transitions a pending agent to approved. Admin only.
func (ac *AffiliateController) ApproveAgent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid agent ID format",
		})
	}

	agent, err := ac.affiliates.ApproveAgent(ctx, agentID)
	if err != nil {
		return affiliateError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Agent approved",
		Data:    agent,
	})
}

// GetDashboard returns an agent's totals, clicks and commissions.
func (ac *AffiliateController) GetDashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid agent ID format",
		})
	}

	dashboard, err := ac.affiliates.GetDashboard(ctx, agentID)
	if err != nil {
		return affiliateError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Dashboard loaded",
		Data:    dashboard,
	})
}

// CreateLink mints a tracked affiliate URL for a product.
func (ac *AffiliateController) CreateLink(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	agentID, err := primitive.ObjectIDFromHex(req.AgentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid agent ID format",
		})
	}

	click, err := ac.affiliates.CreateAffiliateLink(ctx, req.ProductID, agentID, req.ProductURL)
	if err != nil {
		if errors.Is(err, services.ErrAgentSuspended) {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Agent is suspended",
			})
		}
		return affiliateError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Affiliate link created",
		Data:    click,
	})
}

// TrackClick records a visit through an affiliate link and redirects to the
// original product URL.
func (ac *AffiliateController) TrackClick(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	click, err := ac.affiliates.TrackClick(ctx, c.Param("clickId"), c.Request().UserAgent(), c.RealIP())
	if err != nil {
		if errors.Is(err, services.ErrClickNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Unknown tracking link",
			})
		}
		return affiliateError(c, err)
	}

	return c.Redirect(http.StatusFound, click.OriginalURL)
}

// RecordConversion attributes a sale to a click.
func (ac *AffiliateController) RecordConversion(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.ConversionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	commission, err := ac.affiliates.RecordConversion(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyConverted) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Conversion already recorded for this click",
			})
		}
		if errors.Is(err, services.ErrClickNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Unknown click ID",
			})
		}
		return affiliateError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Conversion recorded",
		Data:    commission,
	})
}

func affiliateError(c echo.Context, err error) error {
	if errors.Is(err, services.ErrAgentNotFound) {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Agent not found",
		})
	}
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Affiliate operation failed",
		Data:    err.Error(),
	})
}
