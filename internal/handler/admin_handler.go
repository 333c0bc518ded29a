package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"luckysix/internal/model"
	"luckysix/internal/service"
)

// AdminHandler handles round management endpoints.
type AdminHandler struct {
	lotteryService service.LotteryService
	authService    service.AuthService
	userService    service.UserService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(lotteryService service.LotteryService, authService service.AuthService, userService service.UserService) *AdminHandler {
	return &AdminHandler{
		lotteryService: lotteryService,
		authService:    authService,
		userService:    userService,
	}
}

// RunRoundResponse reports the outcome of a lottery round.
type RunRoundResponse struct {
	Winners  []service.WinnerRecord `json:"winners"`
	Failures []service.DrawFailure  `json:"failures,omitempty"`
}

// GenerateMasterDraw godoc
// @Summary Generate a new winning draw for the next round
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 201 {object} service.DrawView
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/master-draw [post]
func (h *AdminHandler) GenerateMasterDraw(c echo.Context) error {
	claims, err := userClaims(c)
	if err != nil {
		return err
	}

	view, err := h.lotteryService.GenerateMasterDraw(c.Request().Context(), claims.UserID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, view)
}

// CurrentMasterDraw godoc
// @Summary View the current unplayed winning draw
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DrawView
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/master-draw [get]
func (h *AdminHandler) CurrentMasterDraw(c echo.Context) error {
	view, err := h.lotteryService.CurrentMasterDraw(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// RunRound godoc
// @Summary Run the lottery round against all outstanding draws
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RunRoundResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/run-round [post]
func (h *AdminHandler) RunRound(c echo.Context) error {
	claims, err := userClaims(c)
	if err != nil {
		return err
	}

	winners, failures, err := h.lotteryService.RunRound(c.Request().Context(), claims.UserID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, RunRoundResponse{Winners: winners, Failures: failures})
}

// ListUsers godoc
// @Summary List all registered participants
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.Profile
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// RegisterAdmin godoc
// @Summary Register a new administrator
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/register [post]
func (h *AdminHandler) RegisterAdmin(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	admin, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:       req.Email,
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Postcode:    req.Postcode,
		Password:    req.Password,
		Role:        model.RoleAdmin,
	})
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "new admin registered successfully",
		"user":    admin,
	})
}
