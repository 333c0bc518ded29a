package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"luckysix/internal/service"
)

// LotteryHandler handles user draw endpoints.
type LotteryHandler struct {
	drawService service.DrawService
}

// NewLotteryHandler creates a new lottery handler.
func NewLotteryHandler(drawService service.DrawService) *LotteryHandler {
	return &LotteryHandler{drawService: drawService}
}

// SubmitDrawRequest carries the six picked numbers.
type SubmitDrawRequest struct {
	Numbers []int `json:"numbers" validate:"required,len=6,dive,min=1,max=60"`
}

// SubmitDraw godoc
// @Summary Submit a draw of six numbers
// @Tags lottery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitDrawRequest true "Six numbers between 1 and 60"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Router /lottery/draws [post]
func (h *LotteryHandler) SubmitDraw(c echo.Context) error {
	claims, err := userClaims(c)
	if err != nil {
		return err
	}

	var req SubmitDrawRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	draw, err := h.drawService.SubmitDraw(c.Request().Context(), claims.UserID, req.Numbers)
	if err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "draw submitted",
		"draw_id": draw.ID,
	})
}

// ViewUnplayed godoc
// @Summary Draws waiting for the next round
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.DrawView
// @Router /lottery/draws/unplayed [get]
func (h *LotteryHandler) ViewUnplayed(c echo.Context) error {
	claims, err := userClaims(c)
	if err != nil {
		return err
	}

	draws, err := h.drawService.ViewUnplayed(c.Request().Context(), claims.UserID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, draws)
}

// ViewPlayed godoc
// @Summary Draws already evaluated, with outcome flags
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.DrawView
// @Router /lottery/draws/played [get]
func (h *LotteryHandler) ViewPlayed(c echo.Context) error {
	claims, err := userClaims(c)
	if err != nil {
		return err
	}

	draws, err := h.drawService.ViewPlayed(c.Request().Context(), claims.UserID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, draws)
}

// PurgePlayed godoc
// @Summary Delete all played draws to play again
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /lottery/draws/played [delete]
func (h *LotteryHandler) PurgePlayed(c echo.Context) error {
	claims, err := userClaims(c)
	if err != nil {
		return err
	}

	if err := h.drawService.PurgePlayed(c.Request().Context(), claims.UserID); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "all played draws deleted"})
}
