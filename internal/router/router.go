package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"luckysix/internal/audit"
	"luckysix/internal/auth"
	"luckysix/internal/handler"
	"luckysix/internal/model"
)

// Register wires routes and middleware. Users are routed to the lottery
// endpoints and admins to round management; the role claim decides.
func Register(
	e *echo.Echo,
	jwtService *auth.JWTService,
	sink audit.Sink,
	authHandler *handler.AuthHandler,
	lotteryHandler *handler.LotteryHandler,
	adminHandler *handler.AdminHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.GET("/auth/setup-2fa", authHandler.Setup2FA)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/reset", authHandler.Reset)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require JWT authentication). The token is parsed by our
	// own JWT service so handlers see *auth.Claims directly.
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, tokenString string) (interface{}, error) {
			return jwtService.ValidateToken(tokenString)
		},
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}))

	secured.GET("/me", authHandler.Me)
	secured.POST("/auth/password", authHandler.ChangePassword)

	// Lottery routes (participants)
	lottery := secured.Group("/lottery", requireRole(sink, model.RoleUser))
	lottery.POST("/draws", lotteryHandler.SubmitDraw)
	lottery.GET("/draws/unplayed", lotteryHandler.ViewUnplayed)
	lottery.GET("/draws/played", lotteryHandler.ViewPlayed)
	lottery.DELETE("/draws/played", lotteryHandler.PurgePlayed)

	// Round management routes (administrators)
	admin := secured.Group("/admin", requireRole(sink, model.RoleAdmin))
	admin.POST("/master-draw", adminHandler.GenerateMasterDraw)
	admin.GET("/master-draw", adminHandler.CurrentMasterDraw)
	admin.POST("/run-round", adminHandler.RunRound)
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/register", adminHandler.RegisterAdmin)
}

// requireRole rejects authenticated users whose role is not allowed and
// audits the attempt.
func requireRole(sink audit.Sink, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*auth.Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(c)
				}
			}
			sink.Record(c.Request().Context(), audit.Event{
				Kind:       audit.KindUnauthorised,
				UserID:     claims.UserID,
				Email:      claims.Email,
				SourceAddr: c.RealIP(),
			})
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
