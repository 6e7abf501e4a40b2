package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"taskvault/internal/config"
	"taskvault/internal/handler"
	"taskvault/internal/ratelimit"
	"taskvault/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	limiter ratelimit.Limiter,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))
	e.Use(SecurityHeaders())
	e.Use(RateLimit(limiter))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Secured routes (require a valid access token)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			userID, ok := authService.VerifyAccessToken(auth)
			if !ok {
				return nil, echojwt.ErrJWTInvalid
			}
			return userID, nil
		},
	}))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)
	secured.PUT("/auth/me", authHandler.UpdateMe)
	secured.POST("/auth/change-password", authHandler.ChangePassword)
	secured.GET("/auth/me/audit", authHandler.AuditHistory)

	// Task routes
	secured.POST("/tasks", taskHandler.Create)
	secured.GET("/tasks", taskHandler.List)
	secured.GET("/tasks/stats", taskHandler.Stats)
	secured.GET("/tasks/:id", taskHandler.Get)
	secured.PUT("/tasks/:id", taskHandler.Update)
	secured.PATCH("/tasks/:id/complete", taskHandler.Complete)
	secured.DELETE("/tasks/:id", taskHandler.Delete)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
