package controllers

import (
	"net/http"

	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"wardrobeapi/config"
	"wardrobeapi/models"
	"wardrobeapi/services"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("style", models.ValidateStyle)
	return &CustomValidator{validator: v}
}

func jwtMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "未提供 Authorization Bearer 或登入已過期"})
		},
	})
}

func SetupServer(
	cfg *config.Config,
	store services.WardrobeStore,
	uploads *services.ClothingUploadService,
	fitting *services.FittingService,
) *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__store", store)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	uploadController := UploadController{Uploads: uploads}
	uploadGroup := api.Group("/upload", jwtMiddleware(cfg.JWTSecret), UserMiddleware)
	uploadController.UploadRoutes(uploadGroup)

	wardrobeController := WardrobeController{Uploads: uploads}
	wardrobeGroup := api.Group("/wardrobe", jwtMiddleware(cfg.JWTSecret), UserMiddleware)
	wardrobeController.WardrobeRoutes(wardrobeGroup)

	profileController := ProfileController{Resolver: uploads.Resolver}
	profileGroup := api.Group("/profile", jwtMiddleware(cfg.JWTSecret), UserMiddleware)
	profileController.ProfileRoutes(profileGroup)

	// Fitting is open: it never reads or writes user data.
	fittingController := FittingController{Fitting: fitting, MaxPhotoBytes: cfg.MaxUploadBytes}
	fittingGroup := api.Group("/fitting")
	fittingController.FittingRoutes(fittingGroup)

	return e
}
