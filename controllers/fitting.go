package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

type FittingController struct {
	Fitting       *services.FittingService
	MaxPhotoBytes int64
}

func (controller *FittingController) FittingRoutes(g *echo.Group) {
	g.POST("/generate", controller.Generate)
	g.POST("/generate-with-photo", controller.GenerateWithPhoto)
}

func fittingFailure(c echo.Context, err error) error {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("failure_type", "fitting")
		sentry.CaptureException(err)
	})
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("生成失敗: %v", err)})
}

func (controller *FittingController) Generate(c echo.Context) error {
	var req models.FittingRequestIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if len(req.SelectedItems) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": services.ErrNoItemsSelected.Error()})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	fittingReq := services.FittingRequest{
		UserInput: req.UserInput,
		Items:     toSelections(req.SelectedItems),
	}
	if req.UserPhoto != nil {
		fittingReq.UserPhoto = *req.UserPhoto
	}
	if req.BodyMetrics != nil {
		fittingReq.BodyMetrics = &services.BodyMetrics{HeightCM: req.BodyMetrics.HeightCM, WeightKG: req.BodyMetrics.WeightKG}
	}

	result, err := controller.Fitting.Generate(c.Request().Context(), fittingReq)
	if errors.Is(err, services.ErrNoItemsSelected) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		fmt.Println("[Fitting] generate failed:", err)
		return fittingFailure(c, err)
	}
	return c.JSON(http.StatusOK, toFittingOut(result))
}

func (controller *FittingController) GenerateWithPhoto(c echo.Context) error {
	fileHeader, err := c.FormFile("user_photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_photo is required"})
	}
	selected := parseSelectionsField(c.FormValue("clothing_items"))
	if len(selected) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": services.ErrNoItemsSelected.Error()})
	}
	photo, err := readFormFile(fileHeader, controller.MaxPhotoBytes)
	if errors.Is(err, services.ErrFileTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid user_photo"})
	}

	result, err := controller.Fitting.GenerateWithPhoto(c.Request().Context(), photo, toSelections(selected),
		formValueOr(c.FormValue("user_input"), services.DefaultFittingIntent))
	if errors.Is(err, services.ErrInvalidPhoto) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		fmt.Println("[Fitting] generate with photo failed:", err)
		return fittingFailure(c, err)
	}
	return c.JSON(http.StatusOK, toFittingOut(result))
}
