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

type UploadController struct {
	Uploads *services.ClothingUploadService
}

func (controller *UploadController) UploadRoutes(g *echo.Group) {
	g.POST("/clothes", controller.UploadClothes)
	g.POST("/general", controller.UploadGeneral)
}

func uploadFailure(c echo.Context, prefix string, err error) error {
	if errors.Is(err, services.ErrFileTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("%s: %v", prefix, err)})
}

func (controller *UploadController) UploadClothes(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	priceNTD, err := parseOptionalInt(c.FormValue("price_ntd"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price_ntd must be an integer"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid file"})
	}
	defer file.Close()

	req := services.UploadRequest{
		File:             file,
		Filename:         fileHeader.Filename,
		Name:             c.FormValue("name"),
		Category:         formValueOr(c.FormValue("category"), services.DefaultUploadCategory),
		Color:            c.FormValue("color"),
		TagsJSON:         formValueOr(c.FormValue("tags"), "[]"),
		AttributesJSON:   formValueOr(c.FormValue("attributes"), "{}"),
		Style:            c.FormValue("style"),
		SizeLabel:        c.FormValue("size_label"),
		PriceNTD:         priceNTD,
		RemoveBackground: ParseFlag(c.FormValue("remove_bg")),
		AIDetect:         ParseFlag(c.FormValue("ai_detect")),
		Owner:            user,
	}
	result, err := controller.Uploads.Upload(c.Request().Context(), req)
	if err != nil {
		fmt.Printf("[Upload: user %d] upload_clothes failed: %v\n", user.ID, err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("failure_type", "upload_clothes")
			scope.SetExtra("filename", fileHeader.Filename)
			sentry.CaptureException(err)
		})
		return uploadFailure(c, "上傳失敗", err)
	}

	item := result.Item
	return c.JSON(http.StatusCreated, models.UploadClothesOut{
		Message: "上傳成功",
		Item: models.UploadedItemOut{
			ID:               item.ID,
			Name:             item.Name,
			Category:         item.Category,
			Color:            item.Color,
			Img:              result.DisplayURL,
			OwnerDisplayName: item.UserAccount.PublicName(),
		},
	})
}

func (controller *UploadController) UploadGeneral(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid file"})
	}
	defer file.Close()

	result, err := controller.Uploads.UploadGeneral(c.Request().Context(), services.GeneralUploadRequest{
		File:        file,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
		DBCategory:  formValueOr(c.FormValue("db_category"), services.DefaultGeneralCategory),
		OwnerID:     UIntPointer(user.ID),
	})
	if err != nil {
		fmt.Printf("[Upload: user %d] upload_general failed: %v\n", user.ID, err)
		sentry.CaptureException(err)
		return uploadFailure(c, "檔案上傳失敗", err)
	}
	return c.JSON(http.StatusCreated, models.GeneralUploadOut{
		Message:         "檔案上傳成功",
		StorageLocation: result.StorageLocation,
		ImageURL:        result.ImageURL,
	})
}
