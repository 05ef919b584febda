package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

const defaultListLimit = 100

type WardrobeController struct {
	Uploads *services.ClothingUploadService
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.GET("/items", controller.ListItems)
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var query models.WardrobeListQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid query"})
	}
	if err := c.Validate(query); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if query.Limit == 0 {
		query.Limit = defaultListLimit
	}

	resolved, err := controller.Uploads.ListItems(c.Request().Context(), user, services.WardrobeFilter{
		Category: query.Category,
		Style:    query.Style,
		Tag:      query.Tag,
		Limit:    query.Limit,
	})
	if err != nil {
		fmt.Printf("[Wardrobe: user %d] list failed: %v\n", user.ID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe items"})
	}
	response := models.WardrobeListOut{Items: make([]models.WardrobeItemOut, 0, len(resolved))}
	for _, item := range resolved {
		response.Items = append(response.Items, toWardrobeItemOut(item))
	}
	return c.JSON(http.StatusOK, response)
}
