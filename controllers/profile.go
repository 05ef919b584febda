package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

type ProfileController struct {
	Resolver *services.ImageURLResolver
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", func(c echo.Context) error {
		user, ok := c.Get("currentUser").(models.UserAccount)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		// Avatars uploaded through /upload/general are stored as bucket locations.
		avatar, err := controller.Resolver.Resolve(c.Request().Context(), user.AvatarURL)
		if err != nil {
			fmt.Printf("[Profile: user %d] avatar sign failed: %v\n", user.ID, err)
			avatar = ""
		}
		return c.JSON(http.StatusOK, models.ProfileOut{
			ID:          user.ID,
			Name:        user.Name,
			DisplayName: user.PublicName(),
			Email:       user.Email,
			AvatarURL:   avatar,
		})
	})
}
