package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"wardrobeapi/services"
)

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": message})
}

// UserMiddleware resolves the bearer token subject to a UserAccount and
// stores it as "currentUser".
func UserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		store, ok := c.Get("__store").(services.WardrobeStore)
		if !ok {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
		}
		user, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return unauthorized(c, "未提供 Authorization Bearer")
		}
		claims, ok := user.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "登入已過期或無效")
		}
		subject, _ := claims["sub"].(string)
		userID, err := strconv.ParseUint(subject, 10, 64)
		if err != nil || userID == 0 {
			log.Println("Error while getting the token information!")
			return unauthorized(c, "登入已過期或無效")
		}

		currentUser, err := store.FindUser(c.Request().Context(), uint(userID))
		if errors.Is(err, services.ErrUserNotFound) {
			return unauthorized(c, "登入已過期或無效")
		}
		if err != nil {
			fmt.Println("Failed to fetch user", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch user"})
		}
		if currentUser.Banned {
			return echo.NewHTTPError(http.StatusLocked)
		}
		c.Set("currentUser", *currentUser)
		return next(c)
	}
}
