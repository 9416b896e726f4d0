package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/services"
)

// ---------------- REGISTER ----------------
func Register(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrMissingFields, "Name, email, and password are required.", err))
			return
		}

		if _, err := svc.Register(c.Request.Context(), input.Name, input.Email, input.Password); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully."})
	}
}

// ---------------- LOGIN ----------------
func Login(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrMissingFields, "Email and password are required.", err))
			return
		}

		res, err := svc.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
