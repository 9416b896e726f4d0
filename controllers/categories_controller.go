package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/services"
)

// ---------------- CREATE ----------------
// CreateCategory accepts JSON with an imageUrl, or multipart with an image
// file that is uploaded first.
func CreateCategory(svc *services.CategoryService, up imageUploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			CategoryName     string `json:"categoryName" form:"categoryName"`
			ImageURL         string `json:"imageUrl" form:"imageUrl"`
			CreatedUsername  string `json:"createdUsername" form:"createdUsername"`
			CreatedUserEmail string `json:"createdUserEmail" form:"createdUserEmail"`
		}
		if err := c.ShouldBind(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrMissingFields, "All fields are required.", err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		url, uploaded, err := uploadFormFile(ctx, c, up, "image", "categories")
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if uploaded {
			input.ImageURL = url
		}

		category, err := svc.Create(ctx, services.CreateCategoryInput{
			CategoryName:     input.CategoryName,
			ImageURL:         input.ImageURL,
			CreatedUsername:  input.CreatedUsername,
			CreatedUserEmail: input.CreatedUserEmail,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Category created successfully!", "category": category})
	}
}

// ---------------- LIST ----------------
func ListCategories(svc *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := svc.List(c.Request.Context())
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}
