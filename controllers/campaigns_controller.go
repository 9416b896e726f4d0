package controllers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/services"
	"github.com/phillip/crowdfunding-go/utils"
)

const requestTimeout = 10 * time.Second

// imageUploader is satisfied by *services.CampaignService.
type imageUploader interface {
	UploadImage(ctx context.Context, file io.Reader, folder string) (string, error)
}

// ---------------- CREATE ----------------
func CreateCampaign(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// --- Bind JSON or form fields ---
		var input struct {
			Title            string  `json:"title" form:"title" binding:"required"`
			Country          string  `json:"country" form:"country"`
			ZipCode          string  `json:"zipCode" form:"zipCode"`
			Description      string  `json:"description" form:"description"`
			Recipient        string  `json:"recipient" form:"recipient" binding:"required,recipient"`
			Goal             float64 `json:"goal" form:"goal" binding:"gt=0"`
			CreatedUsername  string  `json:"createdUsername" form:"createdUsername"`
			CreatedUserEmail string  `json:"createdUserEmail" form:"createdUserEmail" binding:"required"`
			Image            string  `json:"image" form:"image"`
		}
		if err := c.ShouldBind(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrValidation, utils.BindingErrorMessage(err), err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		// --- Optional cover upload ---
		url, uploaded, err := uploadFormFile(ctx, c, svc, "image", "covers")
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if uploaded {
			input.Image = url
		}

		campaign, err := svc.Create(ctx, services.CreateCampaignInput{
			Title:            input.Title,
			Country:          input.Country,
			ZipCode:          input.ZipCode,
			Description:      input.Description,
			Recipient:        input.Recipient,
			Goal:             input.Goal,
			CreatedUsername:  input.CreatedUsername,
			CreatedUserEmail: input.CreatedUserEmail,
			Image:            input.Image,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Campaign submitted for review.",
			"id":      campaign.ID.Hex(),
			"status":  campaign.Status,
		})
	}
}

// ---------------- LIST ----------------
func ListPendingCampaigns(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaigns, err := svc.ListPending(c.Request.Context())
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

func ListCampaigns(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaigns, err := svc.ListApproved(c.Request.Context())
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

func ListCampaignsByRecipient(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query struct {
			RecipientType string `form:"recipientType" binding:"required,recipient"`
		}
		if err := c.ShouldBindQuery(&query); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrInvalidRecipient, utils.BindingErrorMessage(err), err))
			return
		}

		campaigns, err := svc.ListByRecipient(c.Request.Context(), query.RecipientType)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

// ---------------- GET ----------------
func GetCampaign(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaign, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		etag := utils.GenerateETag(campaign.ID, campaign.UpdatedAt)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// ---------------- UPDATE ----------------
func UpdateCampaign(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Title       string  `json:"title" form:"title" binding:"required"`
			Country     string  `json:"country" form:"country"`
			ZipCode     string  `json:"zipCode" form:"zipCode"`
			Description string  `json:"description" form:"description"`
			Recipient   string  `json:"recipient" form:"recipient" binding:"required,recipient"`
			Goal        float64 `json:"goal" form:"goal" binding:"gt=0"`
			Image       string  `json:"image" form:"image"`
		}
		if err := c.ShouldBind(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrValidation, utils.BindingErrorMessage(err), err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		// Check existence before spending an upload on it.
		if _, err := svc.GetByID(ctx, c.Param("id")); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		url, uploaded, err := uploadFormFile(ctx, c, svc, "image", "covers")
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if uploaded {
			input.Image = url
		}

		campaign, err := svc.Update(ctx, c.Param("id"), services.UpdateCampaignInput{
			Title:       input.Title,
			Country:     input.Country,
			ZipCode:     input.ZipCode,
			Description: input.Description,
			Recipient:   input.Recipient,
			Goal:        input.Goal,
			Image:       input.Image,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// ---------------- MODERATE ----------------
func ApproveCampaign(svc *services.CampaignService) gin.HandlerFunc {
	return moderate(svc, services.ActionApprove, "Campaign approved.")
}

func RejectCampaign(svc *services.CampaignService) gin.HandlerFunc {
	return moderate(svc, services.ActionReject, "Campaign rejected.")
}

func moderate(svc *services.CampaignService, action services.ModerationAction, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		campaign, err := svc.Moderate(ctx, c.Param("id"), action)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "status": campaign.Status})
	}
}

// ---------------- DONATE ----------------
func DonateToCampaign(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		// An unknown campaign is reported before a malformed body.
		if _, err := svc.GetByID(ctx, c.Param("id")); err != nil {
			apperrors.HandleError(c, err)
			return
		}

		var input struct {
			Amount    float64 `json:"amount"`
			DonorName string  `json:"donorName"`
			Tip       float64 `json:"tip"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrInvalidDonation, "Invalid donation amount or donor name.", err))
			return
		}

		campaign, donors, err := svc.Donate(ctx, c.Param("id"), services.DonationInput{
			DonorName: input.DonorName,
			Amount:    input.Amount,
			Tip:       input.Tip,
		})
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":     "Donation successful",
			"campaign":    campaign,
			"totalDonors": donors,
		})
	}
}

// ---------------- COMMENTS ----------------
func AddComment(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name    string `json:"name"`
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrMissingFields, "Name and comment are required.", err))
			return
		}

		comments, err := svc.AddComment(c.Request.Context(), c.Param("id"), input.Name, input.Comment)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comment added successfully", "comments": comments})
	}
}

func ListComments(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		comments, err := svc.GetComments(c.Request.Context(), c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comments retrieved successfully", "comments": comments})
	}
}

// ---------------- UPDATES ----------------
func AddCampaignUpdate(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Images []string `json:"images" form:"images"`
			Update string   `json:"update" form:"update"`
		}
		if err := c.ShouldBind(&input); err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrMissingFields, "Update text is required.", err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if _, err := svc.GetByID(ctx, c.Param("id")); err != nil {
			apperrors.HandleError(c, err)
			return
		}

		// --- Handle file uploads ---
		form, err := c.MultipartForm()
		if err != nil && err != http.ErrNotMultipart {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrValidation, "Invalid form data.", err))
			return
		}
		if form != nil {
			for _, fh := range form.File["images"] {
				url, err := uploadFileHeader(ctx, svc, fh, "updates")
				if err != nil {
					apperrors.HandleError(c, err)
					return
				}
				input.Images = append(input.Images, url)
			}
		}

		updates, err := svc.AddUpdate(ctx, c.Param("id"), input.Images, input.Update)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Update added successfully", "updates": updates})
	}
}

func ListCampaignUpdates(svc *services.CampaignService) gin.HandlerFunc {
	return func(c *gin.Context) {
		updates, err := svc.GetUpdates(c.Request.Context(), c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Updates retrieved successfully", "updates": updates})
	}
}

// uploadFormFile uploads the multipart file under key, if the request has one.
func uploadFormFile(ctx context.Context, c *gin.Context, up imageUploader, key, folder string) (string, bool, error) {
	fh, err := c.FormFile(key)
	if err != nil {
		// No file part, or not a multipart request at all.
		return "", false, nil
	}
	url, err := uploadFileHeader(ctx, up, fh, folder)
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func uploadFileHeader(ctx context.Context, up imageUploader, fh *multipart.FileHeader, folder string) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrValidation, "Could not read uploaded file.", err)
	}
	defer file.Close()
	return up.UploadImage(ctx, file, folder)
}
