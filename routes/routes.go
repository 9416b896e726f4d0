package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/crowdfunding-go/controllers"
	"github.com/phillip/crowdfunding-go/middleware"
	"github.com/phillip/crowdfunding-go/services"
	"github.com/phillip/crowdfunding-go/utils"
)

// Deps carries everything the route table needs.
type Deps struct {
	Campaigns  *services.CampaignService
	Auth       *services.AuthService
	Categories *services.CategoryService
	Tokens     *utils.TokenIssuer

	APIPrefix string
	// EnforceModerator puts approve/reject behind an administrator token.
	EnforceModerator bool
}

func SetupRoutes(r *gin.Engine, d Deps) {
	utils.RegisterValidators()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group(d.APIPrefix)

	// public
	api.POST("/register", controllers.Register(d.Auth))
	api.POST("/login", controllers.Login(d.Auth))

	// moderation
	moderated := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if !d.EnforceModerator {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.AuthMiddleware(d.Tokens), middleware.AdminMiddleware(), h}
	}

	// Campaigns
	campaigns := api.Group("/campaigns")
	{
		campaigns.POST("/create", controllers.CreateCampaign(d.Campaigns))
		campaigns.GET("/pending", controllers.ListPendingCampaigns(d.Campaigns))
		campaigns.GET("/all", controllers.ListCampaigns(d.Campaigns))
		campaigns.GET("/filtered", controllers.ListCampaignsByRecipient(d.Campaigns))
		campaigns.PUT("/update/:id", controllers.UpdateCampaign(d.Campaigns))
		campaigns.PUT("/approve/:id", moderated(controllers.ApproveCampaign(d.Campaigns))...)
		campaigns.PUT("/reject/:id", moderated(controllers.RejectCampaign(d.Campaigns))...)
		campaigns.POST("/donate/:id", controllers.DonateToCampaign(d.Campaigns))
		campaigns.POST("/comment/:id", controllers.AddComment(d.Campaigns))
		campaigns.GET("/comments/:id", controllers.ListComments(d.Campaigns))
		campaigns.POST("/updates/:id", controllers.AddCampaignUpdate(d.Campaigns))
		campaigns.GET("/updates/:id", controllers.ListCampaignUpdates(d.Campaigns))
		campaigns.GET("/:id", controllers.GetCampaign(d.Campaigns))
	}

	categories := api.Group("/categories")
	{
		categories.POST("/create", controllers.CreateCategory(d.Categories, d.Campaigns))
		categories.GET("/all", controllers.ListCategories(d.Categories))
	}
}
