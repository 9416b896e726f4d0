package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/phillip/crowdfunding-go/config"
	"github.com/phillip/crowdfunding-go/db"
	"github.com/phillip/crowdfunding-go/middleware"
	"github.com/phillip/crowdfunding-go/repository"
	"github.com/phillip/crowdfunding-go/repository/memory"
	"github.com/phillip/crowdfunding-go/repository/mongodb"
	"github.com/phillip/crowdfunding-go/routes"
	"github.com/phillip/crowdfunding-go/services"
	"github.com/phillip/crowdfunding-go/utils"
)

type stores struct {
	campaigns  repository.CampaignRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	close      func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	gin.SetMode(cfg.HTTP.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("storage init failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logger.Info("storage ready", zap.String("driver", cfg.StoreDriver))

	// Optional integrations stay nil interfaces when unconfigured.
	var images services.ImageStore
	if cfg.Cloudinary.Enabled() {
		cld, err := utils.NewCloudinaryStore(cfg.Cloudinary)
		if err != nil {
			logger.Fatal("cloudinary init failed", zap.Error(err))
		}
		images = cld
	} else {
		logger.Warn("cloudinary not configured, image uploads disabled")
	}

	var mail services.Notifier
	if cfg.Mail.Enabled() {
		mail = utils.NewMailer(cfg.Mail, logger)
	} else {
		logger.Warn("mail not configured, notifications disabled")
	}

	tokens := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := utils.NewPasswordHasher(cfg.Auth.BcryptCost)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(logger),
		middleware.RecoveryMiddleware(),
		cors.New(corsConfig(cfg.HTTP.CORSOrigins)),
	)

	routes.SetupRoutes(r, routes.Deps{
		Campaigns:        services.NewCampaignService(st.campaigns, st.users, images, mail, logger.Named("campaigns")),
		Auth:             services.NewAuthService(st.users, hasher, tokens, logger.Named("auth")),
		Categories:       services.NewCategoryService(st.categories, logger.Named("categories")),
		Tokens:           tokens,
		APIPrefix:        cfg.HTTP.APIPrefix,
		EnforceModerator: cfg.Auth.EnforceModerator,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := st.close(shutdownCtx); err != nil {
		logger.Error("storage close", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return &stores{
			campaigns:  memory.NewCampaignRepository(),
			users:      memory.NewUserRepository(),
			categories: memory.NewCategoryRepository(),
			close:      func(context.Context) error { return nil },
		}, nil
	}

	client, err := db.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	database := client.Database(cfg.Mongo.Database)

	idxCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()
	if err := db.EnsureIndexes(idxCtx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &stores{
		campaigns:  mongodb.NewCampaignRepository(database),
		users:      mongodb.NewUserRepository(database),
		categories: mongodb.NewCategoryRepository(database),
		close:      disconnect(client),
	}, nil
}

func disconnect(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error { return client.Disconnect(ctx) }
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	c.ExposeHeaders = []string{"Content-Length", "ETag", middleware.RequestIDHeader}
	return c
}
