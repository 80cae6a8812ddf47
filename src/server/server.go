package server

import (
	"context"
	"fmt"
	app "imghost/src/app"
	cfg "imghost/src/configuration"
	db "imghost/src/repository"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewRouter registers all routes on a fresh gin engine. Split out of
// RunServer so tests can drive the full routing table with fake stores.
func NewRouter(handler *AppHandler) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	pprof.Register(router)

	// Register Routes
	router.GET("/health", handler.GetHealth)
	router.GET("/", handler.Root)
	router.GET("/auth", handler.GetAuth)
	router.GET("/gallery", handler.Gallery)
	router.GET("/links", handler.Links)
	router.GET("/image/*key", handler.GetImage)

	router.POST("/api/upload", handler.PostUpload)
	router.GET("/api/images", handler.GetImages)
	router.DELETE("/api/images/delete", handler.DeleteImage)
	router.GET("/api/categories", handler.GetCategories)
	router.POST("/api/categories", handler.PostCategory)

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	return router
}

func RunServer(config *cfg.Properties) {
	if level, err := zerolog.ParseLevel(config.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	clientS3, err := app.NewMinioS3Client(
		config.S3.Host,
		config.S3.AccessKey,
		config.S3.SecretKey,
		config.S3.Bucket,
		config.S3.UseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to minio")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.S3.ReadTimeout)
	defer cancel()
	if !clientS3.EnsureBucket(ctx) {
		log.Error().Str("bucket", config.S3.Bucket).Msg("bucket is not available")
	}
	if config.S3.Public {
		if err := clientS3.MakePublic(ctx); err != nil {
			log.Error().Err(err).Str("bucket", config.S3.Bucket).Msg("can not make bucket public")
		}
	}

	dataStore, err := db.NewStore(config)
	if err != nil {
		log.Fatal().Err(err).Msg("can not create catalog store")
	}

	handler := NewHandler(dataStore, clientS3)
	router := NewRouter(handler)

	// Start the server
	if err := router.Run(fmt.Sprintf(":%s", config.Server.Port)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
