package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hudai/ingest-backend/internal/handlers"
)

type RouterConfig struct {
	UploadHandler *handlers.UploadHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(cors.Default())

	r.GET("/healthz", handlers.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/upload-video", cfg.UploadHandler.UploadVideo)
		api.POST("/upload-images-zip", cfg.UploadHandler.UploadImagesZip)
	}

	return r
}
