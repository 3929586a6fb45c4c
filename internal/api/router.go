package api

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal/auth"
)

type RouterOptions struct {
	// MaxUploadBytes caps the health import request body. Zero means no cap.
	MaxUploadBytes int64
}

func NewRouter(app App, provider auth.Provider, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware(app.Logger()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/auth/signup", Signup(app))
	r.POST("/api/auth/login", Login(app))

	// Protected routes
	protected := r.Group("/api")
	protected.Use(auth.AuthMiddleware(provider))
	protected.POST("/sleep", PostSleep(app))
	protected.GET("/sleep", GetSleep(app))
	protected.POST("/sleep/import-health-data", BodyLimitMiddleware(opts.MaxUploadBytes), ImportHealthData(app))
	protected.POST("/productivity", PostProductivity(app))
	protected.GET("/productivity", GetProductivity(app))
	protected.PUT("/productivity", PutProductivity(app))
	protected.DELETE("/productivity", DeleteProductivity(app))

	return r
}
