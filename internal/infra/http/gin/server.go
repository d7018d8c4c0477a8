package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/slogsolutions/WebBuyer/internal/infra/config"
	"github.com/slogsolutions/WebBuyer/internal/infra/obs"
)

type SpaceHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Summary(c *gin.Context)
}

type OwnerSpaceHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Activate(c *gin.Context)
	Suspend(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type BookingHTTP interface {
	Attempt(c *gin.Context)
}

type VerificationHTTP interface {
	PhoneCallback(c *gin.Context)
	IdentityCallback(c *gin.Context)
}

type SummaryWSHTTP interface {
	Stream(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Space          SpaceHTTP
	OwnerSpace     OwnerSpaceHTTP
	Booking        BookingHTTP
	Verification   VerificationHTTP
	SummaryWS      SummaryWSHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.PUT("/auth/phone", h.Auth.UpdatePhone)
	}
	if h.Space != nil {
		api.GET("/spaces", h.Space.Catalog)
		api.GET("/spaces/:id", h.Space.Get)
		api.GET("/spaces/:id/summary", h.Space.Summary)
	}
	if h.OwnerSpace != nil {
		api.GET("/owner/spaces", h.OwnerSpace.List)
		api.POST("/spaces", h.OwnerSpace.Create)
		api.PUT("/spaces/:id", h.OwnerSpace.Update)
		api.POST("/spaces/:id/activate", h.OwnerSpace.Activate)
		api.POST("/spaces/:id/suspend", h.OwnerSpace.Suspend)
		api.POST("/spaces/:id/photos", h.OwnerSpace.UploadPhoto)
	}
	if h.Booking != nil {
		api.POST("/spaces/:id/book", h.Booking.Attempt)
	}
	if h.Verification != nil {
		api.POST("/verification/phone/callback", h.Verification.PhoneCallback)
		api.POST("/verification/identity/callback", h.Verification.IdentityCallback)
	}
	if h.SummaryWS != nil {
		router.GET("/ws/summary", h.SummaryWS.Stream)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
