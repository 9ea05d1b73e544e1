package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/felop/appointment-booking-backend/internal/appointment"
	aptHttp "github.com/felop/appointment-booking-backend/internal/appointment/http"
)

// Config holds everything the router needs to register all routes.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Service      appointment.Service
	Clock        appointment.Clock
	Logger       *zap.Logger
}

// NewRouter initializes the HTTP router engine: recovery, request logging,
// CORS and the appointment routes under /v1.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestLogger(cfg.Logger), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := aptHttp.NewHandler(cfg.Service, cfg.Clock)

	v1 := r.Group("/v1")
	{
		aptHttp.RegisterRoutes(v1, handler)
	}

	return r
}
