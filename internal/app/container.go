package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/felop/appointment-booking-backend/internal/api"
	"github.com/felop/appointment-booking-backend/internal/appointment"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	Logger       *zap.Logger
	Clock        appointment.Clock // nil means system clock
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router  *gin.Engine
	Service appointment.Service
}

// NewContainer initializes all modules and returns the container.
// Tests reuse this wiring with their own pool, logger and clock.
func NewContainer(cfg Config) *Container {
	clock := cfg.Clock
	if clock == nil {
		clock = appointment.SystemClock()
	}

	repo := appointment.NewPgxRepository(cfg.DBPool)
	codes := appointment.NewCodeGenerator()
	service := appointment.NewService(repo, codes, clock, cfg.Logger)

	router := api.NewRouter(api.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		Service:      service,
		Clock:        clock,
		Logger:       cfg.Logger,
	})

	return &Container{
		Router:  router,
		Service: service,
	}
}
