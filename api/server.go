package api

import (
	"context"
	"fmt"
	"net/http"

	"example.com/fleetops/api/middleware"
	"example.com/fleetops/api/routes"
	"example.com/fleetops/config"
	"example.com/fleetops/internal/blitz"
	"example.com/fleetops/internal/cache"
	"example.com/fleetops/internal/database"
	"example.com/fleetops/internal/dispatch"
	"example.com/fleetops/internal/lark"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/repository"
	"example.com/fleetops/internal/service"
	"example.com/fleetops/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	config     *config.Config
	httpServer *http.Server
	log        *logrus.Logger
}

// NewServer creates a new HTTP server and wires the full service stack
func NewServer(
	cfg *config.Config,
	log *logrus.Logger,
	nrApp *newrelic.Application,
	db database.DB,
	redisClient cache.RedisClient,
	sbClient messaging.ServiceBusClient,
) *Server {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()

	repo := repository.NewRepository(db)

	waClient := whatsapp.NewClient(cfg.WhatsApp)
	dispatcher := dispatch.NewDispatcher(repo, waClient, cfg.Dispatch, log)

	tokens := lark.NewTokenProvider(cfg.Lark, redisClient, log)
	records := lark.NewRecordSource(cfg.Lark, tokens)
	roster := lark.NewRosterSource(cfg.Lark, records)

	blitzClient := blitz.NewClient(cfg.Blitz)

	svc := service.NewService(repo, sbClient, blitzClient, dispatcher, roster, cfg.Projects, log)

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))

	if nrApp != nil {
		router.Use(middleware.NewRelicMiddleware(nrApp))
	}

	routes.SetupRoutes(router, svc, log)

	return &Server{
		router: router,
		config: cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Infof("Starting server on port %d", s.config.Server.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
