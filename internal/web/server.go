package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	service   *usecase.LiquidationService
	zones     *usecase.ZoneTable
	tradeRepo domain.TradeRepository
	watch     *usecase.ZoneWatchWorker
	logger    *zap.Logger
}

// NewServer exposes the engine state read-only. watch may be nil when no
// watchlist is configured.
func NewServer(
	port int,
	service *usecase.LiquidationService,
	zones *usecase.ZoneTable,
	tradeRepo domain.TradeRepository,
	watch *usecase.ZoneWatchWorker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		service:   service,
		zones:     zones,
		tradeRepo: tradeRepo,
		watch:     watch,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Books
	s.router.HandleFunc("GET /api/books", s.handleListBooks)
	s.router.HandleFunc("GET /api/books/{strategy}", s.handleGetBook)

	// Zones and watchlist
	s.router.HandleFunc("GET /api/zones", s.handleZones)
	s.router.HandleFunc("GET /api/watch", s.handleWatch)

	// Journal
	s.router.HandleFunc("GET /api/history", s.handleHistory)
	s.router.HandleFunc("GET /api/signals", s.handleSignals)
	s.router.HandleFunc("GET /api/evaluations", s.handleEvaluations)

	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
