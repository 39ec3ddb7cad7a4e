package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"staybook/internal/config"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// ReadinessCheck reports whether dependencies are usable.
type ReadinessCheck func(ctx context.Context) error

// HTTPServer serves the REST API.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	auth     *HTTPAuth
	quota    *UserQuota
	requests *requestValidator
	ready    ReadinessCheck
	router   *httprouter.Router
	handler  http.Handler
	server   *http.Server
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, quota *UserQuota, ready ReadinessCheck, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		auth:     NewHTTPAuth(cfg),
		quota:    quota,
		requests: newRequestValidator(),
		ready:    ready,
		router:   httprouter.New(),
		logger:   logger,
	}

	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	s.routes()

	s.handler = recoverer(logger, requestLogging(logger, s.router))
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() {
	s.router.GET("/healthz", s.open("/healthz", s.handleHealth))
	s.router.GET("/readyz", s.open("/readyz", s.handleReady))

	s.route(http.MethodPost, "/api/v1/users", PermWrite, s.createUser)
	s.route(http.MethodGet, "/api/v1/users/me", PermRead, s.currentUser)

	s.route(http.MethodGet, "/api/v1/spots", PermRead, s.searchSpots)
	s.route(http.MethodPost, "/api/v1/spots", PermWrite, s.createSpot)
	// Also serves /api/v1/spots/current: httprouter cannot hold both a static
	// and a wildcard segment at the same position.
	s.route(http.MethodGet, "/api/v1/spots/:spotId", PermRead, s.getSpot)
	s.route(http.MethodPut, "/api/v1/spots/:spotId", PermWrite, s.updateSpot)
	s.route(http.MethodDelete, "/api/v1/spots/:spotId", PermWrite, s.deleteSpot)
	s.route(http.MethodPost, "/api/v1/spots/:spotId/images", PermWrite, s.addSpotImage)
	s.route(http.MethodDelete, "/api/v1/spot-images/:imageId", PermWrite, s.deleteSpotImage)

	s.route(http.MethodGet, "/api/v1/spots/:spotId/reviews", PermRead, s.listSpotReviews)
	s.route(http.MethodPost, "/api/v1/spots/:spotId/reviews", PermWrite, s.createReview)
	s.route(http.MethodGet, "/api/v1/reviews/current", PermRead, s.listMyReviews)
	s.route(http.MethodPut, "/api/v1/reviews/:reviewId", PermWrite, s.updateReview)
	s.route(http.MethodDelete, "/api/v1/reviews/:reviewId", PermWrite, s.deleteReview)
	s.route(http.MethodPost, "/api/v1/reviews/:reviewId/images", PermWrite, s.addReviewImage)
	s.route(http.MethodDelete, "/api/v1/review-images/:imageId", PermWrite, s.deleteReviewImage)

	s.route(http.MethodGet, "/api/v1/spots/:spotId/bookings", PermRead, s.listSpotBookings)
	s.route(http.MethodPost, "/api/v1/spots/:spotId/bookings", PermWrite, s.createBooking)
	s.route(http.MethodPost, "/api/v1/spots/:spotId/availability", PermRead, s.checkAvailability)
	s.route(http.MethodGet, "/api/v1/spots/:spotId/bookings/export", PermExport, s.exportBookings)
	s.route(http.MethodGet, "/api/v1/bookings/current", PermRead, s.listMyBookings)
	s.route(http.MethodPut, "/api/v1/bookings/:bookingId", PermWrite, s.updateBooking)
	s.route(http.MethodDelete, "/api/v1/bookings/:bookingId", PermWrite, s.deleteBooking)
}

// route registers an API endpoint behind the key gate.
func (s *HTTPServer) route(method, path, perm string, h httprouter.Handle) {
	s.router.Handle(method, path, s.auth.Require(perm, s.labeled(path, h)))
}

// open registers an endpoint without the key gate.
func (s *HTTPServer) open(path string, h httprouter.Handle) httprouter.Handle {
	return s.labeled(path, h)
}

func (s *HTTPServer) labeled(path string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		withRouteLabel(r.Context(), path)
		h(w, r, ps)
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// callerID reads the trusted caller identity header.
func (s *HTTPServer) callerID(r *http.Request) (int64, error) {
	header := s.cfg.Auth.HeaderUserID
	if header == "" {
		header = "x-user-id"
	}
	raw := strings.TrimSpace(r.Header.Get(header))
	if raw == "" {
		return 0, errAuthRequired
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errAuthRequired
	}
	return id, nil
}

// writer resolves the caller and applies the per-caller write quota.
func (s *HTTPServer) writer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := s.callerID(r)
	if err != nil {
		writeError(w, r, err, "")
		return 0, false
	}
	if !s.quota.Allow(r.Context(), userID) {
		writeMessage(w, http.StatusTooManyRequests, "Too many requests, slow down")
		return 0, false
	}
	return userID, true
}

// reader resolves the caller for authenticated reads.
func (s *HTTPServer) reader(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := s.callerID(r)
	if err != nil {
		writeError(w, r, err, "")
		return 0, false
	}
	return userID, true
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
