package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
)

type AuthConfig struct {
	JWTSecret string
	DevUserID string
}

type RateLimitConfig struct {
	RatePerSecond float64
	Burst         int
	TTL           time.Duration
}

type Dependencies struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Dev enables POST /v1/seed.
	Dev            bool
	Auth           AuthConfig
	AllowedOrigins []string
	RateLimit      RateLimitConfig

	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error

	GateService      *service.GateService
	VehicleService   *service.VehicleService
	ScheduleService  *service.ScheduleService
	AccessLogService *service.AccessLogService
	AccessService    *service.AccessService
	SummaryService   *service.SummaryService
	DashboardService *service.DashboardService
	Seeder           *service.Seeder

	// Stream serves the live access log websocket; nil disables the route.
	Stream http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	metrics    *metrics.Metrics
	started    time.Time

	auth           AuthConfig
	allowedOrigins []string
	limiter        *clientLimiter
	ready          func(ctx context.Context) error

	gates      *service.GateService
	vehicles   *service.VehicleService
	schedules  *service.ScheduleService
	accessLogs *service.AccessLogService
	access     *service.AccessService
	summaries  *service.SummaryService
	dashboard  *service.DashboardService
	seeder     *service.Seeder
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:         logger,
		metrics:        d.Metrics,
		started:        time.Now(),
		auth:           d.Auth,
		allowedOrigins: d.AllowedOrigins,
		limiter:        newClientLimiter(d.RateLimit.RatePerSecond, d.RateLimit.Burst, d.RateLimit.TTL),
		ready:          d.Ready,
		gates:          d.GateService,
		vehicles:       d.VehicleService,
		schedules:      d.ScheduleService,
		accessLogs:     d.AccessLogService,
		access:         d.AccessService,
		summaries:      d.SummaryService,
		dashboard:      d.DashboardService,
		seeder:         d.Seeder,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Timeout(10*time.Second)).Post("/access_request", s.handleAccessRequest)

		r.Group(func(r chi.Router) {
			r.Use(s.identify)

			if d.Stream != nil {
				r.Method(http.MethodGet, "/access_logs/stream", d.Stream)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))

				r.Get("/gates", s.handleListGates)
				r.Post("/gates", s.handleCreateGate)
				r.Get("/gates/{id}", s.handleGetGate)
				r.Patch("/gates/{id}", s.handleUpdateGate)
				r.Post("/gates/{id}/toggle", s.handleToggleGate)

				r.Get("/vehicles", s.handleListVehicles)
				r.Post("/vehicles", s.handleCreateVehicle)
				r.Get("/vehicles/{id}", s.handleGetVehicle)
				r.Patch("/vehicles/{id}", s.handleUpdateVehicle)

				r.Get("/schedules", s.handleListSchedules)
				r.Post("/schedules", s.handleCreateSchedule)
				r.Get("/schedules/{id}", s.handleGetSchedule)
				r.Patch("/schedules/{id}", s.handleUpdateSchedule)

				r.Get("/access_logs", s.handleListAccessLogs)
				r.Post("/access_logs", s.handleRecordAccessLog)
				r.Get("/access_logs/trends", s.handleTrends)

				r.Get("/dashboard", s.handleDashboard)

				r.Group(func(r chi.Router) {
					r.Use(s.rateLimit)
					r.Post("/summaries", s.handleSummarize)
					r.Post("/summaries/flow", s.handleSummaryFlow)
				})

				if d.Dev && d.Seeder != nil {
					r.Post("/seed", s.handleSeed)
				}
			})
		})
	})

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}

	// WriteTimeout stays zero when a stream is mounted: it would cut every
	// websocket off after the deadline.
	writeTimeout := d.WriteTimeout
	if d.Stream != nil {
		writeTimeout = 0
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           otelhttp.NewHandler(r, "portcullis.http"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       time.Minute,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

func (s *Server) health(status string) healthResponse {
	return healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, s.health("unavailable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, s.health("ok"))
}
