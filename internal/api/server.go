package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apimiddleware "github.com/cpa03/basefly-sub001/internal/api/middleware"
	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/billing"
	"github.com/cpa03/basefly-sub001/internal/config"
	"github.com/cpa03/basefly-sub001/internal/metrics"
	"github.com/cpa03/basefly-sub001/internal/plan"
	"github.com/cpa03/basefly-sub001/internal/policy"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port              int
	ShutdownTimeout   time.Duration
	RequestTimeout    time.Duration
	EnableCORS        bool
	EnableHSTS        bool
	AllowedOrigins    []string
	MaxBodySize       string
	RateLimitRequests int
	RateLimitDuration time.Duration
	CSPHeader         string
	AppURL            string
	Admins            auth.AdminList
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:              8080,
		ShutdownTimeout:   10 * time.Second,
		RequestTimeout:    30 * time.Second,
		EnableCORS:        true,
		AllowedOrigins:    []string{"http://localhost:3000"}, // Next.js dev server
		MaxBodySize:       "1M",
		RateLimitRequests: 100,
		RateLimitDuration: 1 * time.Minute,
		AppURL:            "http://localhost:3000",
	}
}

// NewServerConfig derives the server configuration from process config
func NewServerConfig(cfg *config.Config) *ServerConfig {
	return &ServerConfig{
		Port:              cfg.Port,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		RequestTimeout:    cfg.RequestTimeout,
		EnableCORS:        len(cfg.AllowedOrigins) > 0,
		EnableHSTS:        cfg.IsProduction(),
		AllowedOrigins:    cfg.AllowedOrigins,
		MaxBodySize:       cfg.MaxBodySize,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitDuration: cfg.RateLimitDuration,
		CSPHeader:         cfg.CSPHeader,
		AppURL:            cfg.AppURL,
		Admins:            cfg,
	}
}

// ClusterStore is the cluster persistence used by the procedures
type ClusterStore interface {
	ListByOwner(ctx context.Context, authUserID string) ([]*types.Cluster, error)
	ListAll(ctx context.Context, filters store.ListFilters) ([]*types.Cluster, int, error)
	GetByID(ctx context.Context, id int64, authUserID string) (*types.Cluster, error)
	CountActive(ctx context.Context, authUserID string) (int, error)
	CreateWithinLimit(ctx context.Context, cluster *types.Cluster, limit int) (int, error)
	Update(ctx context.Context, id int64, authUserID string, update store.ClusterUpdate) (*types.Cluster, error)
	SoftDelete(ctx context.Context, id int64, authUserID string) error
}

// CustomerStore is the billing-record persistence used by the procedures
type CustomerStore interface {
	GetByUserID(ctx context.Context, authUserID string) (*types.Customer, error)
	Create(ctx context.Context, authUserID string) (*types.Customer, error)
}

// UserStore is the user persistence used by the procedures
type UserStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	UpdateName(ctx context.Context, id, name string) error
}

// AuditLogger records audit events and reads back an actor's history
type AuditLogger interface {
	Log(ctx context.Context, event *types.AuditEvent) error
	ListByActor(ctx context.Context, actor string, limit int) ([]*types.AuditEvent, error)
}

// Pinger reports database health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend groups the persistence the server depends on
type Backend struct {
	Clusters  ClusterStore
	Customers CustomerStore
	Users     UserStore
	Audit     AuditLogger
	DB        Pinger
}

// NewBackend exposes a Store as a Backend
func NewBackend(s *store.Store) Backend {
	return Backend{
		Clusters:  s.Clusters,
		Customers: s.Customers,
		Users:     s.Users,
		Audit:     s.Audit,
		DB:        s,
	}
}

// Dependencies are the collaborators the server is built from
type Dependencies struct {
	Backend   Backend
	Validator *schema.Validator
	Plans     *plan.Registry
	Policy    *policy.Engine
	Auth      *auth.Auth
	Metrics   *metrics.Collector
	Billing   billing.Checkout // Optional; billing procedures answer 503 when nil
	Logger    *zap.Logger
}

// Server represents the HTTP API server
type Server struct {
	echo    *echo.Echo
	config  *ServerConfig
	deps    Dependencies
	inputs  *inputParser
	logger  *zap.Logger
	returns billing.ReturnURLs
}

// NewServer creates a new API server
func NewServer(config *ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Plans == nil || deps.Policy == nil || deps.Auth == nil {
		return nil, fmt.Errorf("plans, policy and auth are required")
	}

	returns, err := billing.NewReturnURLs(config.AppURL)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Disable Echo's default logger, we'll use our own
	e.Logger.SetOutput(io.Discard)

	s := &Server{
		echo:   e,
		config: config,
		deps:   deps,
		inputs: &inputParser{
			validator: deps.Validator,
			metrics:   deps.Metrics,
			logger:    deps.Logger.Named("input"),
		},
		logger:  deps.Logger.Named("api"),
		returns: returns,
	}

	e.HTTPErrorHandler = s.errorHandler

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures middleware stack
func (s *Server) setupMiddleware() {
	// Recover from panics
	s.echo.Use(middleware.Recover())

	// Correlation id for tracing, then logging that carries it
	s.echo.Use(apimiddleware.RequestID())
	s.echo.Use(apimiddleware.Logger(s.logger.Named("http")))

	s.echo.Use(s.deps.Metrics.Middleware())

	// Security headers, including the assembled CSP
	secure := middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: s.config.CSPHeader,
	}
	if s.config.EnableHSTS {
		secure.HSTSMaxAge = 31536000
	}
	s.echo.Use(middleware.SecureWithConfig(secure))

	// CORS if enabled
	if s.config.EnableCORS {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.config.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
			AllowCredentials: true, // Required for cookies
			ExposeHeaders:    []string{echo.HeaderContentLength, echo.HeaderXRequestID},
		}))
	}

	// Body limit
	s.echo.Use(middleware.BodyLimit(s.config.MaxBodySize))

	// Per-client token bucket
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(s.config.RateLimitRequests) / s.config.RateLimitDuration.Seconds()),
			Burst:     s.config.RateLimitRequests,
			ExpiresIn: s.config.RateLimitDuration,
		}),
		ErrorHandler: func(c echo.Context, err error) error {
			return ErrorForbidden(c, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return ErrorTooManyRequests(c, "Rate limit exceeded")
		},
	}))

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: s.config.RequestTimeout,
	}))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readyCheck)
	s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))

	requireAuth := auth.RequireAuth(s.deps.Auth, s.config.Admins)

	// Procedures are served at /api/trpc/<router>.<procedure>
	trpc := s.echo.Group("/api/trpc")

	trpc.GET("/health.health", s.healthCheck)

	clusterHandler := NewClusterHandler(s.deps.Backend, s.deps.Policy, s.inputs, s.logger)
	trpc.GET("/k8s.getClusters", clusterHandler.List, requireAuth)
	trpc.GET("/k8s.getCluster", clusterHandler.Get, requireAuth)
	trpc.POST("/k8s.createCluster", clusterHandler.Create, requireAuth)
	trpc.POST("/k8s.updateCluster", clusterHandler.Update, requireAuth)
	trpc.POST("/k8s.deleteCluster", clusterHandler.Delete, requireAuth)

	billingHandler := NewBillingHandler(s.deps.Backend, s.deps.Plans, s.deps.Billing, s.returns, s.inputs, s.logger)
	trpc.POST("/stripe.createSession", billingHandler.CreateSession, requireAuth)
	trpc.GET("/auth.mySubscription", billingHandler.MySubscription, requireAuth)

	activityHandler := NewActivityHandler(s.deps.Backend, s.logger)
	trpc.GET("/auth.myActivity", activityHandler.MyActivity, requireAuth)

	customerHandler := NewCustomerHandler(s.deps.Backend, s.inputs, s.logger)
	trpc.POST("/customer.updateUserName", customerHandler.UpdateUserName, requireAuth)
	trpc.POST("/customer.insertCustomer", customerHandler.Insert, requireAuth)
	trpc.GET("/customer.queryCustomer", customerHandler.Query, requireAuth)
	trpc.POST("/customer.queryCustomer", customerHandler.Query, requireAuth)

	adminHandler := NewAdminHandler(s.deps.Backend, s.logger)
	admin := trpc.Group("", requireAuth, auth.RequireAdmin())
	admin.GET("/admin.clusters", adminHandler.Clusters)
}

// healthCheck returns basic health status
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// readyCheck checks if server is ready to handle requests
func (s *Server) readyCheck(c echo.Context) error {
	if s.deps.Backend.DB == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database not configured",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Backend.DB.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting API server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
