// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shiplog/internal/auth"
	"shiplog/internal/cache"
	"shiplog/internal/config"
	"shiplog/internal/database"
	"shiplog/internal/featureflags"
	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/notifications"
	"shiplog/internal/repository"
	"shiplog/internal/service"
	"shiplog/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	projectRepo    repository.ProjectRepository
	store          storage.Store
	notifier       *notifications.Notifier
	feedHub        *notifications.FeedHub
	hubs           []wireableHub
	featureFlags   *featureflags.Manager
	authHub        *auth.Hub
	sessions       *auth.SessionProvider
	github         *auth.GitHubProvider
	postService    *service.PostService
	feedService    *service.FeedService
	userService    *service.UserService
	projectService *service.ProjectService
	hashtagService *service.HashtagService
	imageService   *service.ImageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables caching, rate limiting, revocation and the live feed fan-out.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage setup failed: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("session setup failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		promMiddleware: middleware.InitMetrics("shiplog-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		projectRepo:    repository.NewProjectRepository(db),
		store:          store,
		notifier:       notifications.NewNotifier(redisClient),
		feedHub:        notifications.NewFeedHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		authHub:        auth.NewHub(),
	}
	server.hubs = []wireableHub{server.feedHub}
	server.sessions = auth.NewSessionProvider(tokens, auth.NewRevoker(redisClient), server.authHub)
	if cfg.GitHubEnabled() {
		server.github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	server.imageService = service.NewImageService(store, cfg)
	server.hashtagService = service.NewHashtagService(server.projectRepo, cache.New(redisClient), server.featureFlags, cfg.HashtagPageSize)
	server.postService = service.NewPostService(server.postRepo, server.projectRepo, server.userRepo,
		server.imageService, server.sessions, server.notifier)
	server.feedService = service.NewFeedService(server.postRepo)
	server.userService = service.NewUserService(server.userRepo, server.postRepo)
	server.projectService = service.NewProjectService(server.projectRepo, server.postRepo, server.hashtagService)

	if err := server.watchSessions(ctx); err != nil {
		cancel()
		return nil, err
	}

	return server, nil
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Store(cfg.S3Region, cfg.S3Bucket, cfg.StoragePublicBaseURL)
	default:
		return storage.NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	}
}

// watchSessions closes live-feed sockets of users who sign out.
func (s *Server) watchSessions(ctx context.Context) error {
	_, err := s.sessions.OnSessionChange(ctx, func(ev auth.Event) {
		if ev.Type != auth.SignedOut {
			return
		}
		if n := s.feedHub.DisconnectUser(ev.Session.UserID); n > 0 {
			middleware.Logger.Info("closed feed sockets after sign-out",
				"user_id", ev.Session.UserID, "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to session changes: %w", err)
	}
	return nil
}

// NewApp builds the Fiber app with the full middleware stack and routes.
func (s *Server) NewApp() *fiber.App {
	uploadLimit := s.config.ImageMaxUploadBytes()
	if uploadLimit <= 0 {
		uploadLimit = service.DefaultImageMaxUploadSizeMB << 20
	}

	app := fiber.New(fiber.Config{
		AppName:   "Shiplog API",
		BodyLimit: int(uploadLimit) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Uploaded images are fetched cross-origin by the web client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static("/uploads", local.Dir(), fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")
	api.Get("/flags", s.OptionalAuth(), s.GetFeatureFlags)

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Get("/github/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "github_login"), s.GitHubLogin)
	authRoutes.Get("/github/callback", middleware.RateLimitWithPolicy(
		s.redis, 10, 5*time.Minute, middleware.FailClosed, "github_callback"), s.GitHubCallback)
	authRoutes.Post("/dev-login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "dev_login"), s.DevLogin)
	authRoutes.Get("/session", s.AuthRequired(), s.GetSession)
	authRoutes.Post("/refresh", s.AuthRequired(), s.Refresh)
	authRoutes.Post("/logout", s.AuthRequired(), s.Logout)

	// Feed
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id", s.GetPost)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 30, time.Minute, "create_post"), s.CreatePost)

	// Profiles and streaks
	users := api.Group("/users")
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Get("/:id", s.OptionalAuth(), s.GetUserProfile)
	api.Get("/streaks", s.GetTopStreaks)

	// Projects: specific routes before /:id
	projects := api.Group("/projects")
	projects.Get("/", s.OptionalAuth(), s.GetProjects)
	projects.Get("/mine", s.AuthRequired(), s.GetMyProjects)
	projects.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_project"), s.CreateProject)
	projects.Post("/:id/archive", s.AuthRequired(), s.ArchiveProject)
	projects.Get("/:id", s.OptionalAuth(), s.GetProject)

	// Hashtag autocomplete
	hashtags := api.Group("/hashtags", s.AuthRequired())
	hashtags.Post("/suggest", s.SuggestHashtags)
	hashtags.Post("/select", s.SelectHashtag)

	// Uploads
	api.Post("/uploads", s.AuthRequired(), middleware.RateLimit(
		s.redis, 20, time.Minute, "upload_image"), s.UploadImage)

	// WebSocket ticket issuance and the live feed
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/feed", s.FeedWebSocketHandler())
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
// @Summary Readiness check
// @Description Ping the database and Redis
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 503 {object} object{status=string}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()

	for _, h := range s.hubs {
		go func() {
			if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", h.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop all wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", h.Name(), "error", err)
		}
	}

	if err := s.authHub.Close(); err != nil {
		middleware.Logger.Error("error closing session hub", "error", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
