// Package server contains the HTTP and WebSocket handlers of the yatube site.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	_ "yatube/docs" // swagger docs
	"yatube/internal/bootstrap"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/events"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/notifications"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	rateLimiter    *middleware.RateLimiter
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo        repository.UserRepository
	postRepo        repository.PostRepository
	groupRepo       repository.GroupRepository
	commentRepo     repository.CommentRepository
	followRepo      repository.FollowRepository
	followEventRepo repository.FollowEventRepository

	notifier  *notifications.Notifier
	hub       *notifications.Hub
	publisher events.Publisher
	relay     *events.Relay

	feedService    *service.FeedService
	followService  *service.FollowService
	postService    *service.PostService
	commentService *service.CommentService
	userService    *service.UserService
	imageService   *service.ImageService
}

// NewServer connects to the database and Redis, ensures the built-in groups
// and builds a Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedBuiltIns: cfg.SeedBuiltInGroups})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: the index cache then lives in process memory and
// realtime events go straight to the local hub.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	s := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("yatube"),
		rateLimiter:     middleware.NewRateLimiter(redisClient, cfg.Env),
		userRepo:        repository.NewUserRepository(db),
		postRepo:        repository.NewPostRepository(db),
		groupRepo:       repository.NewGroupRepository(db),
		commentRepo:     repository.NewCommentRepository(db),
		followRepo:      repository.NewFollowRepository(db),
		followEventRepo: repository.NewFollowEventRepository(db),
		notifier:        notifications.NewNotifier(redisClient),
		hub:             notifications.NewHub(),
	}

	s.imageService = service.NewImageService(cfg)
	s.userService = service.NewUserService(s.userRepo)
	s.followService = service.NewFollowService(s.userRepo, s.followRepo, s.notifier)
	s.postService = service.NewPostService(s.postRepo, s.groupRepo, s.followRepo, s.imageService, s.notifier)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.feedService = service.NewFeedService(
		s.postRepo, s.groupRepo, s.userRepo, s.followRepo,
		cache.NewStore(redisClient),
		service.FeedOptions{PageSize: cfg.PageSize, IndexTTL: cfg.IndexCacheTTL()},
	)

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		s.publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaFollowTopic,
		})
		s.relay = events.NewRelay(s.followEventRepo, s.publisher, events.RelayConfig{
			PollInterval: time.Duration(cfg.OutboxPollIntervalSeconds) * time.Second,
		})
	}

	return s, nil
}

// App builds the fiber application with middleware and routes. It is built
// once; Start serves it.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	maxUploadMB := s.config.ImageMaxUploadSizeMB
	if maxUploadMB <= 0 {
		maxUploadMB = service.DefaultImageMaxUploadSizeMB
	}

	app := fiber.New(fiber.Config{
		AppName: "yatube",
		// Room for the image plus the rest of the form.
		BodyLimit: (maxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Copies request ID and trace ID into the context used for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "same-site",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000,http://127.0.0.1:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Static("/media", s.imageService.MediaDir(), fiber.Static{
		ByteRange: true,
		MaxAge:    3600,
	})

	accounts := app.Group("/auth")
	accounts.Get("/login/", s.LoginForm)
	accounts.Post("/login/", s.rateLimiter.Handler("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	accounts.Post("/signup/", s.rateLimiter.Handler("signup", 3, 10*time.Minute, middleware.FailOpen), s.Signup)
	accounts.Post("/logout/", s.Logout)

	app.Get("/", s.Index)
	app.Get("/groups/", s.GroupsList)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/posts/:id/", s.PostDetail)

	// Per-route auth keeps unknown paths answering 404 instead of redirecting.
	auth := s.AuthRequired()

	app.Get("/follow/", auth, s.FollowIndex)

	createLimit := s.rateLimiter.Handler("create_post", 10, 5*time.Minute, middleware.FailOpen)
	app.Get("/create/", auth, s.CreatePostForm)
	app.Post("/create/", auth, createLimit, s.CreatePost)
	app.Get("/posts/:id/edit/", auth, s.EditPostForm)
	app.Post("/posts/:id/edit/", auth, s.EditPost)

	commentLimit := s.rateLimiter.Handler("create_comment", 20, time.Minute, middleware.FailOpen)
	app.Get("/posts/:id/comment/", auth, s.CommentRedirect)
	app.Post("/posts/:id/comment/", auth, commentLimit, s.AddComment)

	// State changes are POST only; the token cookie is SameSite=Lax.
	followLimit := s.rateLimiter.Handler("follow", 60, time.Minute, middleware.FailOpen)
	app.Post("/profile/:username/follow/", auth, followLimit, s.ProfileFollow)
	app.Post("/profile/:username/unfollow/", auth, followLimit, s.ProfileUnfollow)

	app.Get("/ws/feed", auth, s.FeedWebsocketHandler())

	app.Post("/admin/cache/index/invalidate", auth, s.AdminRequired(), s.InvalidateIndexCache)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: an
// unconfigured client reports "unavailable" without failing the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
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

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.userService.GetUserByID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// AuthRequired admits requests carrying a valid, unrevoked token. Browsers
// are sent to the login page with the original path in next; websocket
// upgrades get a 401 instead.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/ws/")

		claims, err := s.authenticate(c.UserContext(), middleware.TokenFromRequest(c, isWSPath))
		if err != nil {
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Authorization required"))
			}
			return c.Redirect(middleware.LoginRedirectURL(c.OriginalURL()), fiber.StatusFound)
		}

		c.Locals("userID", claims.UserID)
		c.Locals("tokenClaims", claims)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// authenticate verifies tokenString and checks it against the revocation list.
func (s *Server) authenticate(ctx context.Context, tokenString string) (middleware.TokenClaims, error) {
	if tokenString == "" {
		return middleware.TokenClaims{}, middleware.ErrInvalidToken
	}
	claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
	if err != nil {
		return middleware.TokenClaims{}, err
	}
	if claims.ID != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, cache.BlacklistKey(claims.ID)).Result()
		if err == nil && revoked > 0 {
			return middleware.TokenClaims{}, middleware.ErrInvalidToken
		}
	}
	return claims, nil
}

// optionalUserID returns the viewer on public pages. Anonymous viewers get 0.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	claims, err := s.authenticate(c.UserContext(), middleware.TokenFromRequest(c, false))
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// Start serves HTTP on the configured port and starts background workers:
// the Redis subscriber feeding the websocket hub and the follow-event relay.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Error("failed to start hub wiring", slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
	}
	if s.relay != nil {
		go s.relay.Run(ctx)
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			middleware.Logger.Error("error closing event publisher", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
