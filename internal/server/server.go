// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "sociable/docs" // swagger docs
	"sociable/internal/bootstrap"
	"sociable/internal/cache"
	"sociable/internal/config"
	"sociable/internal/middleware"
	"sociable/internal/models"
	"sociable/internal/notifications"
	"sociable/internal/repository"
	"sociable/internal/service"
	"sociable/internal/tasks"

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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	notifier *notifications.Notifier
	hub      *notifications.Hub
	queue    *tasks.Queue
	worker   *tasks.Worker

	userService    *service.UserService
	profileService *service.ProfileService
	hashtagService *service.HashTagService
	postService    *service.PostService
	commentService *service.CommentService
	likeService    *service.LikeService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass an in-memory database and a miniredis client; a nil client
// disables every Redis-backed feature.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	middleware.SetRateLimitEnvironment(cfg.Env)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	followRepo := repository.NewFollowRepository(db)
	hashtagRepo := repository.NewHashTagRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("sociable-api"),
		queue:          tasks.NewQueue(redisClient),
	}

	// Only a live Redis gets a notifier; a typed nil would defeat the
	// services' no-op fallback.
	var events service.EventPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		s.worker = tasks.NewWorker(redisClient, postRepo, profileRepo)
		events = s.notifier
	}

	store := cache.NewStore(redisClient)
	pictures := service.NewPictureStore(cfg)

	s.userService = service.NewUserService(userRepo, profileRepo, store, pictures, s.isStaffByUserID)
	s.profileService = service.NewProfileService(profileRepo, followRepo, store, pictures, events, s.isStaffByUserID)
	s.hashtagService = service.NewHashTagService(hashtagRepo, store)
	s.postService = service.NewPostService(postRepo, profileRepo, s.isStaffByUserID)
	s.commentService = service.NewCommentService(commentRepo, postRepo, profileRepo, events, s.isStaffByUserID)
	s.likeService = service.NewLikeService(likeRepo, postRepo, commentRepo, events)

	return s, nil
}

func (s *Server) isStaffByUserID(ctx context.Context, userID uint) (bool, error) {
	return s.userService.IsStaff(ctx, userID)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Sociable API",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
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

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/uploads", s.config.UploadDir)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public auth routes
	api.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	api.Post("/token", middleware.RateLimit(s.redis, 10, 5*time.Minute, "token"), s.ObtainToken)
	api.Post("/token/refresh", s.RefreshToken)
	api.Post("/token/verify", s.VerifyToken)

	protected := api.Group("", s.AuthRequired())
	protected.Post("/logout", s.Logout)

	users := protected.Group("/users")
	users.Get("/me", s.GetMe)
	users.Patch("/me", s.UpdateMe)
	users.Delete("/me", s.DeleteMe)
	users.Delete("/:id", s.StaffRequired(), s.DeleteUser)

	profiles := protected.Group("/profiles")
	profiles.Get("/", s.ListProfiles)
	profiles.Post("/", s.CreateProfile)
	// Specific /:id/:action routes before the generic /:id ones
	profiles.Post("/:id/follow_unfollow", s.FollowUnfollow)
	profiles.Get("/:id/profile_followers", s.ProfileFollowers)
	profiles.Get("/:id/profile_followings", s.ProfileFollowings)
	profiles.Post("/:id/upload-picture", s.UploadPicture)
	profiles.Delete("/:id/upload-picture", s.DeletePicture)
	profiles.Get("/:id", s.GetProfile)
	profiles.Put("/:id", s.UpdateProfile)
	profiles.Patch("/:id", s.UpdateProfile)
	profiles.Delete("/:id", s.DeleteProfile)

	hashtags := protected.Group("/hashtags")
	hashtags.Get("/", s.ListHashTags)
	hashtags.Post("/", s.CreateHashTag)
	hashtags.Get("/:id", s.GetHashTag)
	hashtags.Put("/:id", s.UpdateHashTag)
	hashtags.Patch("/:id", s.UpdateHashTag)
	hashtags.Delete("/:id", s.DeleteHashTag)

	posts := protected.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", s.CreatePost)
	posts.Post("/schedule-placeholder", s.SchedulePlaceholderPost)
	posts.Post("/:id/post_like_unlike", s.PostLikeUnlike)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Patch("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Get("/", s.ListComments)
	comments.Post("/", s.CreateComment)
	comments.Post("/:id/comment_like_unlike", s.CommentLikeUnlike)
	comments.Get("/:id", s.GetComment)
	comments.Put("/:id", s.UpdateComment)
	comments.Patch("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	protected.Get("/likes-list-post", s.ListPostLikes)
	protected.Get("/likes-list-comment", s.ListCommentLikes)

	protected.Get("/ws", s.WebsocketUpgrade, s.WebsocketHandler())
}

// LivenessCheck handles liveness checks
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

// ReadinessCheck handles readiness checks
// @Summary Readiness check
// @Description Pings the database and Redis
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 503 {object} object{status=string}
// @Router /health/ready [get]
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

// Start starts the background wiring and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring", "error", err)
		}
	}

	if s.config.TaskWorkerEnabled {
		if s.worker == nil {
			middleware.Logger.Warn("TASK_WORKER_ENABLED is set but redis is unavailable; worker not started")
		} else {
			go func() {
				if err := s.worker.Run(ctx); err != nil {
					middleware.Logger.Error("task worker exited", "error", err)
				}
			}()
		}
	}

	middleware.Logger.Info(fmt.Sprintf("Server starting on port %s...", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the subscriber and the worker.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down notification hub", "error", err)
		}
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
