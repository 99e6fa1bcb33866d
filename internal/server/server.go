// Package server contains the HTTP handlers for the forum API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "forum/docs" // swagger docs
	"forum/internal/auth"
	"forum/internal/bootstrap"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/featureflags"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/repository"
	"forum/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	userRepo       repository.UserRepository
	roleRepo       repository.RoleRepository
	topicRepo      repository.TopicRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	notifier       *notifications.Notifier
	featureFlags   *featureflags.Manager
	authService    *service.AuthService
	userService    *service.UserService
	topicService   *service.TopicService
	postService    *service.PostService
	commentService *service.CommentService
}

// NewServer bootstraps DB and Redis from cfg and returns a ready Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("config and database are required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("forum-api"),
		userRepo:       repository.NewUserRepository(db),
		roleRepo:       repository.NewRoleRepository(db),
		topicRepo:      repository.NewTopicRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	s.authService = service.NewAuthService(s.userRepo, s.roleRepo, auth.NewTokenManager(cfg.JWTSecret))
	s.userService = service.NewUserService(s.userRepo, s.roleRepo)
	s.topicService = service.NewTopicService(s.topicRepo)
	s.postService = service.NewPostService(s.postRepo, s.topicRepo, s.userRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.userRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing first so the trace ID is in locals before the context middleware copies it.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

var mutatorRoles = []string{models.RoleUser, models.RoleAdmin, models.RoleModerator}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/", s.HealthCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Forum API Metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/logout", s.AuthRequired(), s.Logout)

	// Posts: reads are public; mutations need a forum role plus the ownership policy.
	posts := api.Group("/post")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id/posts", s.GetPostsByTopic)
	posts.Get("/:id", s.GetPost)
	posts.Post("/", s.AuthRequired(), s.RolesRequired(mutatorRoles...),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id", s.AuthRequired(), s.RolesRequired(mutatorRoles...), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.RolesRequired(mutatorRoles...), s.DeletePost)

	comments := api.Group("/comment")
	comments.Get("/", s.GetComments)
	comments.Get("/:id/comments", s.GetCommentsByPost)
	comments.Get("/:id", s.GetComment)
	comments.Post("/", s.AuthRequired(), s.RolesRequired(mutatorRoles...),
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	comments.Put("/:id", s.AuthRequired(), s.RolesRequired(mutatorRoles...), s.UpdateComment)
	comments.Delete("/:id", s.AuthRequired(), s.RolesRequired(mutatorRoles...), s.DeleteComment)

	topics := api.Group("/topic")
	topics.Get("/", s.GetTopics)
	topics.Get("/:id", s.GetTopic)
	topics.Post("/", s.AuthRequired(), s.CreateTopic)
	topics.Put("/:id", s.AuthRequired(), s.UpdateTopic)
	topics.Delete("/:id", s.AuthRequired(), s.DeleteTopic)

	protected := api.Group("", s.AuthRequired())
	protected.Get("/roles", s.GetRoles)

	users := protected.Group("/user")
	users.Get("/", s.GetUsers)
	// Specific routes before the generic /:id.
	users.Get("/current", s.GetCurrentUser)
	users.Post("/:id/role", s.RolesRequired(models.RoleAdmin), s.AddUserRole)
	users.Delete("/:id/role", s.RolesRequired(models.RoleAdmin), s.RemoveUserRole)
	users.Get("/:id", s.GetUser)
	if s.featureFlags.On(featureflags.LegacyUserRead) {
		users.Post("/:id", s.GetUser)
	}
	users.Put("/:id", s.UpdateUser)

	admin := protected.Group("/admin", s.RolesRequired(models.RoleAdmin))
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// NewApp builds the Fiber app with middleware and routes but does not listen.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Forum API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
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

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if !s.config.IsProduction() {
		if err := s.notifier.StartSubscriber(s.shutdownCtx, func(ev notifications.Event) {
			middleware.Logger.Info("forum event", "type", ev.Type, "resource_id", ev.ResourceID, "actor_id", ev.ActorID)
		}); err != nil {
			log.Printf("failed to start event subscriber: %v", err)
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	database.Close(s.db)

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
