// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"murmur/internal/config"
	"murmur/internal/mailer"
	"murmur/internal/middleware"
	"murmur/internal/repository"
	"murmur/internal/service"
	"murmur/internal/spam"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// prom is process-wide: collectors can only be registered once per
// namespace, however many apps are built.
var prom = fiberprometheus.New("murmur")

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	signer         *spam.Signer
	commentRepo    repository.CommentRepository
	threadRepo     repository.ThreadRepository
	commentService *service.CommentService
	threadService  *service.ThreadService
}

// NewServer creates a new server instance with already-initialized DB and
// Redis dependencies. redisClient may be nil; the rate limiter then fails
// open.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	signer, err := spam.NewSigner(cfg.AppSecret)
	if err != nil {
		return nil, fmt.Errorf("timestamp signer init failed: %w", err)
	}

	commentRepo := repository.NewCommentRepository(db)
	threadRepo := repository.NewThreadRepository(db)

	checker := spam.NewChecker(signer, spam.NewRedisRateCounter(redisClient), spam.Config{
		MinTimeSeconds:     cfg.SpamMinTimeSeconds,
		MaxLinks:           cfg.MaxLinks,
		BlockedWords:       spam.ParseBlockedWords(cfg.BlockedWords),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, nil)

	mail := mailer.New(mailer.Options{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUser,
		Password:   cfg.SMTPPass,
		From:       cfg.SMTPFrom,
		AdminEmail: cfg.AdminEmail,
		BaseURL:    cfg.BaseURL,
	}, nil)

	server := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		signer:      signer,
		commentRepo: commentRepo,
		threadRepo:  threadRepo,
	}
	server.commentService = service.NewCommentService(
		commentRepo,
		threadRepo,
		checker,
		mail,
		service.CommentServiceOptions{
			EditWindow:  time.Duration(cfg.EditWindowMinutes) * time.Minute,
			AutoApprove: cfg.AutoApprove,
		},
		nil,
	)
	server.threadService = service.NewThreadService(threadRepo, commentRepo)

	middleware.InitMiddleware(cfg)

	return server, nil
}

// SetupApp builds the Fiber application and registers all routes.
func (s *Server) SetupApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "murmur",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Tracing())
	app.Use(middleware.RequestLogging())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/timestamp", s.IssueTimestamp)
	api.Get("/threads/:uri/comments", s.ListComments)
	api.Post("/threads/:uri/comments", s.SubmitComment)
	api.Post("/comments/counts", s.CommentCounts)
	api.Patch("/comments/:id", s.UpdateComment)
	api.Delete("/comments/:id", s.DeleteComment)
	api.Post("/comments/:id/upvote", s.UpvoteComment)

	api.Post("/admin/login", s.AdminLogin)
	admin := api.Group("/admin", middleware.AdminRequired)
	admin.Get("/comments", s.AdminListComments)
	admin.Post("/comments/:id/approve", s.AdminApproveComment)
	admin.Post("/comments/:id/spam", s.AdminMarkSpam)
	admin.Delete("/comments/:id", s.AdminDeleteComment)

	// Email moderation links are GETs: they must work from a mail client.
	app.Get("/moderate/comments/:id/approve", s.ModerateApprove)
	app.Get("/moderate/comments/:id/delete", s.ModerateDelete)

	s.app = app
	return app
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	if s.app == nil {
		s.SetupApp()
	}
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
