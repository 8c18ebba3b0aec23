package config

import (
	detectionHandler "SkinDetect/internal/api/detection/handler"
	detectionRepository "SkinDetect/internal/api/detection/repository"
	detectionService "SkinDetect/internal/api/detection/service"
	"SkinDetect/internal/middleware"
	"SkinDetect/pkg/annotate"
	"SkinDetect/pkg/detector"
	"SkinDetect/pkg/redis"
	"SkinDetect/pkg/utils"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	env         *Env
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	detector    detector.Detector
	annotator   annotate.IAnnotator
	recorder    detectionService.Recorder
	redisServer redis.IRedis
	handlers    []handler
	closers     []io.Closer
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if server.env == nil {
		server.env = &Env{AppPort: "7000", RequestTimeout: 30 * time.Second}
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New(server.env.MaxImageSize)
	}
	if server.annotator == nil {
		server.annotator = annotate.New()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, middleware.Config{
			RateLimit: server.env.RateLimit,
			RateBurst: server.env.RateBurst,
		})
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase shares an already opened pool. A nil pool means history and
// stats are not served from SQL.
func WithDatabase(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		if db == nil {
			return nil
		}
		s.db = db
		s.closers = append(s.closers, db)
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		if redisServer == nil {
			return nil
		}
		s.redisServer = redisServer
		s.closers = append(s.closers, redisServer)
		return nil
	}
}

func WithDetector(d detector.Detector) ServerOption {
	return func(s *Server) error {
		s.detector = d
		return nil
	}
}

func WithAnnotator(a annotate.IAnnotator) ServerOption {
	return func(s *Server) error {
		s.annotator = a
		return nil
	}
}

func WithRecorder(recorder detectionService.Recorder) ServerOption {
	return func(s *Server) error {
		s.recorder = recorder
		return nil
	}
}

// WithCloser registers a resource released on Shutdown, such as a model
// session.
func WithCloser(c io.Closer) ServerOption {
	return func(s *Server) error {
		if c != nil {
			s.closers = append(s.closers, c)
		}
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		cfg := middleware.Config{}
		if s.env != nil {
			cfg.RateLimit = s.env.RateLimit
			cfg.RateBurst = s.env.RateBurst
		}
		s.middleware = middleware.New(s.log, cfg)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		var maxSize int64
		if s.env != nil {
			maxSize = s.env.MaxImageSize
		}
		s.utils = utils.New(maxSize)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	var repo detectionRepository.Repository
	if s.db != nil {
		repo = detectionRepository.New(s.db, s.log)
	}

	detectionServices := detectionService.NewDetectionService(s.log, s.detector, s.annotator, s.recorder, repo, s.redisServer, s.utils)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.env.RequestTimeout)

	s.handlers = append(s.handlers, detectionHandlers)
}

func (s *Server) Run() error {
	s.mount()
	return s.engine.Listen(fmt.Sprintf(":%s", s.env.AppPort))
}

func (s *Server) mount() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()
	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

// Shutdown stops the listener and releases every registered resource.
func (s *Server) Shutdown(timeout time.Duration) error {
	errs := []error{s.engine.ShutdownWithTimeout(timeout)}

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
