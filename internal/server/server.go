package server

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"workflow-dispatcher/internal/config"
	"workflow-dispatcher/internal/dispatch"
	"workflow-dispatcher/internal/secrets"
)

var workflowFileRegex = regexp.MustCompile(`^[\w.\-/]+\.ya?ml$`)

func workflowFileValidator(fl validator.FieldLevel) bool {
	return workflowFileRegex.MatchString(fl.Field().String())
}

// Server is the HTTP surface for workflow dispatch.
type Server struct {
	Router      *gin.Engine
	Server      *http.Server
	Logger      zerolog.Logger
	RateLimiter *rate.Limiter
	Dispatcher  *dispatch.Dispatcher
	Config      *config.Config

	validate *validator.Validate
}

// New builds the server from loaded configuration.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dispatcher := dispatch.New(cfg.APIBaseURL)
	if cfg.SecretBackend == "vault" {
		// Vault ignores the per-event region; the address comes from the
		// environment.
		dispatcher.Secrets = func(ctx context.Context, region string) (secrets.Source, error) {
			return secrets.NewVaultSource()
		}
	}

	validate := validator.New()
	if err := validate.RegisterValidation("workflowfile", workflowFileValidator); err != nil {
		return nil, err
	}

	s := &Server{
		Router:      gin.New(),
		Logger:      log.With().Str("component", "server").Logger(),
		RateLimiter: rate.NewLimiter(rate.Every(time.Second), cfg.RateLimit),
		Dispatcher:  dispatcher,
		Config:      cfg,
		validate:    validate,
	}

	s.Router.Use(gin.Recovery())
	s.Router.Use(s.requestID())
	s.registerRoutes()

	s.Server = &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: s.Router,
	}

	return s, nil
}

func (s *Server) registerRoutes() {
	s.Router.GET("/api/health", s.handleHealth)
	s.Router.POST("/api/dispatch", s.handleDispatch)
	s.Router.GET("/api/workflows", s.handleWorkflows)
}

// requestID tags every request with a correlation ID for logs.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) Start() error {
	s.Logger.Info().Str("addr", s.Server.Addr).Msg("Starting server")
	return s.Server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.Server != nil {
		s.Logger.Info().Msg("Stopping server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Server.Shutdown(ctx)
	}
	return nil
}
