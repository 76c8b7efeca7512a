// Package server exposes a model registry over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ncecere/llm-sdk/openai"
	"github.com/ncecere/llm-sdk/provider"
	"github.com/ncecere/llm-sdk/providerutil"
	"github.com/ncecere/llm-sdk/registry"
)

const defaultRequestTimeout = 2 * time.Minute

type Options struct {
	Registry registry.Registry
	// Gatherer backs GET /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Version  string
	// RequestTimeout bounds each generate call. Defaults to two minutes.
	RequestTimeout time.Duration
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Model   string   `json:"model"   validate:"required"`
	Prompts []string `json:"prompts" validate:"required,min=1"`
	Stop    []string `json:"stop"    validate:"omitempty,max=4"`
}

// GenerateResponse is returned by POST /v1/generate.
type GenerateResponse struct {
	Model string `json:"model"`
	*provider.LLMResult
}

type ModelInfo struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type server struct {
	reg      registry.Registry
	logger   *slog.Logger
	validate *validator.Validate
	timeout  time.Duration
}

// New builds the Fiber application serving opts.Registry.
func New(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	s := &server{
		reg:      opts.Registry,
		logger:   opts.Logger,
		validate: validator.New(),
		timeout:  opts.RequestTimeout,
	}

	app := fiber.New(fiber.Config{
		AppName:               "llm-sdk",
		ServerHeader:          "llm-sdk/" + opts.Version,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(s.logRequests)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1")
	v1.Get("/models", s.listModels)
	v1.Post("/generate", s.generate)

	return app
}

func (s *server) listModels(c *fiber.Ctx) error {
	names := s.reg.Names()
	models := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		m, err := s.reg.LLM(name)
		if err != nil {
			continue
		}
		info := ModelInfo{Name: name, Type: m.Type()}
		if id, ok := m.(interface{ IdentifyingParams() map[string]any }); ok {
			info.Params = id.IdentifyingParams()
		}
		models = append(models, info)
	}
	return c.JSON(fiber.Map{"models": models})
}

func (s *server) generate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	model, err := s.reg.LLM(req.Model)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	res, err := model.Generate(ctx, req.Prompts, req.Stop)
	if err != nil {
		return err
	}
	return c.JSON(GenerateResponse{Model: req.Model, LLMResult: res})
}

func (s *server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	level := slog.LevelInfo
	if status >= fiber.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.UserContext(), level, "http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
		"request_id", requestID(c),
	)
	return err
}

// statusFor maps generate and lookup errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		fiberErr    *fiber.Error
		noSuchModel *registry.NoSuchModelError
		argErr      *openai.InvalidArgumentError
		apiErr      *providerutil.APIError
	)
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &noSuchModel):
		return fiber.StatusNotFound
	case errors.As(err, &argErr),
		errors.Is(err, openai.ErrStopConflict),
		errors.Is(err, openai.ErrMaxTokensMultiplePrompts):
		return fiber.StatusBadRequest
	case errors.As(err, &apiErr):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(errorResponse{
		Error:     err.Error(),
		RequestID: requestID(c),
	})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
