// Package api exposes the generation client over HTTP with an
// OpenAI-compatible chat-completions surface, including SSE streaming.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ember/internal/inference"
	"github.com/samcharles93/ember/internal/logger"
)

// EngineProvider hands request handlers a chat engine for a model id.
// Implementations own serialization and lifecycle of the engine.
type EngineProvider interface {
	WithEngine(ctx context.Context, model string, fn func(eng inference.Engine, defaults inference.SamplingParams) error) error
	Models() []string
}

// SingleEngineProvider serves one preloaded engine under one model name.
// Requests naming a different model are rejected; an empty request model
// selects the default.
type SingleEngineProvider struct {
	Name     string
	Engine   inference.Engine
	Defaults inference.SamplingParams

	mu sync.Mutex
}

func (p *SingleEngineProvider) WithEngine(ctx context.Context, model string, fn func(inference.Engine, inference.SamplingParams) error) error {
	if model != "" && model != p.Name {
		return newInvalidRequest("unknown model " + model)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.Engine, p.Defaults)
}

func (p *SingleEngineProvider) Models() []string {
	return []string{p.Name}
}

// Server wires the HTTP handlers to an engine provider.
type Server struct {
	provider EngineProvider
	log      logger.Logger
}

// NewServer creates a Server. A nil logger falls back to the default.
func NewServer(provider EngineProvider, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{provider: provider, log: log}
}

// Register mounts all routes on an echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/chat/completions", s.handleChatCompletions)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(c *echo.Context) error {
	models := s.provider.Models()
	data := make([]ModelObject, 0, len(models))
	for _, id := range models {
		data = append(data, ModelObject{ID: id, Object: "model", OwnedBy: "ember"})
	}
	return c.JSON(http.StatusOK, ModelList{Object: "list", Data: data})
}
