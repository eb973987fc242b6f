package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ember/internal/inference"
	"github.com/samcharles93/ember/internal/tokenizer"
)

func (s *Server) handleChatCompletions(c *echo.Context) error {
	var req ChatCompletionRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeBadRequest(c, "malformed JSON body: "+err.Error())
	}
	if len(req.Messages) == 0 {
		return writeBadRequest(c, "messages must not be empty")
	}

	// System messages become the preamble rather than conversation turns;
	// the prompt format only knows human and assistant roles.
	msgs := make([]tokenizer.Message, 0, len(req.Messages))
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case tokenizer.RoleUser, tokenizer.RoleAssistant:
			msgs = append(msgs, tokenizer.Message{Role: m.Role, Content: m.Content})
		case "system":
			system = append(system, m.Content)
		default:
			return writeBadRequest(c, "unsupported role "+m.Role)
		}
	}
	if len(msgs) == 0 {
		return writeBadRequest(c, "at least one user or assistant message is required")
	}
	preamble := ""
	if len(system) > 0 {
		preamble = strings.Join(system, "\n") + "\n"
	}

	opts := inference.RequestOptions{
		Messages:          msgs,
		Preamble:          preamble,
		Temperature:       req.Temperature,
		TopK:              req.TopK,
		TopP:              req.TopP,
		RepetitionPenalty: req.RepetitionPenalty,
		LengthPenalty:     req.LengthPenalty,
		RegulationStart:   req.RegulationStart,
		MaxNewTokens:      req.MaxTokens,
		Seed:              req.Seed,
	}
	if req.MaxTimeSeconds != nil {
		d := time.Duration(*req.MaxTimeSeconds) * time.Second
		opts.MaxTime = &d
	}

	ctx := c.Request().Context()
	err := s.provider.WithEngine(ctx, req.Model, func(eng inference.Engine, defaults inference.SamplingParams) error {
		genReq := inference.ResolveRequest(opts, defaults)

		if req.Stream {
			return s.streamCompletion(c, eng, &genReq, req.Model)
		}

		res, err := eng.Chat(ctx, &genReq, nil)
		if err != nil {
			return err
		}
		reason := string(res.Reason)
		return c.JSON(http.StatusOK, ChatCompletionResponse{
			ID:      newCompletionID(),
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   req.Model,
			Choices: []ChatChoice{{
				Message:      &ChatMessage{Role: tokenizer.RoleAssistant, Content: res.Text},
				FinishReason: &reason,
			}},
			Usage: ChatUsage{
				PromptTokens:     res.PromptTokens,
				CompletionTokens: res.CompletionTokens,
				TotalTokens:      res.PromptTokens + res.CompletionTokens,
			},
		})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, inference.ErrInvalidConfiguration) {
		return writeBadRequest(c, err.Error())
	}
	s.log.Error("chat completion failed", "error", err)
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
}

// streamCompletion emits OpenAI-style SSE chunks. The engine streams the
// full assistant text per step; the writer trims the previously sent
// prefix into deltas.
func (s *Server) streamCompletion(c *echo.Context, eng inference.Engine, genReq *inference.Request, model string) error {
	w, err := newChunkWriter(c, model)
	if err != nil {
		return err
	}

	prev := ""
	res, err := eng.Chat(c.Request().Context(), genReq, func(text string) {
		if len(text) <= len(prev) {
			return
		}
		delta := text[len(prev):]
		prev = text
		_ = w.emit(delta)
	})
	if err != nil {
		// Headers are out; report in-stream and swallow the error so the
		// handler does not write a second response.
		w.fail(err)
		return nil
	}
	return w.finish(string(res.Reason))
}
