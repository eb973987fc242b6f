package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

func newCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType},
	})
}

// chunkWriter sends chat.completion.chunk SSE events: an initial role
// chunk, one delta chunk per emit, then a finish_reason chunk and the
// [DONE] marker.
type chunkWriter struct {
	w       io.Writer
	flush   func()
	id      string
	model   string
	created int64
}

func newChunkWriter(c *echo.Context, model string) (*chunkWriter, error) {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(http.Flusher)
	if !ok {
		return nil, newInvalidRequest("streaming unsupported")
	}

	w := &chunkWriter{
		w:       res,
		flush:   flusher.Flush,
		id:      newCompletionID(),
		model:   model,
		created: time.Now().Unix(),
	}
	if err := w.send(w.chunk(ChatChoice{Delta: &ChatMessage{Role: "assistant"}})); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *chunkWriter) chunk(choice ChatChoice) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      w.id,
		Object:  "chat.completion.chunk",
		Created: w.created,
		Model:   w.model,
		Choices: []ChatChoice{choice},
	}
}

func (w *chunkWriter) emit(delta string) error {
	return w.send(w.chunk(ChatChoice{Delta: &ChatMessage{Content: delta}}))
}

func (w *chunkWriter) finish(reason string) error {
	if err := w.send(w.chunk(ChatChoice{Delta: &ChatMessage{}, FinishReason: &reason})); err != nil {
		return err
	}
	_, err := fmt.Fprint(w.w, "data: [DONE]\n\n")
	w.flush()
	return err
}

func (w *chunkWriter) fail(err error) {
	_ = w.send(map[string]any{"error": ErrorBody{Message: err.Error(), Type: "server_error"}})
}

func (w *chunkWriter) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", b); err != nil {
		return err
	}
	w.flush()
	return nil
}
