package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ember/internal/inference"
)

// testEngine streams its text in two halves, mimicking the engine's
// full-text-so-far streaming contract.
type testEngine struct {
	text   string
	reason inference.FinishReason
	err    error
	gotReq *inference.Request
}

func (e *testEngine) Chat(ctx context.Context, req *inference.Request, stream inference.StreamFunc) (*inference.ChatResult, error) {
	e.gotReq = req
	if e.err != nil {
		return nil, e.err
	}
	if stream != nil && e.text != "" {
		half := len(e.text) / 2
		stream(e.text[:half])
		stream(e.text)
	}
	return &inference.ChatResult{
		Text:             e.text,
		Reason:           e.reason,
		PromptTokens:     7,
		CompletionTokens: 3,
	}, nil
}

func (e *testEngine) Close() error { return nil }

func newTestServer(eng *testEngine) *echo.Echo {
	provider := &SingleEngineProvider{
		Name:     "moss",
		Engine:   eng,
		Defaults: inference.DefaultSamplingParams(),
	}
	e := echo.New()
	NewServer(provider, nil).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChatCompletionSync(t *testing.T) {
	t.Parallel()
	eng := &testEngine{text: "hello there", reason: inference.FinishStopped}
	e := newTestServer(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions",
		`{"model":"moss","messages":[{"role":"user","content":"hi"}],"max_tokens":16}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Object != "chat.completion" || len(resp.Choices) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Choices[0].Message.Content != "hello there" {
		t.Fatalf("content = %q", resp.Choices[0].Message.Content)
	}
	if *resp.Choices[0].FinishReason != "stop" {
		t.Fatalf("finish_reason = %q", *resp.Choices[0].FinishReason)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Fatalf("usage = %+v", resp.Usage)
	}

	// max_tokens must reach the resolved request.
	if eng.gotReq.Params.MaxIterations != 16 {
		t.Fatalf("max iterations = %d, want 16", eng.gotReq.Params.MaxIterations)
	}
}

func TestChatCompletionStream(t *testing.T) {
	t.Parallel()
	eng := &testEngine{text: "abcdef", reason: inference.FinishStopped}
	e := newTestServer(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions",
		`{"model":"moss","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()

	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	// Full-text snapshots "abc", "abcdef" become deltas "abc", "def".
	if !strings.Contains(body, `"content":"abc"`) || !strings.Contains(body, `"content":"def"`) {
		t.Fatalf("missing delta chunks:\n%s", body)
	}
	if !strings.Contains(body, `"finish_reason":"stop"`) {
		t.Fatalf("missing finish chunk:\n%s", body)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Fatalf("missing [DONE] marker:\n%s", body)
	}
}

func TestChatCompletionBadRequests(t *testing.T) {
	t.Parallel()
	e := newTestServer(&testEngine{text: "x"})

	cases := []struct {
		name string
		body string
	}{
		{name: "malformed-json", body: `{`},
		{name: "no-messages", body: `{"model":"moss","messages":[]}`},
		{name: "bad-role", body: `{"messages":[{"role":"tool","content":"x"}]}`},
		{name: "unknown-model", body: `{"model":"gpt-5","messages":[{"role":"user","content":"x"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSystemMessageBecomesPreamble(t *testing.T) {
	t.Parallel()
	eng := &testEngine{text: "ok", reason: inference.FinishStopped}
	e := newTestServer(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions",
		`{"model":"moss","messages":[{"role":"system","content":"be terse"},{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if eng.gotReq.Preamble != "be terse\n" {
		t.Fatalf("preamble = %q", eng.gotReq.Preamble)
	}
	if len(eng.gotReq.Messages) != 1 || eng.gotReq.Messages[0].Role != "user" {
		t.Fatalf("system message leaked into turns: %+v", eng.gotReq.Messages)
	}
}

func TestSystemOnlyMessagesRejected(t *testing.T) {
	t.Parallel()
	e := newTestServer(&testEngine{text: "x"})
	rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions",
		`{"model":"moss","messages":[{"role":"system","content":"be terse"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidSamplingParamsRejected(t *testing.T) {
	t.Parallel()
	eng := &testEngine{err: inference.ErrInvalidConfiguration}
	e := newTestServer(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/chat/completions",
		`{"model":"moss","messages":[{"role":"user","content":"x"}],"top_p":7}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()
	e := newTestServer(&testEngine{})
	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "moss" {
		t.Fatalf("models = %+v", list)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	e := newTestServer(&testEngine{})
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}
