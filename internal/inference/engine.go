package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samcharles93/ember/internal/logger"
	"github.com/samcharles93/ember/internal/model"
	"github.com/samcharles93/ember/internal/tokenizer"
)

// StreamFunc receives the full assistant text generated so far, once per
// decode step. Consumers wanting deltas trim the previously seen prefix;
// re-decoding the whole suffix each step keeps token-boundary artifacts
// out of the stream.
type StreamFunc func(text string)

// Engine is the chat-generation surface of a loaded checkpoint.
type Engine interface {
	Chat(ctx context.Context, req *Request, stream StreamFunc) (*ChatResult, error)
	Close() error
}

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Text             string
	Reason           FinishReason
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	TPS              float64
}

// ClientConfig configures a Client. Host and Tokenizer are required.
type ClientConfig struct {
	Host         model.Host
	Tokenizer    tokenizer.Tokenizer
	Preamble     string // empty selects DefaultPreamble
	Capabilities Capabilities
	Defaults     SamplingParams
	Logger       logger.Logger

	// ExtraStop adds stop patterns beyond the assistant end-of-message
	// token, OR-combined (tool phases use <eot>, <eoc>, <eor>).
	ExtraStop []StopPattern
}

// Client owns a single loaded model handle and serialises generation
// against it: the host's cache state makes it a single-writer resource,
// so concurrent Chat calls queue on an internal mutex.
type Client struct {
	host     model.Host
	tok      tokenizer.Tokenizer
	preamble string
	caps     Capabilities
	defaults SamplingParams
	stop     []StopPattern
	log      logger.Logger

	mu sync.Mutex
}

// NewClient builds a chat client around a loaded model host. The
// assistant end-of-message token is resolved eagerly so a broken
// tokenizer surfaces at construction, not mid-chat.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("%w: model host is required", ErrInvalidConfiguration)
	}
	if cfg.Tokenizer == nil {
		return nil, fmt.Errorf("%w: tokenizer is required", ErrInvalidConfiguration)
	}

	eom, err := cfg.Tokenizer.TokenID(tokenizer.EndOfMessage)
	if err != nil {
		return nil, fmt.Errorf("resolve %s token: %w", tokenizer.EndOfMessage, err)
	}
	eomStop, err := NewStopPattern([]int64{eom})
	if err != nil {
		return nil, err
	}

	preamble := cfg.Preamble
	if preamble == "" {
		preamble = DefaultPreamble
	}
	defaults := cfg.Defaults
	if defaults == (SamplingParams{}) {
		defaults = DefaultSamplingParams()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Client{
		host:     cfg.Host,
		tok:      cfg.Tokenizer,
		preamble: preamble,
		caps:     cfg.Capabilities,
		defaults: defaults,
		stop:     append([]StopPattern{eomStop}, cfg.ExtraStop...),
		log:      log,
	}, nil
}

// Defaults returns the client's resolved sampling defaults.
func (c *Client) Defaults() SamplingParams { return c.defaults }

// Chat renders the conversation into a prompt, runs the decode loop and
// streams the assistant's reply. Invalid sampling parameters fail before
// the first forward pass.
func (c *Client) Chat(ctx context.Context, req *Request, stream StreamFunc) (*ChatResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrInvalidConfiguration)
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	preamble := req.Preamble
	if preamble == "" {
		preamble = c.preamble
	}
	caps := req.Capabilities
	if caps == (Capabilities{}) {
		caps = c.caps
	}
	prompt := RenderPrompt(preamble, caps, req.Messages)

	ids, mask, err := c.tok.Encode(prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	promptLen := len(ids)

	gen := &Generator{
		Host:   c.host,
		Params: req.Params,
		Stop:   c.stop,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("starting generation",
		"prompt_tokens", promptLen,
		"max_iterations", req.Params.MaxIterations,
		"temperature", req.Params.Temperature)

	var text string
	res, err := gen.Run(ctx, [][]int64{ids}, [][]int64{mask}, func(s Snapshot) bool {
		decoded, derr := c.tok.Decode(s.Sequences[0][promptLen:], true)
		if derr != nil {
			return true
		}
		text = decoded
		if stream != nil {
			stream(decoded)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	// The stream already carries the final snapshot; decode once more
	// only if streaming never produced text (zero-step runs).
	if text == "" && len(res.Sequences) > 0 && len(res.Sequences[0]) > promptLen {
		if decoded, derr := c.tok.Decode(res.Sequences[0][promptLen:], true); derr == nil {
			text = decoded
		}
	}

	out := &ChatResult{
		Text:             text,
		Reason:           res.Reason,
		PromptTokens:     promptLen,
		CompletionTokens: res.Steps,
		Duration:         res.Duration,
	}
	if res.Duration > 0 {
		out.TPS = float64(res.Steps) / res.Duration.Seconds()
	}

	c.log.Debug("generation finished",
		"reason", string(res.Reason),
		"completion_tokens", res.Steps,
		"duration", res.Duration)

	return out, nil
}

// ChatOnce runs a non-streaming chat turn and returns the final reply.
func (c *Client) ChatOnce(ctx context.Context, req *Request) (*ChatResult, error) {
	return c.Chat(ctx, req, nil)
}

// Close releases the underlying model host.
func (c *Client) Close() error {
	if c == nil || c.host == nil {
		return nil
	}
	return c.host.Close()
}
