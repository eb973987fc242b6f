package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ember/internal/inference"
	"github.com/samcharles93/ember/internal/model"
	"github.com/samcharles93/ember/internal/tokenizer"
)

func chatCmd() *cli.Command {
	var (
		prompt   string
		preamble string
		plugins  string

		temp              float64
		topK              int64
		topP              float64
		repetitionPenalty float64
		lengthPenalty     float64
		regulationStart   int64
		maxNewTokens      int64
		maxTime           int64
		seed              int64

		showStats bool
	)

	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with a model",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "single prompt; runs one turn and exits",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "system",
				Aliases:     []string{"sys"},
				Usage:       "override the system preamble",
				Destination: &preamble,
			},
			&cli.StringFlag{
				Name:        "plugins",
				Usage:       "comma-separated plugins to enable (web_search, calculator, equation_solver, text_to_image, image_edition, text_to_speech)",
				Destination: &plugins,
			},
			&cli.Float64Flag{
				Name:        "temp",
				Aliases:     []string{"temperature", "t"},
				Usage:       "sampling temperature (0 = greedy)",
				Value:       0.7,
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Aliases:     []string{"top_k", "topk"},
				Usage:       "top-k sampling parameter (0 = disabled)",
				Value:       40,
				Destination: &topK,
			},
			&cli.Float64Flag{
				Name:        "top-p",
				Aliases:     []string{"top_p", "topp"},
				Usage:       "nucleus sampling parameter",
				Value:       0.8,
				Destination: &topP,
			},
			&cli.Float64Flag{
				Name:        "repetition-penalty",
				Aliases:     []string{"repetition_penalty"},
				Usage:       "repetition penalty (1.0 = disabled)",
				Value:       1.1,
				Destination: &repetitionPenalty,
			},
			&cli.Float64Flag{
				Name:        "length-penalty",
				Aliases:     []string{"length_penalty"},
				Usage:       "stop-token weight applied past the regulation start",
				Value:       1.0,
				Destination: &lengthPenalty,
			},
			&cli.Int64Flag{
				Name:        "regulation-start",
				Aliases:     []string{"regulation_start"},
				Usage:       "step after which the length penalty kicks in",
				Value:       512,
				Destination: &regulationStart,
			},
			&cli.Int64Flag{
				Name:        "max-new-tokens",
				Aliases:     []string{"n"},
				Usage:       "maximum tokens to generate per turn",
				Value:       2048,
				Destination: &maxNewTokens,
			},
			&cli.Int64Flag{
				Name:        "max-time",
				Usage:       "wall-clock budget per turn in seconds (0 = unlimited)",
				Value:       60,
				Destination: &maxTime,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling RNG seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "print per-turn generation stats",
				Value:       true,
				Destination: &showStats,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(c, cfg)
			applyChatConfig(c, cfg, &temp, &topK, &topP, &repetitionPenalty,
				&lengthPenalty, &regulationStart, &maxNewTokens, &maxTime, &seed)

			log := newLogger()

			caps, err := parsePlugins(plugins)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			modelDir, err := resolveModelDir(modelArg, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
			}

			loadStart := time.Now()
			host, tok, err := model.Open(backend, modelDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			log.Info("model loaded", "dir", modelDir, "backend", backend, "duration", time.Since(loadStart))

			params := inference.SamplingParams{
				Temperature:       temp,
				TopK:              int(topK),
				TopP:              topP,
				RepetitionPenalty: repetitionPenalty,
				LengthPenalty:     lengthPenalty,
				RegulationStart:   int(regulationStart),
				MaxIterations:     int(maxNewTokens),
				MaxTime:           time.Duration(maxTime) * time.Second,
				Seed:              seed,
			}

			client, err := inference.NewClient(inference.ClientConfig{
				Host:         host,
				Tokenizer:    tok,
				Preamble:     preamble,
				Capabilities: caps,
				Defaults:     params,
				Logger:       log,
			})
			if err != nil {
				_ = host.Close()
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = client.Close() }()

			msgs := make([]tokenizer.Message, 0, 10)

			interactive := prompt == ""
			if interactive {
				fmt.Fprintln(os.Stderr, "Interactive mode. Type /exit to quit, /reset to clear history.")
			} else {
				msgs = append(msgs, tokenizer.Message{Role: tokenizer.RoleUser, Content: prompt})
			}

			for {
				if interactive && (len(msgs) == 0 || msgs[len(msgs)-1].Role != tokenizer.RoleUser) {
					input, err := readInteractiveLine("> ")
					if err != nil {
						if errors.Is(err, io.EOF) {
							break
						}
						return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
					}
					switch strings.TrimSpace(input) {
					case "":
						continue
					case "/exit":
						return nil
					case "/reset":
						msgs = msgs[:0]
						continue
					}
					msgs = append(msgs, tokenizer.Message{Role: tokenizer.RoleUser, Content: input})
				}

				req := inference.Request{
					Messages:     msgs,
					Capabilities: caps,
					Params:       client.Defaults(),
				}

				prev := ""
				res, err := client.Chat(ctx, &req, func(text string) {
					if len(text) > len(prev) {
						fmt.Print(text[len(prev):])
						prev = text
					}
				})
				if err != nil {
					fmt.Fprintln(os.Stderr, "error: generation:", err)
					break
				}

				fmt.Println()
				if showStats {
					fmt.Fprintf(os.Stderr, "Stats: %.2f TPS (%d tokens in %s, %s)\n",
						res.TPS, res.CompletionTokens, res.Duration.Round(time.Millisecond), res.Reason)
				}

				msgs = append(msgs, tokenizer.Message{Role: tokenizer.RoleAssistant, Content: res.Text})

				if !interactive {
					break
				}
			}
			return nil
		},
	}
}

func parsePlugins(list string) (inference.Capabilities, error) {
	var caps inference.Capabilities
	for _, name := range strings.Split(list, ",") {
		switch strings.TrimSpace(name) {
		case "":
		case "web_search":
			caps.WebSearch = true
		case "calculator":
			caps.Calculator = true
		case "equation_solver":
			caps.EquationSolver = true
		case "text_to_image":
			caps.TextToImage = true
		case "image_edition":
			caps.ImageEdition = true
		case "text_to_speech":
			caps.TextToSpeech = true
		default:
			return caps, fmt.Errorf("unknown plugin %q", strings.TrimSpace(name))
		}
	}
	return caps, nil
}
