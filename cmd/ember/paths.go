package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samcharles93/ember/internal/hub"
)

const envEmberModelsDir = "EMBER_MODELS_DIR"

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveModelsDir picks the local checkpoint cache: the flag, then the
// environment, then the default hub cache.
func resolveModelsDir(flagValue string) (string, error) {
	if dir := strings.TrimSpace(flagValue); dir != "" {
		return dir, nil
	}
	if dir := strings.TrimSpace(os.Getenv(envEmberModelsDir)); dir != "" {
		return dir, nil
	}
	return hub.DefaultCacheDir()
}

// resolveModelDir maps the --model argument to a checkpoint directory.
// A path to an existing directory wins; a model id like org/name is
// looked up in the cache; an empty argument discovers cached snapshots
// and asks when there is more than one.
func resolveModelDir(modelFlag, modelsFlag string, stdin io.Reader, stderr io.Writer) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	if modelFlag != "" {
		if st, err := os.Stat(modelFlag); err == nil && st.IsDir() {
			return filepath.Clean(modelFlag), nil
		}
	}

	modelsDir, err := resolveModelsDir(modelsFlag)
	if err != nil {
		return "", err
	}

	if modelFlag != "" {
		dir := filepath.Join(modelsDir, strings.ReplaceAll(modelFlag, "/", "--"))
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir, nil
		}
		return "", fmt.Errorf("model %q not found in %s (try: ember pull %s)", modelFlag, modelsDir, modelFlag)
	}

	models, err := discoverCheckpoints(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 0:
		return "", fmt.Errorf("no checkpoints found in %s (try: ember pull <model-id>)", modelsDir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "chat: using model %s\n", modelDisplayName(modelsDir, models[0]))
		return models[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf(
				"multiple checkpoints found in %s but stdin is not interactive; set --model",
				modelsDir,
			)
		}
		return selectModelInteractively(modelsDir, models, stdin, stderr)
	}
}

// discoverCheckpoints lists snapshot directories holding a config.json.
func discoverCheckpoints(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(candidate, "config.json")); err != nil {
			continue
		}
		models = append(models, candidate)
	}
	sort.Strings(models)
	return models, nil
}

func selectModelInteractively(modelsDir string, models []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models available in %s", modelsDir)
	}

	_, _ = fmt.Fprintf(stderr, "chat: select a model from %s\n", modelsDir)
	for i, m := range models {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, modelDisplayName(modelsDir, m))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "chat: enter selection [1-%d]: ", len(models))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(models) {
			_, _ = fmt.Fprintf(stderr, "chat: invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model")
			}
			continue
		}
		return models[idx-1], nil
	}
}

// modelDisplayName renders a snapshot directory back as a model id.
func modelDisplayName(modelsDir, modelPath string) string {
	rel, err := filepath.Rel(modelsDir, modelPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(modelPath)
	}
	return strings.ReplaceAll(rel, "--", "/")
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
