package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newHubServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/fnlp/moss-moon-003-sft", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := `{"id":"fnlp/moss-moon-003-sft","sha":"abc123","siblings":[`
		first := true
		for name, content := range files {
			if !first {
				body += ","
			}
			first = false
			body += `{"rfilename":"` + name + `","size":` + itoa(len(content)) + `}`
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	})
	for name, content := range files {
		mux.HandleFunc("/fnlp/moss-moon-003-sft/resolve/main/"+name, func(content string) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(content))
			}
		}(content))
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestModelInfo(t *testing.T) {
	t.Parallel()
	srv := newHubServer(t, map[string]string{"config.json": "{}"})
	c := NewClient(WithEndpoint(srv.URL), WithRateLimit(1000))

	info, err := c.ModelInfo(context.Background(), "fnlp/moss-moon-003-sft")
	if err != nil {
		t.Fatalf("ModelInfo: %v", err)
	}
	if info.SHA != "abc123" || len(info.Siblings) != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestModelInfoNotFound(t *testing.T) {
	t.Parallel()
	srv := newHubServer(t, nil)
	c := NewClient(WithEndpoint(srv.URL), WithRateLimit(1000))

	_, err := c.ModelInfo(context.Background(), "missing/model")
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
}

func TestSnapshotDownloadsAndCaches(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"config.json":           `{"vocab_size":107008}`,
		"tokenizer_config.json": `{}`,
	}
	srv := newHubServer(t, files)
	c := NewClient(WithEndpoint(srv.URL), WithRateLimit(1000))

	cache := t.TempDir()
	dir, err := c.Snapshot(context.Background(), "fnlp/moss-moon-003-sft", cache)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if filepath.Base(dir) != "fnlp--moss-moon-003-sft" {
		t.Fatalf("snapshot dir = %q", dir)
	}
	for name, content := range files {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != content {
			t.Fatalf("%s content = %q, want %q", name, got, content)
		}
	}

	// Second resolution must not re-download: poison the local copy and
	// confirm it survives because the size still matches.
	poisoned := filepath.Join(dir, "tokenizer_config.json")
	if err := os.WriteFile(poisoned, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Snapshot(context.Background(), "fnlp/moss-moon-003-sft", cache); err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	got, _ := os.ReadFile(poisoned)
	if string(got) != "[]" {
		t.Fatal("cached file was re-downloaded despite matching size")
	}
}

func TestValidateModelID(t *testing.T) {
	t.Parallel()
	for _, bad := range []string{"", "/abs", "a/../b"} {
		if err := validateModelID(bad); err == nil {
			t.Errorf("validateModelID(%q) accepted", bad)
		}
	}
	if err := validateModelID("fnlp/moss-moon-003-sft"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
}
