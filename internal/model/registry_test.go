package model

import (
	"strings"
	"testing"

	"github.com/samcharles93/ember/internal/tokenizer"
)

func TestRegisterAndOpen(t *testing.T) {
	called := ""
	Register("test-backend", func(dir string) (Host, tokenizer.Tokenizer, error) {
		called = dir
		return nil, nil, nil
	})

	if _, _, err := Open("test-backend", "/tmp/ckpt"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if called != "/tmp/ckpt" {
		t.Fatalf("backend received dir %q", called)
	}

	names := Backends()
	found := false
	for _, n := range names {
		if n == "test-backend" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Backends() = %v, missing test-backend", names)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open("no-such-backend", "/tmp/ckpt")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "no-such-backend") {
		t.Fatalf("error does not name the backend: %v", err)
	}
}

func TestRegisterNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil OpenFunc")
		}
	}()
	Register("nil-backend", nil)
}
