package main

import (
	"errors"
	"io"
	"testing"

	"github.com/oriys/inkwell/internal/domain"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestCommandsAgainstMemoryStore(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"create post", []string{"post", "create", "--store", "memory", "--title", "hello", "--text", "world", "--tag", "go"}},
		{"search", []string{"search", "--store", "memory", "hello", "#go"}},
		{"search json", []string{"search", "--store", "memory", "--json", "--page", "3"}},
		{"audit", []string{"audit", "--store", "memory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(t, tt.args...); err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	err := run(t, "post", "get", "--store", "memory", "1")
	if !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("get on empty store = %v, want ErrPostNotFound", err)
	}

	err = run(t, "post", "like", "--store", "memory", "abc")
	if !domain.IsValidation(err) {
		t.Fatalf("non-numeric id = %v, want validation error", err)
	}

	err = run(t, "comment", "add", "--store", "memory", "1", "")
	if !domain.IsValidation(err) {
		t.Fatalf("empty comment = %v, want validation error", err)
	}

	if err := run(t, "search", "--store", "sqlite"); err == nil {
		t.Fatal("unknown store driver should fail config validation")
	}

	if err := run(t, "post", "create", "--store", "memory", "--title", "t"); err == nil {
		t.Fatal("missing --text should fail")
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("INKWELL_STORE_DRIVER", "postgres")
	t.Setenv("INKWELL_LOG_LEVEL", "warn")

	storeDriver, logLevel = "memory", "debug"
	t.Cleanup(func() { storeDriver, logLevel = "", "" })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Observability.Logging.Level != "debug" {
		t.Fatalf("flags must win over env: driver=%q level=%q", cfg.Store.Driver, cfg.Observability.Logging.Level)
	}
}
