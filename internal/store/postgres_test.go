package store

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("INKWELL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INKWELL_TEST_POSTGRES_DSN not set, skipping")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available, skipping: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE comments, posts RESTART IDENTITY`); err != nil {
		s.Close()
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStoreContract(t *testing.T) {
	exerciseEntityStore(t, newTestPostgresStore(t))
}
