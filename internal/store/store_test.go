package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT,
	email TEXT NOT NULL UNIQUE,
	email_verified TIMESTAMPTZ,
	image TEXT
);

CREATE TABLE IF NOT EXISTS customers (
	id BIGSERIAL PRIMARY KEY,
	auth_user_id TEXT NOT NULL UNIQUE,
	name TEXT,
	plan TEXT NOT NULL DEFAULT 'FREE',
	stripe_customer_id TEXT UNIQUE,
	stripe_subscription_id TEXT UNIQUE,
	stripe_price_id TEXT,
	stripe_current_period_end TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS k8s_cluster_configs (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	location TEXT NOT NULL,
	auth_user_id TEXT NOT NULL,
	plan TEXT NOT NULL DEFAULT 'FREE',
	network TEXT,
	status TEXT NOT NULL DEFAULT 'PENDING',
	"delete" BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	target_cluster_id BIGINT,
	status TEXT NOT NULL,
	metadata JSONB,
	request_id TEXT,
	ip_address TEXT,
	user_agent TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

TRUNCATE users, customers, k8s_cluster_configs, audit_events;
`

// setupTestStore connects to TEST_DATABASE_URL and resets the tables.
// Tests are skipped when it is unset.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := store.DefaultConfig(url)
	cfg.MinConnections = 1
	cfg.MaxConnections = 4

	pool, err := store.NewPool(ctx, cfg)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	s := store.New(pool)
	t.Cleanup(s.Close)

	return s
}
