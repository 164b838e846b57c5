package main

import (
	"net/http/httptest"
	"testing"

	"github.com/brojonat/txnview/service/config"
	natspkg "github.com/brojonat/txnview/service/nats"
	"github.com/brojonat/txnview/service/server"
	"github.com/brojonat/txnview/service/store"
	"github.com/stretchr/testify/require"
)

// startBackend runs the real HTTP backend over a demo in-memory store.
func startBackend(t *testing.T, transactions int) (*httptest.Server, *store.MemoryStore, *natspkg.MockPublisher) {
	t.Helper()

	st, err := store.NewMemoryStore(store.DemoFixture(transactions))
	require.NoError(t, err)

	publisher := natspkg.NewMockPublisher()
	cfg := &config.Config{ServerAddr: ":0", LogLevel: "error", PageSize: 5}
	ts := httptest.NewServer(server.New(":0", cfg, st, publisher, nil, nil, nil).Handler())
	t.Cleanup(ts.Close)

	return ts, st, publisher
}
