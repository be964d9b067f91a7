package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/pkg/config"
	"github.com/wonny/clv/backend/pkg/logger"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := New(&config.Config{Port: "0", Env: "test"}, logger.Nop(), http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	srv := New(&config.Config{Port: "not-a-port", Env: "test"}, logger.Nop(), http.NotFoundHandler())
	assert.Error(t, srv.Run(context.Background()))
}
