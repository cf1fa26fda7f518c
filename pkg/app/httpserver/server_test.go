package httpserver

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNew_UsesServerConfig(t *testing.T) {
	cfg := &config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         9090,
		ReadTimeout:  time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  3 * time.Second,
	}
	srv := New(cfg, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, time.Second, srv.ReadTimeout)
	assert.Equal(t, 2*time.Second, srv.WriteTimeout)
	assert.Equal(t, 3*time.Second, srv.IdleTimeout)
}

func TestServeAndWait_ShutsDownOnCancel(t *testing.T) {
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: freePort(t)}
	srv := New(cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeAndWait(ctx, zap.NewNop(), srv, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeAndWait did not return after cancel")
	}
}

func TestServeAndWait_ReportsListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := &http.Server{Addr: l.Addr().String(), Handler: http.NotFoundHandler()}
	err = ServeAndWait(context.Background(), nil, srv, time.Second)
	assert.ErrorContains(t, err, "http server failed")
}

func TestServeAndWait_NilServer(t *testing.T) {
	assert.Error(t, ServeAndWait(context.Background(), nil, nil, 0))
}
