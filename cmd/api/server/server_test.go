package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/connectivity"

	ginhandler "user-management-service/internal/adapter/gin/handler"
	grpcadapter "user-management-service/internal/adapter/grpc"
	"user-management-service/internal/adapter/repository/memory"
	"user-management-service/internal/config"
	"user-management-service/internal/usecase/user"
)

func freePort(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return strconv.Itoa(port)
}

func TestServer_StartServeShutdown(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.App.GRPCPort = freePort(t)
	cfg.App.HTTPPort = freePort(t)
	cfg.App.GinPort = freePort(t)
	cfg.App.ShutdownTimeoutSeconds = 5

	uc := user.New(memory.NewUserRepository(log), log)
	srv, err := New(cfg, log, grpcadapter.NewUserService(uc, log), ginhandler.NewUserHandler(uc, log))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	ginURL := "http://localhost:" + cfg.App.GinPort
	gatewayURL := "http://localhost:" + cfg.App.HTTPPort

	require.Eventually(t, func() bool {
		resp, err := http.Get(ginURL + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	// A user created through Gin is visible through the gateway
	resp, err := http.Post(ginURL+"/v1/users", "application/json",
		bytes.NewBufferString(`{"name":"John Doe","email":"john@example.com"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Post(gatewayURL+"/v1/users", "application/json",
			bytes.NewBufferString(`{"name":"Other","email":"john@example.com"}`))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusConflict
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Start_PortInUse(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = busy.Close()
	})

	cfg.App.GRPCPort = strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)
	cfg.App.HTTPPort = freePort(t)
	cfg.App.GinPort = freePort(t)

	uc := user.New(memory.NewUserRepository(log), log)
	srv, err := New(cfg, log, grpcadapter.NewUserService(uc, log), ginhandler.NewUserHandler(uc, log))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})

	err = srv.Start(context.Background())
	assert.ErrorContains(t, err, "gRPC address")
	assert.Equal(t, connectivity.Shutdown, srv.gatewayConn.GetState())
}

func TestServer_Start_GinPortInUseClosesGatewayConn(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = busy.Close()
	})

	cfg.App.GRPCPort = freePort(t)
	cfg.App.HTTPPort = freePort(t)
	cfg.App.GinPort = strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)

	uc := user.New(memory.NewUserRepository(log), log)
	srv, err := New(cfg, log, grpcadapter.NewUserService(uc, log), ginhandler.NewUserHandler(uc, log))
	require.NoError(t, err)

	err = srv.Start(context.Background())
	assert.ErrorContains(t, err, "Gin address")
	assert.Equal(t, connectivity.Shutdown, srv.gatewayConn.GetState())

	// The released ports can be bound again
	for _, port := range []string{cfg.App.GRPCPort, cfg.App.HTTPPort} {
		lis, err := net.Listen("tcp", ":"+port)
		require.NoError(t, err, port)
		require.NoError(t, lis.Close())
	}

	assert.NoError(t, srv.closeGatewayConn())
}
