package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	interceptor := LoggingInterceptor(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/kpi.v1.KpiScoring/SubmitValue"}

	t.Run("successful request", func(t *testing.T) {
		logs.TakeAll()
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "req-42"))

		resp, err := interceptor(ctx, "request", info, func(ctx context.Context, req any) (any, error) {
			return "success", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "success", resp)

		entries := logs.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "gRPC request completed", entries[1].Message)
		assert.Equal(t, "req-42", entries[1].ContextMap()["request_id"])
		assert.Equal(t, "unknown", entries[0].ContextMap()["client_addr"])
	})

	t.Run("error request", func(t *testing.T) {
		logs.TakeAll()

		_, err := interceptor(context.Background(), "request", info, func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.InvalidArgument, "test error")
		})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		entries := logs.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "gRPC request failed", entries[1].Message)
		assert.Equal(t, "InvalidArgument", entries[1].ContextMap()["status_code"])
		assert.NotEmpty(t, entries[1].ContextMap()["request_id"], "a request id is generated when none is sent")
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/kpi.v1.KpiScoring/SubmitValue"}

	t.Run("panic becomes internal error", func(t *testing.T) {
		resp, err := interceptor(context.Background(), "request", info, func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})
		assert.Nil(t, resp)
		assert.Equal(t, codes.Internal, status.Code(err))
	})

	t.Run("normal response passes through", func(t *testing.T) {
		resp, err := interceptor(context.Background(), "request", info, func(ctx context.Context, req any) (any, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

func TestNew_InvalidPort(t *testing.T) {
	_, err := New(WithPort(70000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 70000")
}

func TestServerBuilderWithLogging(t *testing.T) {
	server, err := New(
		WithPort(50061),
		WithLogger(zaptest.NewLogger(t)),
		WithLogging(true),
		WithRecovery(true),
	)
	require.NoError(t, err)
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			t.Logf("Server shutdown error: %v", err)
		}
	}()

	assert.NotNil(t, server.grpcServer)
	assert.NotNil(t, server.logger)
	assert.NotNil(t, server.healthServer)

	server.RegisterServiceWithHealth("kpi.v1.KpiScoring", func(s *grpc.Server) {})

	conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	server.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	healthClient := healthpb.NewHealthClient(conn)

	resp, err := healthClient.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	resp, err = healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: "kpi.v1.KpiScoring"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestNew_NegativeMaxRecvMsgSize(t *testing.T) {
	_, err := New(WithListener(bufconn.Listen(1<<10)), WithMaxRecvMsgSize(-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid max receive size -1")
}

func TestServerShutdownMarksServicesNotServing(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server, err := New(
		WithListener(lis),
		WithPort(0),
		WithLogger(zaptest.NewLogger(t)),
		WithMaxRecvMsgSize(16<<20),
	)
	require.NoError(t, err)

	server.RegisterServiceWithHealth("kpi.v1.KpiScoring", func(s *grpc.Server) {})
	server.Start()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "kpi.v1.KpiScoring"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	require.NoError(t, server.Shutdown(ctx))

	for _, name := range []string{"", "kpi.v1.KpiScoring"} {
		resp, err := server.healthServer.Check(ctx, &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status, name)
	}
}
