package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// Client probes a grpc.health.v1.Health server.
type Client struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
	addr   string
}

// NewClient builds a client for addr. extra options are appended to the
// defaults, e.g. a custom dialer in tests.
func NewClient(addr string, extra ...grpc.DialOption) (*Client, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    2 * time.Minute,
			Timeout: 10 * time.Second,
		}),
	}, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create health client for %s: %w", addr, err)
	}
	return &Client{conn: conn, client: healthpb.NewHealthClient(conn), addr: addr}, nil
}

// Check waits for the connection and returns the serving status of service.
func (c *Client) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if err := waitForReady(ctx, c.conn); err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health server at %s not ready: %w", c.addr, err)
	}
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %q: %w", service, err)
	}
	return resp.GetStatus(), nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}
