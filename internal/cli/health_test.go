package cli

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/taskflow/internal/health"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestHealthCommand(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := health.NewGRPCServer(health.NewChecker(okPinger{}, time.Second), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	orig := healthDialOptions
	healthDialOptions = []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}
	t.Cleanup(func() { healthDialOptions = orig })

	out, err := run(t, "health", "--addr", "passthrough:///bufnet")
	if err != nil {
		t.Fatalf("health failed: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != "SERVING" {
		t.Fatalf("unexpected output: %q", out)
	}
}
