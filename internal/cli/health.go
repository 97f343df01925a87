package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/taskflow/internal/health"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthDialOptions are added to the probe's connection. Tests replace them.
var healthDialOptions []grpc.DialOption

func newHealthCmd() *cobra.Command {
	var addr, service string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "health",
		Short:   "Probe the server's gRPC health endpoint",
		Example: `  taskflowctl health --addr localhost:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := health.NewClient(addr, healthDialOptions...)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			status, err := client.Check(ctx, service)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", addr, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC health address (GRPC_HEALTH_ADDR on the server)")
	cmd.Flags().StringVar(&service, "service", health.ServiceName, `service name to check ("" for the whole server)`)
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for an answer")
	return cmd
}
