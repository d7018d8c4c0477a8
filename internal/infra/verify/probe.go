package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ProbeConfig defines gRPC health-probe settings for the provider.
type ProbeConfig struct {
	Addr        string
	DialTimeout time.Duration
}

// HealthProbe watches the verification provider over the standard
// gRPC health protocol, feeding the readiness endpoint.
type HealthProbe struct {
	conn   *grpc.ClientConn
	client grpc_health_v1.HealthClient
}

// DialHealth connects to the provider's health endpoint.
func DialHealth(ctx context.Context, cfg ProbeConfig, logger *slog.Logger) (*HealthProbe, error) {
	if cfg.Addr == "" {
		return nil, errors.New("verify: probe address required")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("verify health probe connected", "addr", cfg.Addr)
	}
	return &HealthProbe{
		conn:   conn,
		client: grpc_health_v1.NewHealthClient(conn),
	}, nil
}

// Check reports nil while the provider answers SERVING.
func (p *HealthProbe) Check(ctx context.Context) error {
	if p == nil || p.client == nil {
		return ErrNotConfigured
	}
	resp, err := p.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if status := resp.GetStatus(); status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("verify: provider health is %s", status)
	}
	return nil
}

// Close releases the gRPC connection.
func (p *HealthProbe) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
