package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"

	"github.com/voxhall/ignition/internal/config"
	"github.com/voxhall/ignition/internal/orchestrator"
)

const natsProbeName = "nats"

// natsConn is the subset of *nats.Conn used for liveness probing. Defining an
// interface here allows test doubles to be injected without a live server.
type natsConn interface {
	RTT() (time.Duration, error)
}

// NATSClient probes a NATS server as the broker dependency. Used when
// bootstrap.dependency.kind is "nats".
type NATSClient struct {
	url     string
	cb      *gobreaker.CircuitBreaker
	connect func(url string) (natsConn, func(), error)
}

// NewNATSClient constructs a NATSClient. No connection is made at construction
// time; connections are opened per Probe call and closed immediately after.
func NewNATSClient(cfg config.DependencyConfig, cb *gobreaker.CircuitBreaker) *NATSClient {
	return &NATSClient{
		url:     cfg.URL,
		cb:      cb,
		connect: realConnect,
	}
}

// Probe connects to NATS and measures a round trip to the server. The call is
// wrapped in the circuit breaker, matching the Redis prober's behavior.
func (c *NATSClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		conn, cleanup, err := c.connect(c.url)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		defer cleanup()

		if _, rttErr := conn.RTT(); rttErr != nil {
			return nil, fmt.Errorf("round trip: %w", rttErr)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) {
			errMsg = "circuit open"
		}
		return orchestrator.ProbeResult{
			Name:      natsProbeName,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return orchestrator.ProbeResult{
		Name:      natsProbeName,
		OK:        true,
		LatencyMs: latency,
	}
}

// realConnect opens a real NATS connection and returns it plus a cleanup
// function that closes it.
func realConnect(url string) (natsConn, func(), error) {
	nc, err := nats.Connect(url, nats.Timeout(5*time.Second), nats.RetryOnFailedConnect(false))
	if err != nil {
		return nil, func() {}, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, func() { nc.Close() }, nil
}
