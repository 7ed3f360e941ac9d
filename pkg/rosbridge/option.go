package rosbridge

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

// WithLogger sets the logger for the client.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) { c.l = l.Named("rosbridge") }
}

// WithURL points the client at a rosbridge server,
// ws://robot.local:9090 for example.
func WithURL(u string) Option {
	return func(c *Client) { c.url = u }
}

// WithDialTimeout bounds how long a connection attempt may take.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithServicesService overrides the rosapi service used to list what
// services are currently registered.
func WithServicesService(s string) Option {
	return func(c *Client) { c.servicesService = s }
}

// WithMetrics records call outcomes into the given metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.m = m }
}
