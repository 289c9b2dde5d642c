package client

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbocsi/silaevents/proto"
)

const DefaultTimeout = 5 * time.Second

// EventReceiverClient posts SiLA events to a single EventReceiver endpoint.
// Every call is one blocking POST; there is no retry and the response body
// is returned uninterpreted, SOAP faults included.
type EventReceiverClient struct {
	endpoint  string
	timeout   time.Duration
	transport Transport
	logger    *slog.Logger

	// Last envelope handed to the transport, for inspection only.
	// Concurrent callers overwrite each other.
	mu           sync.Mutex
	lastEnvelope []byte
}

type Option func(*EventReceiverClient)

func WithTimeout(d time.Duration) Option {
	return func(c *EventReceiverClient) { c.timeout = d }
}

func WithTransport(t Transport) Option {
	return func(c *EventReceiverClient) { c.transport = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *EventReceiverClient) { c.logger = l }
}

func NewEventReceiverClient(endpoint string, opts ...Option) *EventReceiverClient {
	c := &EventReceiverClient{
		endpoint: endpoint,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(c.timeout)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *EventReceiverClient) Endpoint() string       { return c.endpoint }
func (c *EventReceiverClient) Timeout() time.Duration { return c.timeout }

// LastEnvelope returns a copy of the most recently sent envelope, or nil
// before the first call.
func (c *EventReceiverClient) LastEnvelope() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.lastEnvelope)
}

func (c *EventReceiverClient) ResponseEvent(ctx context.Context, ev proto.ResponseEvent) (string, error) {
	return c.Send(ctx, ev)
}

func (c *EventReceiverClient) DataEvent(ctx context.Context, ev proto.DataEvent) (string, error) {
	return c.Send(ctx, ev)
}

func (c *EventReceiverClient) ErrorEvent(ctx context.Context, ev proto.ErrorEvent) (string, error) {
	return c.Send(ctx, ev)
}

func (c *EventReceiverClient) StatusEvent(ctx context.Context, ev proto.StatusEvent) (string, error) {
	return c.Send(ctx, ev)
}

// Send validates ev, wraps it in a SOAP envelope and posts it. The raw
// response body is returned as text.
func (c *EventReceiverClient) Send(ctx context.Context, ev proto.Event) (string, error) {
	if err := ev.Validate(); err != nil {
		return "", fmt.Errorf("invalid %s: %w", ev.Action(), err)
	}
	envelope, err := proto.Envelope(ev.Element())
	if err != nil {
		return "", fmt.Errorf("build %s envelope: %w", ev.Action(), err)
	}

	c.mu.Lock()
	c.lastEnvelope = envelope
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("Sending SiLA event", "action", ev.Action(), "endpoint", c.endpoint, "size", len(envelope))
	body, err := c.transport.RoundTrip(ctx, Request{Endpoint: c.endpoint, Action: ev.Action(), Body: envelope})
	if err != nil {
		c.logger.Warn("SiLA event failed", "action", ev.Action(), "endpoint", c.endpoint, "error", err.Error())
		return "", err
	}
	c.logger.Info("SiLA event sent", "action", ev.Action(), "endpoint", c.endpoint, "response_size", len(body))
	return string(body), nil
}
