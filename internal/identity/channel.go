// Package identity holds both edges to the external national ID provider:
// the outbound REST client that requests deliveries and verifications, and
// the inbound websocket channel the provider pushes verification results
// through. Pushes correlate by token alone.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"bankops/internal/harmonization/models"
)

// push is the wire shape of one verification result.
type push struct {
	CorrelationToken string               `json:"correlation_token"`
	Identity         models.FaydaIdentity `json:"identity"`
}

// Sink consumes correlated pushes. Rejections (unknown token, consumed
// token, cancelled request) are the sink's call; the channel only logs them.
type Sink interface {
	ReceiveExternalIdentity(ctx context.Context, token string, payload models.FaydaIdentity) (*models.Request, error)
}

// Channel subscribes to the provider's push stream and dispatches each
// message to the sink. It reconnects with capped exponential backoff until
// the context is cancelled.
type Channel struct {
	url            string
	sink           Sink
	logger         *slog.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type ChannelOption func(c *Channel)

func WithChannelLogger(logger *slog.Logger) ChannelOption {
	return func(c *Channel) { c.logger = logger }
}

func WithBackoff(initial, max time.Duration) ChannelOption {
	return func(c *Channel) {
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// NewChannel constructs a Channel against the provider's stream URL.
func NewChannel(url string, sink Sink, opts ...ChannelOption) *Channel {
	c := &Channel{
		url:            url,
		sink:           sink,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run blocks until ctx is cancelled, maintaining the subscription across
// connection failures.
func (c *Channel) Run(ctx context.Context) error {
	backoff := c.initialBackoff
	for {
		connected, err := c.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			// A healthy session clears the penalty from earlier flaps.
			backoff = c.initialBackoff
		}
		c.log(ctx, slog.LevelWarn, "identity stream disconnected", "error", errString(err), "retry_in", backoff.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func (c *Channel) listen(ctx context.Context) (connected bool, err error) {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	c.log(ctx, slog.LevelInfo, "identity stream connected", "url", c.url)

	for {
		var message push
		if err := wsjson.Read(ctx, conn, &message); err != nil {
			return true, err
		}
		c.dispatch(ctx, message)
	}
}

// dispatch hands one push to the sink. A rejected push is normal operation
// (duplicates, late arrivals after cancellation) and never tears the
// connection down.
func (c *Channel) dispatch(ctx context.Context, message push) {
	if message.CorrelationToken == "" {
		c.log(ctx, slog.LevelWarn, "identity push without correlation token dropped")
		return
	}
	if _, err := c.sink.ReceiveExternalIdentity(ctx, message.CorrelationToken, message.Identity); err != nil {
		c.log(ctx, slog.LevelWarn, "identity push rejected", "error", err.Error())
	}
}

func (c *Channel) log(ctx context.Context, level slog.Level, msg string, attributes ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(ctx, level, msg, attributes...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled.Error()
	}
	return err.Error()
}
