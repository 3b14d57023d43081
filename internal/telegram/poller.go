package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/soyeahso/tellerbot/internal/logging"
)

// Handler processes one inbound update. Handlers for different principals
// run concurrently; the poller does not serialize them.
type Handler func(ctx context.Context, upd Update)

// Poller drives the long-poll intake loop.
type Poller struct {
	client  *Client
	handler Handler
	timeout int
	log     *logging.Logger
}

// NewPoller creates a poller delivering updates to handler. timeoutSec is
// the long-poll timeout; values below 1 fall back to 50 seconds.
func NewPoller(client *Client, handler Handler, timeoutSec int, log *logging.Logger) *Poller {
	if timeoutSec < 1 {
		timeoutSec = 50
	}
	return &Poller{
		client:  client,
		handler: handler,
		timeout: timeoutSec,
		log:     log.Sub("poller"),
	}
}

// Run polls until ctx is cancelled. Transport errors are logged and the
// loop backs off briefly before retrying.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().Msg("starting update intake")

	var offset int64
	for {
		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				p.log.Info().Msg("intake stopped")
				return nil
			}
			p.log.Error().Err(err).Msg("getUpdates failed, backing off")
			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go p.handler(ctx, upd)
		}
	}
}
