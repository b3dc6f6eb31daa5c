package kwp2000

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

type keepAlive struct {
	cancel context.CancelFunc
	g      *errgroup.Group
	done   chan struct{}
}

// StartKeepAlive replaces any running keep-alive with one sending cmd
// after idle has passed without a successful Execute.
func (c *Client) StartKeepAlive(cmd Request, idle time.Duration) {
	c.kaMu.Lock()
	defer c.kaMu.Unlock()
	c.stopKeepAlive()

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		c.keepAlive(gctx, cmd, idle)
		return nil
	})
	c.ka = &keepAlive{cancel: cancel, g: g, done: done}
}

// StopKeepAlive returns once the keep-alive goroutine has exited.
func (c *Client) StopKeepAlive() {
	c.kaMu.Lock()
	defer c.kaMu.Unlock()
	c.stopKeepAlive()
}

func (c *Client) stopKeepAlive() {
	if c.ka == nil {
		return
	}
	c.ka.cancel()
	c.ka.g.Wait()
	c.ka = nil
}

// KeepAliveRunning reports whether a keep-alive goroutine is active.
func (c *Client) KeepAliveRunning() bool {
	c.kaMu.Lock()
	defer c.kaMu.Unlock()
	if c.ka == nil {
		return false
	}
	select {
	case <-c.ka.done:
		return false
	default:
		return true
	}
}

func (c *Client) keepAlive(ctx context.Context, cmd Request, idle time.Duration) {
	t := time.NewTicker(c.keepAliveInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !c.tr.IsOpen() {
			return
		}
		if c.Idle() < idle {
			continue
		}
		if _, err := c.Execute(cmd); err != nil {
			c.onError(fmt.Errorf("keep-alive stopped: %w", err))
			return
		}
	}
}
