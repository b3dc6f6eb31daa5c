// Package kwp2000 implements the ISO 14230-3 diagnostic protocol on top
// of a transport: request serialization, response classification, the
// response pending loop and the keep-alive session.
package kwp2000

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/transport"
)

type State int32

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

const (
	DefaultInitTimeout       = 400 * time.Millisecond
	DefaultKeepAliveDelay    = 1500 * time.Millisecond
	DefaultKeepAliveInterval = time.Second
	// fastInitIdle is the bus idle time required before another wake up.
	fastInitIdle = 300 * time.Millisecond
)

type Client struct {
	tr transport.Transport

	mu           sync.Mutex
	state        atomic.Int32
	lastActivity atomic.Int64

	kaMu sync.Mutex
	ka   *keepAlive

	debug             bool
	timeout           time.Duration
	initTimeout       time.Duration
	retryDelay        time.Duration
	keepAliveInterval time.Duration
	maxPending        int
	onMessage         func(string)
	onError           func(error)
}

type Option func(*Client)

func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

func WithOnMessage(fn func(string)) Option {
	return func(c *Client) {
		if fn != nil {
			c.onMessage = fn
		}
	}
}

func WithOnError(fn func(error)) Option {
	return func(c *Client) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// WithTimeouts sets the steady state read timeout and the shorter one
// used while the bus is being initialized.
func WithTimeouts(steady, init time.Duration) Option {
	return func(c *Client) {
		c.timeout = steady
		c.initTimeout = init
	}
}

// WithFastInitRetryDelay sets the pause between fast init strategies.
func WithFastInitRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithKeepAliveInterval sets how often the keep-alive goroutine wakes up.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *Client) {
		c.keepAliveInterval = d
	}
}

// WithMaxPending bounds consecutive response pending replies, zero
// waits forever.
func WithMaxPending(n int) Option {
	return func(c *Client) {
		c.maxPending = n
	}
}

// WithConfig takes the logging settings of a hardware config.
func WithConfig(cfg *gkbus.Config) Option {
	return func(c *Client) {
		c.debug = cfg.Debug
		if cfg.OnMessage != nil {
			c.onMessage = cfg.OnMessage
		}
		if cfg.OnError != nil {
			c.onError = cfg.OnError
		}
	}
}

func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		tr:                tr,
		timeout:           gkbus.DefaultTimeout,
		initTimeout:       DefaultInitTimeout,
		retryDelay:        fastInitIdle,
		keepAliveInterval: DefaultKeepAliveInterval,
		onMessage:         gkbus.DefaultOnMessage,
	}
	c.onError = func(err error) {
		c.onMessage(err.Error())
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) debugf(format string, v ...any) {
	if c.debug {
		c.onMessage(fmt.Sprintf(format, v...))
	}
}

func (c *Client) Transport() transport.Transport {
	return c.tr
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// Idle returns the time since the last successful Execute.
func (c *Client) Idle() time.Duration {
	return time.Since(time.Unix(0, c.lastActivity.Load()))
}

type initOptions struct {
	keepAlive Request
	delay     time.Duration
}

type InitOption func(*initOptions)

// WithKeepAlive sends cmd whenever the session has been idle for delay.
// A zero delay selects DefaultKeepAliveDelay.
func WithKeepAlive(cmd Request, delay time.Duration) InitOption {
	return func(o *initOptions) {
		o.keepAlive = cmd
		if delay > 0 {
			o.delay = delay
		}
	}
}

// Init opens the transport and, for buses that need it, wakes the ECU
// with a fast init carrying start. The client is Ready afterwards even
// if the ECU never answered the handshake, the first request will tell.
func (c *Client) Init(ctx context.Context, start Request, opts ...InitOption) error {
	o := initOptions{delay: DefaultKeepAliveDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if err := c.tr.Open(); err != nil {
		return err
	}
	if bi, ok := c.tr.(transport.BusInitializable); ok && start != nil {
		if err := c.fastInit(ctx, bi, start); err != nil {
			return err
		}
	}
	c.touch()
	c.state.Store(int32(Ready))
	if o.keepAlive != nil {
		c.StartKeepAlive(o.keepAlive, o.delay)
	}
	return nil
}

func (c *Client) fastInit(ctx context.Context, bi transport.BusInitializable, start Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	strategies := bi.FastInitStrategies()
	if len(strategies) == 0 {
		return nil
	}
	if err := c.tr.SetTimeout(c.initTimeout); err != nil {
		return err
	}
	defer c.tr.SetTimeout(c.timeout)

	attempt := 0
	err := retry.Do(
		func() error {
			s := strategies[attempt%len(strategies)]
			attempt++
			res, err := bi.FastInit(ctx, s, PDU(start))
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return gkbus.Unrecoverable(err)
				}
				return err
			}
			c.debugf("%s", res)
			// the StartCommunication reply may or may not have been
			// drained with the response buffer, read one frame blindly
			_, err = c.tr.Receive()
			if err == nil || res.Answered() {
				return nil
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(len(strategies))),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(gkbus.IsRecoverable),
		retry.OnRetry(func(n uint, err error) {
			c.onMessage(fmt.Sprintf("fast init with %s failed: %v", strategies[int(n)%len(strategies)].Name(), err))
		}),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.onMessage(fmt.Sprintf("fast init: %v", err))
	return nil
}

// Execute sends r and waits for its response. Response pending replies
// are consumed by reading again without re-sending. A negative response
// is returned together with a *NegativeResponseError.
func (c *Client) Execute(r Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.execute(r)
}

func (c *Client) execute(r Request) (Response, error) {
	sid := r.ServiceID()
	c.debugf("-> %s % X", ServiceName(sid), r.Data())
	pdu, err := c.tr.SendAndReceive(PDU(r))
	for pending := 0; ; pending++ {
		if err != nil {
			return Response{}, err
		}
		resp, perr := ParseResponse(pdu)
		if perr != nil {
			return resp, &ProtocolViolationError{Service: sid}
		}
		c.debugf("<- %s", resp)

		switch {
		case resp.Positive(sid):
			c.touch()
			return resp, nil
		case resp.IsNegative():
			status, ok := resp.NegativeStatus()
			if !ok {
				return resp, &ProtocolViolationError{Service: sid, Status: resp.Status, Data: resp.Data}
			}
			if status != ResponsePending {
				return resp, &NegativeResponseError{Service: sid, Status: status}
			}
			if c.maxPending > 0 && pending >= c.maxPending {
				return resp, &NegativeResponseError{Service: sid, Status: status}
			}
			c.debugf("%s pending", ServiceName(sid))
			pdu, err = c.tr.Receive()
		default:
			return resp, &ProtocolViolationError{Service: sid, Status: resp.Status, Data: resp.Data}
		}
	}
}

// Close stops the keep-alive, waiting for it to exit, and closes the
// transport.
func (c *Client) Close() error {
	c.StopKeepAlive()
	c.state.Store(int32(Uninitialized))
	return c.tr.Close()
}
