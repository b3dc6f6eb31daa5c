// Package ccp implements the CAN Calibration Protocol master: CRO/DTO
// framing, the command catalogue and a request engine keeping the
// wrapping command counter.
package ccp

import (
	"fmt"
	"sync"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/transport"
)

type Client struct {
	tr transport.Transport

	mu      sync.Mutex
	counter byte

	debug        bool
	checkCounter bool
	onMessage    func(string)
	onDAQ        func(DTO)
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

// WithDAQHandler receives event and data acquisition messages that
// arrive while a command is waiting for its return message.
func WithDAQHandler(fn func(DTO)) Option {
	return func(c *Client) {
		c.onDAQ = fn
	}
}

// WithCounterCheck rejects command returns echoing another counter.
func WithCounterCheck() Option {
	return func(c *Client) {
		c.checkCounter = true
	}
}

func WithConfig(cfg *gkbus.Config) Option {
	return func(c *Client) {
		c.debug = cfg.Debug
		if cfg.OnMessage != nil {
			c.onMessage = cfg.OnMessage
		}
	}
}

func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		tr:        tr,
		onMessage: gkbus.DefaultOnMessage,
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

func (c *Client) Open() error {
	return c.tr.Open()
}

func (c *Client) Close() error {
	return c.tr.Close()
}

// Counter is the value the next CRO will carry.
func (c *Client) Counter() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

// Execute sends cmd and waits for its command return message. Any return
// code but Acknowledge yields the response and a *NegativeResponseError.
func (c *Client) Execute(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cro := cmd.CRO(c.counter)
	c.debugf("-> %s counter %d", cmd, cro.Counter)
	if _, err := c.tr.Send(cro.Bytes()); err != nil {
		return Response{}, err
	}
	// the counter is spent once the CRO is on the bus, answered or not
	c.counter++

	for {
		b, err := c.tr.Receive()
		if err != nil {
			return Response{}, err
		}
		dto, err := DecodeDTO(b)
		if err != nil {
			return Response{}, err
		}
		if !dto.CommandReturn() {
			c.debugf("<- %s", dto)
			if c.onDAQ != nil {
				c.onDAQ(dto)
			}
			continue
		}
		resp := Response{ReturnCode: dto.ReturnCode, Counter: dto.Counter, Data: dto.Data[:]}
		c.debugf("<- %s", resp)
		if c.checkCounter && dto.Counter != cro.Counter {
			return resp, &CounterMismatchError{Want: cro.Counter, Got: dto.Counter}
		}
		if !dto.ReturnCode.Success() {
			return resp, &NegativeResponseError{Command: cmd.Code(), ReturnCode: dto.ReturnCode}
		}
		return resp, nil
	}
}
