package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/capture"
	"github.com/roffe/gkbus/pkg/fastinit"
	"github.com/roffe/gkbus/pkg/kline"
)

// KLine carries KWP2000 over an ISO 14230 K-Line.
type KLine struct {
	capturing
	port       gkbus.StreamPort
	txID       uint16
	dec        *kline.Decoder
	strategies []fastinit.Strategy
	timing     fastinit.Timing
	onMessage  func(string)
}

// NewKLine creates a K-Line transport. txID is written in every request
// header, rxID is the header id expected in replies.
func NewKLine(port gkbus.StreamPort, txID, rxID uint16, opts ...Option) *KLine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &KLine{
		capturing:  capturing{buf: capture.New(o.bufferSize)},
		port:       port,
		txID:       txID,
		strategies: o.strategies,
		timing:     fastinit.DefaultTiming(o.timingOffset),
		onMessage:  o.onMessage,
	}
	t.dec = &kline.Decoder{
		RxID:           rxID,
		VerifyChecksum: o.verifyChecksum,
		OnSkip: func(f kline.Frame) {
			t.onMessage(fmt.Sprintf("dropped frame for 0x%04X: % X", f.ID, f.Payload))
		},
	}
	return t
}

func (t *KLine) Open() error {
	return openPort(t.port)
}

func (t *KLine) Close() error {
	return t.port.Close()
}

func (t *KLine) IsOpen() bool {
	return t.port.IsOpen()
}

func (t *KLine) SetTimeout(d time.Duration) error {
	return t.port.SetTimeout(d)
}

func (t *KLine) Timeout() time.Duration {
	return t.port.Timeout()
}

func (t *KLine) Port() gkbus.StreamPort {
	return t.port
}

func (t *KLine) Send(pdu []byte) (int, error) {
	frame, err := kline.Encode(t.txID, pdu)
	if err != nil {
		return 0, err
	}
	n, err := t.port.Write(frame)
	if err != nil {
		return n, fmt.Errorf("k-line write: %w", err)
	}
	t.outgoing(frame)
	return n, nil
}

func (t *KLine) Receive() ([]byte, error) {
	f, err := t.dec.Decode(t.port)
	if err != nil {
		return nil, err
	}
	t.incoming(f.Payload)
	return f.Payload, nil
}

func (t *KLine) SendAndReceive(pdu []byte) ([]byte, error) {
	if _, err := t.Send(pdu); err != nil {
		return nil, err
	}
	return t.Receive()
}

func (t *KLine) FastInitStrategies() []fastinit.Strategy {
	return t.strategies
}

// FastInit wakes the bus with s and sends pdu, normally StartCommunication.
func (t *KLine) FastInit(ctx context.Context, s fastinit.Strategy, pdu []byte) (fastinit.Result, error) {
	if err := ctx.Err(); err != nil {
		return fastinit.Result{}, err
	}
	line, ok := t.port.(fastinit.Line)
	if !ok {
		return fastinit.Result{Strategy: s.Name()}, fastinit.ErrUnsupported
	}
	frame, err := kline.Encode(t.txID, pdu)
	if err != nil {
		return fastinit.Result{}, err
	}
	res, err := fastinit.Run(line, s, frame, t.timing)
	if err != nil {
		return res, err
	}
	t.outgoing(frame)
	return res, nil
}
