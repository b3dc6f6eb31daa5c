package transport

import (
	"fmt"
	"time"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/pkg/capture"
	"github.com/roffe/gkbus/pkg/isotp"
)

type canBase struct {
	capturing
	port gkbus.FramePort
	txID uint32
	rxID uint32
}

// Open opens the port and restricts reception to the rx id.
func (t *canBase) Open() error {
	if err := openPort(t.port); err != nil {
		return err
	}
	if err := t.port.SetFilters([]gkbus.CANFilter{filterFor(t.rxID)}); err != nil {
		return fmt.Errorf("set filters: %w", err)
	}
	return nil
}

func (t *canBase) Close() error {
	return t.port.Close()
}

func (t *canBase) IsOpen() bool {
	return t.port.IsOpen()
}

func (t *canBase) SetTimeout(d time.Duration) error {
	return t.port.SetTimeout(d)
}

func (t *canBase) Timeout() time.Duration {
	return t.port.Timeout()
}

func (t *canBase) Port() gkbus.FramePort {
	return t.port
}

// KWPOverCAN carries KWP2000 over ISO-TP.
type KWPOverCAN struct {
	canBase
	conn *isotp.Conn
}

func NewKWPOverCAN(port gkbus.FramePort, txID, rxID uint32, opts ...Option) *KWPOverCAN {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &KWPOverCAN{
		canBase: canBase{
			capturing: capturing{buf: capture.New(o.bufferSize)},
			port:      port,
			txID:      txID,
			rxID:      rxID,
		},
		conn: isotp.New(port, isotp.Config{
			TxID:      txID,
			RxID:      rxID,
			Extended:  txID > 0x7FF,
			BlockSize: o.isotp.blockSize,
			STmin:     o.isotp.stmin,
			Padding:   o.isotp.padding,
			PadByte:   o.isotp.padByte,
		}),
	}
}

func (t *KWPOverCAN) Send(pdu []byte) (int, error) {
	if err := t.conn.Send(pdu); err != nil {
		return 0, fmt.Errorf("isotp send: %w", err)
	}
	t.outgoing(pdu)
	return len(pdu), nil
}

func (t *KWPOverCAN) Receive() ([]byte, error) {
	pdu, err := t.conn.Receive()
	if err != nil {
		return nil, err
	}
	t.incoming(pdu)
	return pdu, nil
}

func (t *KWPOverCAN) SendAndReceive(pdu []byte) ([]byte, error) {
	if _, err := t.Send(pdu); err != nil {
		return nil, err
	}
	return t.Receive()
}

// CCPOverCAN moves single 8 byte CRO and DTO frames.
type CCPOverCAN struct {
	canBase
}

func NewCCPOverCAN(port gkbus.FramePort, txID, rxID uint32, opts ...Option) *CCPOverCAN {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CCPOverCAN{
		canBase: canBase{
			capturing: capturing{buf: capture.New(o.bufferSize)},
			port:      port,
			txID:      txID,
			rxID:      rxID,
		},
	}
}

func (t *CCPOverCAN) Send(pdu []byte) (int, error) {
	if len(pdu) > 8 {
		return 0, gkbus.NewArgumentError("pdu", "%d bytes does not fit a CAN frame", len(pdu))
	}
	f := gkbus.NewFrame(t.txID, pdu)
	f.Extended = t.txID > 0x7FF
	n, err := t.port.WriteFrame(f)
	if err != nil {
		return n, fmt.Errorf("can write: %w", err)
	}
	t.outgoing(pdu)
	return n, nil
}

func (t *CCPOverCAN) Receive() ([]byte, error) {
	for {
		f, err := t.port.ReadFrame()
		if err != nil {
			return nil, err
		}
		if f.ID != t.rxID {
			continue
		}
		t.incoming(f.Data)
		return f.Data, nil
	}
}

func (t *CCPOverCAN) SendAndReceive(pdu []byte) ([]byte, error) {
	if _, err := t.Send(pdu); err != nil {
		return nil, err
	}
	return t.Receive()
}
