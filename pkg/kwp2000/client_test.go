package kwp2000

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roffe/gkbus"
	"github.com/roffe/gkbus/adapter/virtual"
	"github.com/roffe/gkbus/pkg/capture"
	"github.com/roffe/gkbus/pkg/fastinit"
	"github.com/roffe/gkbus/pkg/kline"
	"github.com/roffe/gkbus/pkg/transport"
)

// scriptedTransport answers every Send with the PDUs returned by respond.
type scriptedTransport struct {
	mu      sync.Mutex
	open    bool
	respond func(pdu []byte) [][]byte
	queue   [][]byte
	writes  [][]byte
	reads   int
	timeout time.Duration
	buf     *capture.Buffer
}

func newScripted(respond func(pdu []byte) [][]byte) *scriptedTransport {
	return &scriptedTransport{respond: respond, buf: capture.New(capture.Unbounded), timeout: gkbus.DefaultTimeout}
}

func (s *scriptedTransport) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	return nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

func (s *scriptedTransport) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *scriptedTransport) Send(pdu []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, append([]byte(nil), pdu...))
	if s.respond != nil {
		s.queue = append(s.queue, s.respond(pdu)...)
	}
	return len(pdu), nil
}

func (s *scriptedTransport) Receive() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.queue) == 0 {
		return nil, &gkbus.TimeoutError{Op: "scripted read", Timeout: s.timeout}
	}
	pdu := s.queue[0]
	s.queue = s.queue[1:]
	return pdu, nil
}

func (s *scriptedTransport) SendAndReceive(pdu []byte) ([]byte, error) {
	if _, err := s.Send(pdu); err != nil {
		return nil, err
	}
	return s.Receive()
}

func (s *scriptedTransport) SetTimeout(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
	return nil
}

func (s *scriptedTransport) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

func (s *scriptedTransport) Buffer() *capture.Buffer { return s.buf }

func (s *scriptedTransport) counts() (writes, reads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes), s.reads
}

func quiet() Option {
	return WithOnMessage(func(string) {})
}

func TestExecuteResponsePending(t *testing.T) {
	tr := newScripted(func([]byte) [][]byte {
		return [][]byte{{0x7F, 0x1A, 0x78}, {0x7F, 0x1A, 0x78}, {0x5A, 0x8C, 0x01, 0x02}}
	})
	c := New(tr, quiet())
	resp, err := c.Execute(ReadEcuIdentification(IdentHardwareNumber))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != 0x5A || !bytes.Equal(resp.Data, []byte{0x8C, 0x01, 0x02}) {
		t.Fatalf("unexpected response %v", resp)
	}
	if w, r := tr.counts(); w != 1 || r != 3 {
		t.Fatalf("writes %d reads %d, want 1 and 3", w, r)
	}
}

func TestExecuteMaxPending(t *testing.T) {
	tr := newScripted(func([]byte) [][]byte {
		return [][]byte{{0x7F, 0x31, 0x78}, {0x7F, 0x31, 0x78}, {0x7F, 0x31, 0x78}}
	})
	c := New(tr, quiet(), WithMaxPending(1))
	_, err := c.Execute(StartRoutineByLocalIdentifier(0x01))
	var nre *NegativeResponseError
	if !errors.As(err, &nre) || nre.Status != ResponsePending {
		t.Fatalf("expected pending NegativeResponseError, got %v", err)
	}
}

func TestExecuteClassification(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
		check func(t *testing.T, resp Response, err error)
	}{
		{"positive", []byte{0x50, 0x89}, func(t *testing.T, resp Response, err error) {
			if err != nil || resp.Status != 0x50 {
				t.Fatalf("got %v %v", resp, err)
			}
		}},
		{"negative", []byte{0x7F, 0x10, 0x11}, func(t *testing.T, resp Response, err error) {
			var nre *NegativeResponseError
			if !errors.As(err, &nre) {
				t.Fatalf("expected NegativeResponseError, got %v", err)
			}
			if nre.Status != ServiceNotSupported || nre.Service != SIDStartDiagnosticSession {
				t.Fatalf("unexpected error %+v", nre)
			}
			if !resp.IsNegative() {
				t.Fatalf("response not returned with error")
			}
		}},
		{"short negative", []byte{0x7F, 0x10}, func(t *testing.T, _ Response, err error) {
			var pve *ProtocolViolationError
			if !errors.As(err, &pve) {
				t.Fatalf("expected ProtocolViolationError, got %v", err)
			}
		}},
		{"wrong service", []byte{0x51, 0x01}, func(t *testing.T, _ Response, err error) {
			var pve *ProtocolViolationError
			if !errors.As(err, &pve) || pve.Status != 0x51 {
				t.Fatalf("expected ProtocolViolationError, got %v", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newScripted(func([]byte) [][]byte { return [][]byte{tt.reply} })
			c := New(tr, quiet())
			resp, err := c.Execute(StartDiagnosticSession(SessionStandby))
			tt.check(t, resp, err)
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	c := New(newScripted(nil), quiet())
	if _, err := c.Execute(TesterPresent(ResponseRequired)); !gkbus.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func kwpECU(t *testing.T, startReplies int) (*virtual.KLine, *int) {
	t.Helper()
	port := virtual.NewKLine()
	starts := 0
	startComm, _ := kline.Encode(kline.Address(0x11, 0xF1), []byte{SIDStartCommunication})
	port.Responder = func(data []byte) []byte {
		if bytes.Equal(data, startComm) {
			starts++
			if starts <= startReplies {
				return nil
			}
			reply, _ := kline.Encode(kline.Address(0xF1, 0x11), []byte{0xC1, 0xEF, 0x8F})
			return reply
		}
		if len(data) > 4 && data[3] == SIDReadEcuIdentification {
			reply, _ := kline.Encode(kline.Address(0xF1, 0x11), []byte{0x5A, data[4], 'G', 'K'})
			return reply
		}
		return nil
	}
	return port, &starts
}

func TestInitKLine(t *testing.T) {
	port, starts := kwpECU(t, 0)
	tr := transport.NewKLine(port, kline.Address(0x11, 0xF1), kline.Address(0xF1, 0x11))
	c := New(tr, quiet(), WithFastInitRetryDelay(0))
	if err := c.Init(context.Background(), StartCommunication()); err != nil {
		t.Fatal(err)
	}
	if c.State() != Ready {
		t.Fatalf("state %s", c.State())
	}
	if *starts != 1 {
		t.Fatalf("start communication sent %d times", *starts)
	}
	if port.Timeout() != gkbus.DefaultTimeout {
		t.Fatalf("timeout not restored: %s", port.Timeout())
	}
	resp, err := c.Execute(ReadEcuIdentification(IdentHardwareNumber))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp.Data, []byte{0x8C, 'G', 'K'}) {
		t.Fatalf("got % X", resp.Data)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if port.IsOpen() {
		t.Fatal("port left open")
	}
}

func TestInitFallsBackAfterTimeout(t *testing.T) {
	port, starts := kwpECU(t, 1)
	tr := transport.NewKLine(port, kline.Address(0x11, 0xF1), kline.Address(0xF1, 0x11))
	c := New(tr, quiet(), WithFastInitRetryDelay(0))
	if err := c.Init(context.Background(), StartCommunication()); err != nil {
		t.Fatal(err)
	}
	if *starts != 2 {
		t.Fatalf("start communication sent %d times, want 2", *starts)
	}
	if got := port.Baudrates(); len(got) == 0 || got[0] != fastinit.BitBangBaudrate {
		t.Fatalf("bitbang strategy not used, baud history %v", got)
	}
}

func TestInitReadyWithoutAnswer(t *testing.T) {
	port, _ := kwpECU(t, 10)
	tr := transport.NewKLine(port, kline.Address(0x11, 0xF1), kline.Address(0xF1, 0x11))
	var msgs []string
	c := New(tr, WithOnMessage(func(s string) { msgs = append(msgs, s) }), WithFastInitRetryDelay(0))
	if err := c.Init(context.Background(), StartCommunication()); err != nil {
		t.Fatal(err)
	}
	if c.State() != Ready {
		t.Fatalf("state %s", c.State())
	}
	if len(msgs) == 0 {
		t.Fatal("failed handshake was not reported")
	}
}

func TestInitOpenError(t *testing.T) {
	port := virtual.NewKLine()
	port.OpenErr = errors.New("busy")
	c := New(transport.NewKLine(port, 0x11F1, 0xF111), quiet())
	var opErr *gkbus.OpeningPortError
	if err := c.Init(context.Background(), StartCommunication()); !errors.As(err, &opErr) {
		t.Fatalf("expected OpeningPortError, got %v", err)
	}
	if c.State() != Uninitialized {
		t.Fatalf("state %s", c.State())
	}
}

func testerPresentECU() func([]byte) [][]byte {
	return func(pdu []byte) [][]byte {
		if pdu[0] == SIDTesterPresent {
			return [][]byte{{0x7E}}
		}
		return [][]byte{{pdu[0] + 0x40}}
	}
}

func TestKeepAliveFiresWhenIdle(t *testing.T) {
	tr := newScripted(testerPresentECU())
	c := New(tr, quiet(), WithKeepAliveInterval(5*time.Millisecond))
	err := c.Init(context.Background(), nil, WithKeepAlive(TesterPresent(ResponseRequired), 20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if w, _ := tr.counts(); w >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("keep-alive never sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	w, _ := tr.counts()
	time.Sleep(30 * time.Millisecond)
	if after, _ := tr.counts(); after != w {
		t.Fatalf("keep-alive still running after Close: %d -> %d", w, after)
	}
	if c.KeepAliveRunning() {
		t.Fatal("keep-alive reported running")
	}
}

func TestKeepAliveSkippedWhileBusy(t *testing.T) {
	tr := newScripted(testerPresentECU())
	c := New(tr, quiet(), WithKeepAliveInterval(5*time.Millisecond))
	c.Init(context.Background(), nil, WithKeepAlive(TesterPresent(ResponseRequired), time.Hour))
	defer c.Close()
	for i := 0; i < 5; i++ {
		if _, err := c.Execute(ReadDataByLocalIdentifier(0x01)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, w := range tr.writes {
		if w[0] == SIDTesterPresent {
			t.Fatal("keep-alive sent while session was active")
		}
	}
}

func TestKeepAliveStopsOnNegativeResponse(t *testing.T) {
	tr := newScripted(func(pdu []byte) [][]byte {
		return [][]byte{{0x7F, pdu[0], 0x11}}
	})
	errs := make(chan error, 1)
	c := New(tr, quiet(), WithKeepAliveInterval(5*time.Millisecond), WithOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	}))
	c.Init(context.Background(), nil, WithKeepAlive(TesterPresent(ResponseRequired), time.Millisecond))
	defer c.Close()
	select {
	case err := <-errs:
		var nre *NegativeResponseError
		if !errors.As(err, &nre) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive error not reported")
	}
	deadline := time.Now().Add(time.Second)
	for c.KeepAliveRunning() {
		if time.Now().After(deadline) {
			t.Fatal("keep-alive still running")
		}
		time.Sleep(time.Millisecond)
	}
}
