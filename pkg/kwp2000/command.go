package kwp2000

import (
	"fmt"

	"github.com/roffe/gkbus"
)

const (
	NegativeResponse   = 0x7F
	PositiveResponseOK = 0x40
)

// Request is anything that can be sent as a KWP2000 service request.
type Request interface {
	ServiceID() byte
	Data() []byte
}

// Command is an immutable service request.
type Command struct {
	sid  byte
	data []byte
}

// NewCommand copies data into a new command.
func NewCommand(sid byte, data ...byte) Command {
	return Command{sid: sid, data: append([]byte(nil), data...)}
}

func (c Command) ServiceID() byte {
	return c.sid
}

// Data returns a copy of the service parameters.
func (c Command) Data() []byte {
	return append([]byte(nil), c.data...)
}

// PDU is the service id followed by its parameters.
func (c Command) PDU() []byte {
	return PDU(c)
}

func (c Command) String() string {
	return fmt.Sprintf("%s(% X)", ServiceName(c.sid), c.data)
}

// PDU serializes any request.
func PDU(r Request) []byte {
	return append([]byte{r.ServiceID()}, r.Data()...)
}

// SubserviceCommand is a command whose first parameter byte selects a
// subservice.
type SubserviceCommand struct {
	Command
}

func NewSubserviceCommand(sid, subservice byte, data ...byte) SubserviceCommand {
	return SubserviceCommand{Command: NewCommand(sid, append([]byte{subservice}, data...)...)}
}

func (c SubserviceCommand) Subservice() byte {
	return c.data[0]
}

// Remainder returns the parameters following the subservice id.
func (c SubserviceCommand) Remainder() []byte {
	return append([]byte(nil), c.data[1:]...)
}

// WithSubservice returns a copy with the subservice replaced.
func (c SubserviceCommand) WithSubservice(subservice byte) SubserviceCommand {
	return NewSubserviceCommand(c.sid, subservice, c.data[1:]...)
}

// Response is a decoded ECU reply.
type Response struct {
	Status byte
	Data   []byte
}

// ParseResponse splits a reply PDU into status and data.
func ParseResponse(pdu []byte) (Response, error) {
	if len(pdu) == 0 {
		return Response{}, gkbus.NewArgumentError("response", "empty pdu")
	}
	return Response{Status: pdu[0], Data: append([]byte(nil), pdu[1:]...)}, nil
}

func (r Response) IsNegative() bool {
	return r.Status == NegativeResponse
}

// Positive reports whether r is the positive answer to service sid.
func (r Response) Positive(sid byte) bool {
	return r.Status == sid+PositiveResponseOK
}

// NegativeStatus returns the response code of a negative response.
func (r Response) NegativeStatus() (NegativeStatus, bool) {
	if !r.IsNegative() || len(r.Data) < 2 {
		return 0, false
	}
	return NegativeStatus(r.Data[1]), true
}

func (r Response) String() string {
	if s, ok := r.NegativeStatus(); ok {
		return fmt.Sprintf("negative response to %s: %s", ServiceName(r.Data[0]), s)
	}
	return fmt.Sprintf("0x%02X % X", r.Status, r.Data)
}
