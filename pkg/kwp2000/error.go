package kwp2000

import "fmt"

// NegativeResponseError is returned when the ECU rejected a request.
type NegativeResponseError struct {
	Service byte
	Status  NegativeStatus
}

func (e *NegativeResponseError) Error() string {
	return fmt.Sprintf("%s rejected: %s", ServiceName(e.Service), e.Status)
}

// ProtocolViolationError is returned when a reply is neither the
// positive response to the request nor a negative response.
type ProtocolViolationError struct {
	Service byte
	Status  byte
	Data    []byte
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("unexpected response 0x%02X to %s (want 0x%02X): % X", e.Status, ServiceName(e.Service), e.Service+PositiveResponseOK, e.Data)
}
