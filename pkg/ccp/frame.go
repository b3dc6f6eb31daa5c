package ccp

import (
	"fmt"

	"github.com/roffe/gkbus"
)

const (
	MaxCommandData = 6
	FrameLength    = 8

	// PacketCommandReturn marks a DTO answering a CRO.
	PacketCommandReturn = 0xFF
	// PacketEvent marks an unsolicited event DTO.
	PacketEvent = 0xFE
)

// CRO is a Command Receive Object, master to slave.
type CRO struct {
	Code    byte
	Counter byte
	Data    [MaxCommandData]byte
}

func NewCRO(code, counter byte, data []byte) (CRO, error) {
	cro := CRO{Code: code, Counter: counter}
	if len(data) > MaxCommandData {
		return cro, gkbus.NewArgumentError("data", "%d bytes exceeds %d", len(data), MaxCommandData)
	}
	copy(cro.Data[:], data)
	return cro, nil
}

func (c CRO) Bytes() []byte {
	return append([]byte{c.Code, c.Counter}, c.Data[:]...)
}

// DTO is a Data Transmission Object, slave to master.
type DTO struct {
	PacketID   byte
	ReturnCode ReturnCode
	Counter    byte
	Data       [5]byte
}

// DecodeDTO parses a received frame, padding short data with zeroes.
func DecodeDTO(b []byte) (DTO, error) {
	var d DTO
	if len(b) < 3 {
		return d, fmt.Errorf("dto too short: % X", b)
	}
	d.PacketID = b[0]
	d.ReturnCode = ReturnCode(b[1])
	d.Counter = b[2]
	copy(d.Data[:], b[3:])
	return d, nil
}

// CommandReturn reports whether d answers a command.
func (d DTO) CommandReturn() bool {
	return d.PacketID == PacketCommandReturn
}

func (d DTO) String() string {
	return fmt.Sprintf("DTO pid 0x%02X %s counter %d % X", d.PacketID, d.ReturnCode, d.Counter, d.Data)
}

// EncodeCRO returns the 8 byte wire form of a CRO.
func EncodeCRO(code, counter byte, data []byte) ([]byte, error) {
	cro, err := NewCRO(code, counter, data)
	if err != nil {
		return nil, err
	}
	return cro.Bytes(), nil
}
