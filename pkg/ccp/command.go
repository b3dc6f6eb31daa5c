package ccp

import (
	"fmt"

	"github.com/roffe/gkbus"
)

// Command is an immutable command receive object payload.
type Command struct {
	code byte
	data []byte
}

// NewCommand fails when data does not fit in a single CRO.
func NewCommand(code byte, data ...byte) (Command, error) {
	if len(data) > MaxCommandData {
		return Command{}, gkbus.NewArgumentError("data", "%d bytes exceeds %d", len(data), MaxCommandData)
	}
	return Command{code: code, data: append([]byte(nil), data...)}, nil
}

func mustCommand(code byte, data ...byte) Command {
	c, err := NewCommand(code, data...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Command) Code() byte {
	return c.code
}

func (c Command) Data() []byte {
	return append([]byte(nil), c.data...)
}

// CRO frames c with the given counter.
func (c Command) CRO(counter byte) CRO {
	cro := CRO{Code: c.code, Counter: counter}
	copy(cro.Data[:], c.data)
	return cro
}

func (c Command) String() string {
	return fmt.Sprintf("%s(% X)", CommandName(c.code), c.data)
}

// Response is the command return message answering a CRO.
type Response struct {
	ReturnCode ReturnCode
	Counter    byte
	Data       []byte
}

func (r Response) String() string {
	return fmt.Sprintf("%s counter %d % X", r.ReturnCode.Name(), r.Counter, r.Data)
}
