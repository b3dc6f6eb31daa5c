package ccp

import "fmt"

// Category groups return codes by the action they call for.
type Category int

const (
	Success Category = iota
	// Warning, C0.
	Warning
	// Spurious (busy, comm error), C1. Wait for ACK or timeout.
	Spurious
	// Resolvable (temporary power loss), C2. Reinitialize.
	Resolvable
	// Unresolvable (setup, overload), C3. Terminate.
	Unresolvable
)

func (c Category) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Warning:
		return "WARNING"
	case Spurious:
		return "SPURIOUS"
	case Resolvable:
		return "RESOLVABLE"
	}
	return "UNRESOLVABLE"
}

type ReturnCode byte

const (
	Acknowledge          ReturnCode = 0x00
	DAQProcessorOverload ReturnCode = 0x01
	CommandProcessorBusy ReturnCode = 0x10
	DAQProcessorBusy     ReturnCode = 0x11
	InternalTimeout      ReturnCode = 0x12
	KeyRequest           ReturnCode = 0x18
	SessionStatusRequest ReturnCode = 0x19
	ColdStartRequest     ReturnCode = 0x20
	CalDataInitRequest   ReturnCode = 0x21
	DAQListInitRequest   ReturnCode = 0x22
	CodeUpdateRequest    ReturnCode = 0x23
	UnknownCommand       ReturnCode = 0x30
	CommandSyntax        ReturnCode = 0x31
	ParametersOutOfRange ReturnCode = 0x32
	AccessDenied         ReturnCode = 0x33
	Overload             ReturnCode = 0x34
	AccessLocked         ReturnCode = 0x35
	ResourceNotAvailable ReturnCode = 0x36
)

type returnCodeInfo struct {
	name     string
	category Category
}

var returnCodes = map[ReturnCode]returnCodeInfo{
	Acknowledge:          {"ACKNOWLEDGE", Success},
	DAQProcessorOverload: {"DAQ_PROCESSOR_OVERLOAD", Warning},
	CommandProcessorBusy: {"COMMAND_PROCESSOR_BUSY", Spurious},
	DAQProcessorBusy:     {"DAQ_PROCESSOR_BUSY", Spurious},
	InternalTimeout:      {"INTERNAL_TIMEOUT", Spurious},
	KeyRequest:           {"KEY_REQUEST", Spurious},
	SessionStatusRequest: {"SESSION_STATUS_REQUEST", Spurious},
	ColdStartRequest:     {"COLD_START_REQUEST", Resolvable},
	CalDataInitRequest:   {"CAL_DATA_INIT_REQUEST", Resolvable},
	DAQListInitRequest:   {"DAQ_LIST_INIT_REQUEST", Resolvable},
	CodeUpdateRequest:    {"CODE_UPDATE_REQUEST", Resolvable},
	UnknownCommand:       {"UNKNOWN_COMMAND", Unresolvable},
	CommandSyntax:        {"COMMAND_SYNTAX", Unresolvable},
	ParametersOutOfRange: {"PARAMETERS_OUT_OF_RANGE", Unresolvable},
	AccessDenied:         {"ACCESS_DENIED", Unresolvable},
	Overload:             {"OVERLOAD", Unresolvable},
	AccessLocked:         {"ACCESS_LOCKED", Unresolvable},
	ResourceNotAvailable: {"RESOURCE_NOT_AVAILABLE", Unresolvable},
}

// UnknownReturnCode is the name reported for codes outside the table.
const UnknownReturnCode = "UNKNOWN"

func (r ReturnCode) Name() string {
	if info, ok := returnCodes[r]; ok {
		return info.name
	}
	return UnknownReturnCode
}

// Category of r. Unlisted codes are treated as Unresolvable.
func (r ReturnCode) Category() Category {
	if info, ok := returnCodes[r]; ok {
		return info.category
	}
	return Unresolvable
}

func (r ReturnCode) Success() bool {
	return r == Acknowledge
}

func (r ReturnCode) String() string {
	return fmt.Sprintf("%s (0x%02X, %s)", r.Name(), byte(r), r.Category())
}
