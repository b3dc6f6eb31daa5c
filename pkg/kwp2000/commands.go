package kwp2000

import (
	"fmt"

	"github.com/roffe/gkbus"
)

const (
	SIDReadStatusOfDTC                        = 0x01
	SIDStartDiagnosticSession                 = 0x10
	SIDECUReset                               = 0x11
	SIDClearDiagnosticInformation             = 0x14
	SIDReadDTCsByStatus                       = 0x18
	SIDReadEcuIdentification                  = 0x1A
	SIDStopDiagnosticSession                  = 0x20
	SIDReadDataByLocalIdentifier              = 0x21
	SIDReadDataByIdentifier                   = 0x22
	SIDReadMemoryByAddress                    = 0x23
	SIDSecurityAccess                         = 0x27
	SIDDisableNormalMessageTransmission       = 0x28
	SIDEnableNormalMessageTransmission        = 0x29
	SIDDynamicallyDefineLocalIdentifier       = 0x2C
	SIDWriteDataByIdentifier                  = 0x2E
	SIDInputOutputControlByLocalIdentifier    = 0x30
	SIDStartRoutineByLocalIdentifier          = 0x31
	SIDStopRoutineByLocalIdentifier           = 0x32
	SIDRequestRoutineResultsByLocalIdentifier = 0x33
	SIDRequestDownload                        = 0x34
	SIDRequestUpload                          = 0x35
	SIDTransferData                           = 0x36
	SIDRequestTransferExit                    = 0x37
	SIDWriteDataByLocalIdentifier             = 0x3B
	SIDWriteMemoryByAddress                   = 0x3D
	SIDTesterPresent                          = 0x3E
	SIDStartCommunication                     = 0x81
	SIDStopCommunication                      = 0x82
	SIDAccessTimingParameters                 = 0x83
	SIDControlDTCSetting                      = 0x85
	SIDResponseOnEvent                        = 0x86
)

var serviceNames = map[byte]string{
	SIDReadStatusOfDTC:                        "ReadStatusOfDTC",
	SIDStartDiagnosticSession:                 "StartDiagnosticSession",
	SIDECUReset:                               "ECUReset",
	SIDClearDiagnosticInformation:             "ClearDiagnosticInformation",
	SIDReadDTCsByStatus:                       "ReadDTCsByStatus",
	SIDReadEcuIdentification:                  "ReadEcuIdentification",
	SIDStopDiagnosticSession:                  "StopDiagnosticSession",
	SIDReadDataByLocalIdentifier:              "ReadDataByLocalIdentifier",
	SIDReadDataByIdentifier:                   "ReadDataByIdentifier",
	SIDReadMemoryByAddress:                    "ReadMemoryByAddress",
	SIDSecurityAccess:                         "SecurityAccess",
	SIDDisableNormalMessageTransmission:       "DisableNormalMessageTransmission",
	SIDEnableNormalMessageTransmission:        "EnableNormalMessageTransmission",
	SIDDynamicallyDefineLocalIdentifier:       "DynamicallyDefineLocalIdentifier",
	SIDWriteDataByIdentifier:                  "WriteDataByIdentifier",
	SIDInputOutputControlByLocalIdentifier:    "InputOutputControlByLocalIdentifier",
	SIDStartRoutineByLocalIdentifier:          "StartRoutineByLocalIdentifier",
	SIDStopRoutineByLocalIdentifier:           "StopRoutineByLocalIdentifier",
	SIDRequestRoutineResultsByLocalIdentifier: "RequestRoutineResultsByLocalIdentifier",
	SIDRequestDownload:                        "RequestDownload",
	SIDRequestUpload:                          "RequestUpload",
	SIDTransferData:                           "TransferData",
	SIDRequestTransferExit:                    "RequestTransferExit",
	SIDWriteDataByLocalIdentifier:             "WriteDataByLocalIdentifier",
	SIDWriteMemoryByAddress:                   "WriteMemoryByAddress",
	SIDTesterPresent:                          "TesterPresent",
	SIDStartCommunication:                     "StartCommunication",
	SIDStopCommunication:                      "StopCommunication",
	SIDAccessTimingParameters:                 "AccessTimingParameters",
	SIDControlDTCSetting:                      "ControlDTCSetting",
	SIDResponseOnEvent:                        "ResponseOnEvent",
}

func ServiceName(sid byte) string {
	if n, ok := serviceNames[sid]; ok {
		return n
	}
	return fmt.Sprintf("Service(0x%02X)", sid)
}

type DiagnosticSession byte

const (
	SessionDefault            DiagnosticSession = 0x81
	SessionFlashReprogramming DiagnosticSession = 0x85
	SessionEngineering        DiagnosticSession = 0x86
	SessionAdjustment         DiagnosticSession = 0x87
	SessionStandby            DiagnosticSession = 0x89
	SessionPassive            DiagnosticSession = 0x90
	SessionExtendedDiagnostic DiagnosticSession = 0x92
)

type ResetMode byte

const (
	PowerOnReset           ResetMode = 0x01
	NonvolatileMemoryReset ResetMode = 0x82
)

type ResponseType byte

const (
	ResponseRequired    ResponseType = 0x01
	ResponseNotRequired ResponseType = 0x02
)

type InputOutputControlParameter byte

const (
	ReturnControlToECU  InputOutputControlParameter = 0x00
	ReportCurrentState  InputOutputControlParameter = 0x01
	ResetToDefault      InputOutputControlParameter = 0x04
	FreezeCurrentState  InputOutputControlParameter = 0x05
	ShortTermAdjustment InputOutputControlParameter = 0x07
	LongTermAdjustment  InputOutputControlParameter = 0x08
)

type CompressionType byte

const Uncompressed CompressionType = 0x0

type EncryptionType byte

const Unencrypted EncryptionType = 0x0

// Common ReadEcuIdentification options.
const (
	IdentECUIdentification      = 0x80
	IdentVehicleManufacturerECU = 0x8A
	IdentHardwareNumber         = 0x8C
	IdentSoftwareNumber         = 0x91
	IdentCalibrationDate        = 0x99
)

func StartCommunication() Command { return NewCommand(SIDStartCommunication) }

func StopCommunication() Command { return NewCommand(SIDStopCommunication) }

// StartDiagnosticSession enters session. Most manufacturers accept a
// second byte selecting a new baud rate, pass it as baud when needed.
func StartDiagnosticSession(session DiagnosticSession, baud ...byte) Command {
	data := []byte{byte(session)}
	if len(baud) > 0 && baud[0] != 0 {
		data = append(data, baud[0])
	}
	return NewCommand(SIDStartDiagnosticSession, data...)
}

func StopDiagnosticSession() Command { return NewCommand(SIDStopDiagnosticSession) }

func ECUReset(mode ResetMode) Command {
	return NewCommand(SIDECUReset, byte(mode))
}

func ClearDiagnosticInformation(group ...byte) Command {
	return NewCommand(SIDClearDiagnosticInformation, group...)
}

func ReadDTCsByStatus(data ...byte) Command {
	return NewCommand(SIDReadDTCsByStatus, data...)
}

func ReadStatusOfDTC(dtc byte) Command {
	return NewCommand(SIDReadStatusOfDTC, dtc)
}

func ReadEcuIdentification(identifier byte) Command {
	return NewCommand(SIDReadEcuIdentification, identifier)
}

func ReadDataByLocalIdentifier(id byte) Command {
	return NewCommand(SIDReadDataByLocalIdentifier, id)
}

func ReadDataByIdentifier(id ...byte) Command {
	return NewCommand(SIDReadDataByIdentifier, id...)
}

func address24(offset uint32) ([]byte, error) {
	if offset > 0xFFFFFF {
		return nil, gkbus.NewArgumentError("address", "0x%X does not fit in 24 bits", offset)
	}
	return []byte{byte(offset >> 16), byte(offset >> 8), byte(offset)}, nil
}

func ReadMemoryByAddress(offset uint32, size byte) (Command, error) {
	addr, err := address24(offset)
	if err != nil {
		return Command{}, err
	}
	return NewCommand(SIDReadMemoryByAddress, append(addr, size)...), nil
}

func WriteMemoryByAddress(offset uint32, data []byte) (Command, error) {
	addr, err := address24(offset)
	if err != nil {
		return Command{}, err
	}
	if len(data) > 0xFF {
		return Command{}, gkbus.NewArgumentError("data", "%d bytes exceeds 255", len(data))
	}
	return NewCommand(SIDWriteMemoryByAddress, append(append(addr, byte(len(data))), data...)...), nil
}

func transferRequest(sid byte, offset uint32, c CompressionType, e EncryptionType, size uint32) (Command, error) {
	addr, err := address24(offset)
	if err != nil {
		return Command{}, err
	}
	if size > 0xFFFFFF {
		return Command{}, gkbus.NewArgumentError("size", "0x%X does not fit in 24 bits", size)
	}
	format := byte(c)<<4 | byte(e)&0x0F
	return NewCommand(sid, append(addr, format, byte(size>>16), byte(size>>8), byte(size))...), nil
}

func RequestDownload(offset uint32, c CompressionType, e EncryptionType, size uint32) (Command, error) {
	return transferRequest(SIDRequestDownload, offset, c, e, size)
}

func RequestUpload(offset uint32, c CompressionType, e EncryptionType, size uint32) (Command, error) {
	return transferRequest(SIDRequestUpload, offset, c, e, size)
}

func TransferData(data ...byte) Command { return NewCommand(SIDTransferData, data...) }

func RequestTransferExit() Command { return NewCommand(SIDRequestTransferExit) }

func TesterPresent(rt ResponseType) Command {
	return NewCommand(SIDTesterPresent, byte(rt))
}

func DisableNormalMessageTransmission(rt ResponseType) Command {
	return NewCommand(SIDDisableNormalMessageTransmission, byte(rt))
}

func EnableNormalMessageTransmission(rt ResponseType) Command {
	return NewCommand(SIDEnableNormalMessageTransmission, byte(rt))
}

func DynamicallyDefineLocalIdentifier(data ...byte) Command {
	return NewCommand(SIDDynamicallyDefineLocalIdentifier, data...)
}

func WriteDataByIdentifier(data ...byte) Command {
	return NewCommand(SIDWriteDataByIdentifier, data...)
}

func WriteDataByLocalIdentifier(id byte, value []byte) Command {
	return NewCommand(SIDWriteDataByLocalIdentifier, append([]byte{id}, value...)...)
}

func InputOutputControlByLocalIdentifier(id byte, p InputOutputControlParameter, state ...byte) Command {
	return NewCommand(SIDInputOutputControlByLocalIdentifier, append([]byte{id, byte(p)}, state...)...)
}

func StartRoutineByLocalIdentifier(routine byte, entry ...byte) Command {
	return NewCommand(SIDStartRoutineByLocalIdentifier, append([]byte{routine}, entry...)...)
}

func StopRoutineByLocalIdentifier(routine byte, exit ...byte) Command {
	return NewCommand(SIDStopRoutineByLocalIdentifier, append([]byte{routine}, exit...)...)
}

func RequestRoutineResultsByLocalIdentifier(routine byte) Command {
	return NewCommand(SIDRequestRoutineResultsByLocalIdentifier, routine)
}

func ControlDTCSetting(data ...byte) Command { return NewCommand(SIDControlDTCSetting, data...) }

func ResponseOnEvent(data ...byte) Command { return NewCommand(SIDResponseOnEvent, data...) }

type TimingParameterIdentifier byte

const (
	ReadLimitsOfPossibleTimingParameters TimingParameterIdentifier = 0x00
	SetTimingParametersToDefaultValues   TimingParameterIdentifier = 0x01
	ReadCurrentlyActiveTimingParameters  TimingParameterIdentifier = 0x02
	SetTimingParametersToGivenValues     TimingParameterIdentifier = 0x03
)

// TimingParameters are the raw P2min..P4min bytes of
// SetTimingParametersToGivenValues.
type TimingParameters struct {
	P2Min, P2Max, P3Min, P3Max, P4Min byte
}

var timingParameterBuilders = map[TimingParameterIdentifier]func(TimingParameters) []byte{
	ReadLimitsOfPossibleTimingParameters: func(TimingParameters) []byte { return nil },
	SetTimingParametersToDefaultValues:   func(TimingParameters) []byte { return nil },
	ReadCurrentlyActiveTimingParameters:  func(TimingParameters) []byte { return nil },
	SetTimingParametersToGivenValues: func(p TimingParameters) []byte {
		return []byte{p.P2Min, p.P2Max, p.P3Min, p.P3Max, p.P4Min}
	},
}

// AccessTimingParameters builds the 0x83 request for id. p is only
// consulted by SetTimingParametersToGivenValues.
func AccessTimingParameters(id TimingParameterIdentifier, p TimingParameters) (SubserviceCommand, error) {
	build, ok := timingParameterBuilders[id]
	if !ok {
		return SubserviceCommand{}, gkbus.NewArgumentError("timing parameter identifier", "0x%02X", byte(id))
	}
	return NewSubserviceCommand(SIDAccessTimingParameters, byte(id), build(p)...), nil
}

type AccessType byte

const (
	RequestSeed AccessType = 0x01
	SendKey     AccessType = 0x02
)

var securityAccessBuilders = map[AccessType]func(key uint16) []byte{
	RequestSeed: func(uint16) []byte { return nil },
	SendKey: func(key uint16) []byte {
		return []byte{byte(key >> 8), byte(key)}
	},
}

// SecurityAccess builds a seed request or, for SendKey, carries the
// 16 bit key big endian.
func SecurityAccess(t AccessType, key uint16) (SubserviceCommand, error) {
	build, ok := securityAccessBuilders[t]
	if !ok {
		return SubserviceCommand{}, gkbus.NewArgumentError("access type", "0x%02X", byte(t))
	}
	return NewSubserviceCommand(SIDSecurityAccess, byte(t), build(key)...), nil
}

// Seed extracts the 16 bit seed from a positive RequestSeed response.
func Seed(r Response) (uint16, error) {
	if len(r.Data) < 3 {
		return 0, gkbus.NewArgumentError("seed response", "%d bytes", len(r.Data))
	}
	return uint16(r.Data[1])<<8 | uint16(r.Data[2]), nil
}
