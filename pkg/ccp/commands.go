package ccp

import (
	"encoding/binary"

	"github.com/roffe/gkbus"
)

// Command codes.
const (
	CodeConnect         = 0x01
	CodeSetMTA          = 0x02
	CodeDownload        = 0x03
	CodeUpload          = 0x04
	CodeTest            = 0x05
	CodeStartStop       = 0x06
	CodeDisconnect      = 0x07
	CodeStartStopAll    = 0x08
	CodeGetActiveCalPage= 0x09
	CodeSetSessionStatus= 0x0C
	CodeGetSessionStatus= 0x0D
	CodeBuildChecksum   = 0x0E
	CodeShortUpload     = 0x0F
	CodeClearMemory     = 0x10
	CodeSelectCalPage   = 0x11
	CodeGetSeed         = 0x12
	CodeUnlock          = 0x13
	CodeGetDAQSize      = 0x14
	CodeSetDAQPtr       = 0x15
	CodeWriteDAQ        = 0x16
	CodeExchangeID      = 0x17
	CodeProgram         = 0x18
	CodeMove            = 0x19
	CodeGetCCPVersion   = 0x1B
	CodeDiagService     = 0x20
	CodeActionService   = 0x21
	CodeProgram6        = 0x22
	CodeDownload6       = 0x23
)

var commandNames = map[byte]string{
	CodeConnect:          "CONNECT",
	CodeSetMTA:           "SET_MTA",
	CodeDownload:         "DNLOAD",
	CodeUpload:           "UPLOAD",
	CodeTest:             "TEST",
	CodeStartStop:        "START_STOP",
	CodeDisconnect:       "DISCONNECT",
	CodeStartStopAll:     "START_STOP_ALL",
	CodeGetActiveCalPage: "GET_ACTIVE_CAL_PAGE",
	CodeSetSessionStatus: "SET_S_STATUS",
	CodeGetSessionStatus: "GET_S_STATUS",
	CodeBuildChecksum:    "BUILD_CHKSUM",
	CodeShortUpload:      "SHORT_UP",
	CodeClearMemory:      "CLEAR_MEMORY",
	CodeSelectCalPage:    "SELECT_CAL_PAGE",
	CodeGetSeed:          "GET_SEED",
	CodeUnlock:           "UNLOCK",
	CodeGetDAQSize:       "GET_DAQ_SIZE",
	CodeSetDAQPtr:        "SET_DAQ_PTR",
	CodeWriteDAQ:         "WRITE_DAQ",
	CodeExchangeID:       "EXCHANGE_ID",
	CodeProgram:          "PROGRAM",
	CodeMove:             "MOVE",
	CodeGetCCPVersion:    "GET_CCP_VERSION",
	CodeDiagService:      "DIAG_SERVICE",
	CodeActionService:    "ACTION_SERVICE",
	CodeProgram6:         "PROGRAM_6",
	CodeDownload6:        "DNLOAD_6",
}

func CommandName(code byte) string {
	if name, ok := commandNames[code]; ok {
		return name
	}
	return "UNKNOWN"
}

// MaxBlock is the largest block carried by a single download, upload or
// program command.
const MaxBlock = 5

type DisconnectType byte

const (
	DisconnectTemporary    DisconnectType = 0x00
	DisconnectEndOfSession DisconnectType = 0x01
)

type DataTransmissionRequest byte

const (
	TransmissionStop  DataTransmissionRequest = 0x00
	TransmissionStart DataTransmissionRequest = 0x01
)

type DataTransmissionMode byte

const (
	ModeStop    DataTransmissionMode = 0x00
	ModeStart   DataTransmissionMode = 0x01
	ModePrepare DataTransmissionMode = 0x02
)

// ResourceMask selects slave resources for GET_SEED and is reported by
// EXCHANGE_ID.
type ResourceMask byte

const (
	ResourceCAL ResourceMask = 1 << 0
	ResourceDAQ ResourceMask = 1 << 1
	ResourcePGM ResourceMask = 1 << 6
)

func (m ResourceMask) Has(r ResourceMask) bool {
	return m&r == r
}

// SessionStatus bits, LSB first.
type SessionStatus byte

const (
	SessionCAL    SessionStatus = 1 << 0
	SessionDAQ    SessionStatus = 1 << 1
	SessionResume SessionStatus = 1 << 2
	SessionStore  SessionStatus = 1 << 6
	SessionRun    SessionStatus = 1 << 7
)

func (s SessionStatus) Has(b SessionStatus) bool {
	return s&b == b
}

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func Connect(stationAddress uint16) Command {
	return mustCommand(CodeConnect, le16(stationAddress)...)
}

// ExchangeStationIdentifications makes the slave point MTA0 at its ID.
func ExchangeStationIdentifications(masterID ...byte) (Command, error) {
	return NewCommand(CodeExchangeID, masterID...)
}

func GetSeedForKey(resource ResourceMask) Command {
	return mustCommand(CodeGetSeed, byte(resource))
}

func UnlockProtection(key []byte) (Command, error) {
	return NewCommand(CodeUnlock, key...)
}

// SetMemoryTransferAddress sets MTA0 (transfers) or MTA1 (move target).
func SetMemoryTransferAddress(mta, extension byte, address uint32) (Command, error) {
	if mta > 1 {
		return Command{}, gkbus.NewArgumentError("mta", "must be 0 or 1, got %d", mta)
	}
	return NewCommand(CodeSetMTA, append([]byte{mta, extension}, le32(address)...)...)
}

func checkBlock(name string, n int) error {
	if n > MaxBlock {
		return gkbus.NewArgumentError(name, "%d exceeds %d", n, MaxBlock)
	}
	return nil
}

// DataDownload writes data at MTA0. The size byte is taken from data.
func DataDownload(data []byte) (Command, error) {
	if err := checkBlock("data", len(data)); err != nil {
		return Command{}, err
	}
	return NewCommand(CodeDownload, append([]byte{byte(len(data))}, data...)...)
}

func DataDownload6Bytes(data []byte) (Command, error) {
	return NewCommand(CodeDownload6, data...)
}

// DataUpload reads size bytes from MTA0 and advances it.
func DataUpload(size byte) (Command, error) {
	if err := checkBlock("size", int(size)); err != nil {
		return Command{}, err
	}
	return NewCommand(CodeUpload, size)
}

// ShortUpload reads size bytes from address without touching MTA0.
func ShortUpload(size, extension byte, address uint32) (Command, error) {
	if err := checkBlock("size", int(size)); err != nil {
		return Command{}, err
	}
	return NewCommand(CodeShortUpload, append([]byte{size, extension}, le32(address)...)...)
}

func SelectCalibrationPage() Command {
	return mustCommand(CodeSelectCalPage)
}

// GetSizeOfDaqList clears list and returns its ODT count. A non zero
// canID assigns the list its own identifier.
func GetSizeOfDaqList(list byte, canID uint32) Command {
	return mustCommand(CodeGetDAQSize, append([]byte{list, 0xFF}, le32(canID)...)...)
}

func SetDaqListPointer(list, odt, element byte) Command {
	return mustCommand(CodeSetDAQPtr, list, odt, element)
}

// WriteDaqListEntry describes one element of 1, 2 or 4 bytes.
func WriteDaqListEntry(size, extension byte, address uint32) (Command, error) {
	switch size {
	case 1, 2, 4:
	default:
		return Command{}, gkbus.NewArgumentError("size", "must be 1, 2 or 4, got %d", size)
	}
	return NewCommand(CodeWriteDAQ, append([]byte{size, extension}, le32(address)...)...)
}

func StartStopDataTransmission(mode DataTransmissionMode, list, lastODT, eventChannel byte, prescaler uint16) (Command, error) {
	if mode > ModePrepare {
		return Command{}, gkbus.NewArgumentError("mode", "unknown mode %d", mode)
	}
	if prescaler == 0 {
		return Command{}, gkbus.NewArgumentError("prescaler", "must be at least 1")
	}
	return NewCommand(CodeStartStop, append([]byte{byte(mode), list, lastODT, eventChannel}, le16(prescaler)...)...)
}

func Disconnect(typ DisconnectType, stationAddress uint16) Command {
	return mustCommand(CodeDisconnect, append([]byte{byte(typ), 0x00}, le16(stationAddress)...)...)
}

func SetSessionStatus(status SessionStatus) Command {
	return mustCommand(CodeSetSessionStatus, byte(status))
}

func GetSessionStatus() Command {
	return mustCommand(CodeGetSessionStatus)
}

// BuildChecksum checksums size bytes from MTA0.
func BuildChecksum(size uint32) Command {
	return mustCommand(CodeBuildChecksum, le32(size)...)
}

func ClearMemory(size uint32) Command {
	return mustCommand(CodeClearMemory, le32(size)...)
}

// Program writes data into non volatile memory at MTA0.
func Program(data []byte) (Command, error) {
	if err := checkBlock("data", len(data)); err != nil {
		return Command{}, err
	}
	return NewCommand(CodeProgram, append([]byte{byte(len(data))}, data...)...)
}

func Program6Bytes(data []byte) (Command, error) {
	return NewCommand(CodeProgram6, data...)
}

// MoveMemoryBlock copies size bytes from MTA0 to MTA1.
func MoveMemoryBlock(size uint32) Command {
	return mustCommand(CodeMove, le32(size)...)
}

func DiagnosticService(service uint16) Command {
	return mustCommand(CodeDiagService, le16(service)...)
}

func ActionService(service uint16, params ...byte) (Command, error) {
	return NewCommand(CodeActionService, append(le16(service), params...)...)
}

func TestAvailability(stationAddress uint16) Command {
	return mustCommand(CodeTest, le16(stationAddress)...)
}

func StartStopSynchronisedDataTransmission(req DataTransmissionRequest) Command {
	return mustCommand(CodeStartStopAll, byte(req))
}

func GetCurrentlyActiveCalibrationPage() Command {
	return mustCommand(CodeGetActiveCalPage)
}

func GetImplementedVersionOfCcp(major, minor byte) Command {
	return mustCommand(CodeGetCCPVersion, major, minor)
}
