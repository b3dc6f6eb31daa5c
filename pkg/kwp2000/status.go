package kwp2000

import "fmt"

// NegativeStatus is the response code carried by a 0x7F negative response.
type NegativeStatus byte

const (
	GeneralReject                                NegativeStatus = 0x10
	ServiceNotSupported                          NegativeStatus = 0x11
	SubFunctionNotSupportedInvalidFormat         NegativeStatus = 0x12
	IncorrectMessageLengthOrInvalidFormat        NegativeStatus = 0x13
	ResponseTooLong                              NegativeStatus = 0x14
	BusyRepeatRequest                            NegativeStatus = 0x21
	ConditionsNotCorrectOrRequestSequenceError   NegativeStatus = 0x22
	RoutineNotComplete                           NegativeStatus = 0x23
	RequestSequenceError                         NegativeStatus = 0x24
	RequestOutOfRange                            NegativeStatus = 0x31
	SecurityAccessDenied                         NegativeStatus = 0x33
	InvalidKey                                   NegativeStatus = 0x35
	ExceedNumberOfAttempts                       NegativeStatus = 0x36
	RequiredTimeDelayNotExpired                  NegativeStatus = 0x37
	DownloadNotAccepted                          NegativeStatus = 0x40
	ImproperDownloadType                         NegativeStatus = 0x41
	CantDownloadToSpecifiedAddress               NegativeStatus = 0x42
	CantDownloadRequestedNumberOfBytes           NegativeStatus = 0x43
	UploadNotAccepted                            NegativeStatus = 0x50
	ImproperUploadType                           NegativeStatus = 0x51
	CantUploadFromSpecifiedAddress               NegativeStatus = 0x52
	CantUploadRequestedNumberOfBytes             NegativeStatus = 0x53
	UploadDownloadNotAccepted                    NegativeStatus = 0x70
	TransferSuspended                            NegativeStatus = 0x71
	GeneralProgrammingFailure                    NegativeStatus = 0x72
	WrongBlockSequenceCounter                    NegativeStatus = 0x73
	IllegalAddressInBlockTransfer                NegativeStatus = 0x74
	IllegalByteCountInBlockTransfer              NegativeStatus = 0x75
	IllegalBlockTransferType                     NegativeStatus = 0x76
	BlockTransferDataChecksumError               NegativeStatus = 0x77
	ResponsePending                              NegativeStatus = 0x78
	IncorrectByteCountDuringBlockTransfer        NegativeStatus = 0x79
	SubFunctionNotSupportedInActiveSession       NegativeStatus = 0x7E
	ServiceNotSupportedInCurrentSession          NegativeStatus = 0x7F
	ServiceNotSupportedInActiveDiagnosticSession NegativeStatus = 0x80
	RPMTooHigh                                   NegativeStatus = 0x81
	RPMTooLow                                    NegativeStatus = 0x82
	EngineIsRunning                              NegativeStatus = 0x83
	EngineIsNotRunning                           NegativeStatus = 0x84
	EngineRunTimeTooLow                          NegativeStatus = 0x85
	TemperatureTooHigh                           NegativeStatus = 0x86
	TemperatureTooLow                            NegativeStatus = 0x87
	VehicleSpeedTooHigh                          NegativeStatus = 0x88
	VehicleSpeedTooLow                           NegativeStatus = 0x89
	ThrottlePedalTooHigh                         NegativeStatus = 0x8A
	ThrottlePedalTooLow                          NegativeStatus = 0x8B
	TransmissionRangeNotInNeutral                NegativeStatus = 0x8C
	TransmissionRangeNotInGear                   NegativeStatus = 0x8D
	BrakeSwitchNotClosed                         NegativeStatus = 0x8F
	ShifterLeverNotInPark                        NegativeStatus = 0x90
	TorqueConverterClutchLocked                  NegativeStatus = 0x91
	VoltageTooHigh                               NegativeStatus = 0x92
	VoltageTooLow                                NegativeStatus = 0x93
	DataDecompressionFailed                      NegativeStatus = 0x9A
	DataDecryptionFailed                         NegativeStatus = 0x9B
	ECUNotResponding                             NegativeStatus = 0xA0
	ECUAddressUnknown                            NegativeStatus = 0xA1
)

// UnknownStatus is the name reported for codes outside the table.
const UnknownStatus = "UNKNOWN"

type statusText struct {
	name    string
	message string
}

var statusTable = map[NegativeStatus]statusText{
	GeneralReject:                                {"GENERAL_REJECT", "General Reject"},
	ServiceNotSupported:                          {"SERVICE_NOT_SUPPORTED", "Service Not Supported"},
	SubFunctionNotSupportedInvalidFormat:         {"SUB_FUNCTION_NOT_SUPPORTED_INVALID_FORMAT", "Sub Function Not Supported / Invalid Format"},
	IncorrectMessageLengthOrInvalidFormat:        {"INCORRECT_MESSAGE_LENGTH_OR_INVALID_FORMAT", "Incorrect message length or invalid format"},
	ResponseTooLong:                              {"RESPONSE_TOO_LONG", "Response too long"},
	BusyRepeatRequest:                            {"BUSY_REPEAT_REQUEST", "Busy / Repeat Request"},
	ConditionsNotCorrectOrRequestSequenceError:   {"CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR", "Conditions Not Correct Or Request Sequence Error"},
	RoutineNotComplete:                           {"ROUTINE_NOT_COMPLETE", "Routine Not Complete"},
	RequestSequenceError:                         {"REQUEST_SEQUENCE_ERROR", "Request sequence error"},
	RequestOutOfRange:                            {"REQUEST_OUT_OF_RANGE", "Request out of range"},
	SecurityAccessDenied:                         {"SECURITY_ACCESS_DENIED_SECURITY_ACCESS_REQUESTED", "Security Access Denied / Security Access Requested"},
	InvalidKey:                                   {"INVALID_KEY", "Invalid Key"},
	ExceedNumberOfAttempts:                       {"EXCEED_NUMBER_OF_ATTEMPTS", "Exceed number of attempts"},
	RequiredTimeDelayNotExpired:                  {"REQUIRED_TIME_DELAY_NOT_EXPIRED", "Required time delay not expired"},
	DownloadNotAccepted:                          {"DOWNLOAD_NOT_ACCEPTED", "Download not accepted"},
	ImproperDownloadType:                         {"IMPROPER_DOWNLOAD_TYPE", "Improper download type"},
	CantDownloadToSpecifiedAddress:               {"CANT_DOWNLOAD_TO_SPECIFIC_ADDRESS", "Can't download to specific address"},
	CantDownloadRequestedNumberOfBytes:           {"CANT_DOWNLOAD_REQUESTED_NUMBER_OF_BYTES", "Can't download requested number of bytes"},
	UploadNotAccepted:                            {"UPLOAD_NOT_ACCEPTED", "Upload not accepted"},
	ImproperUploadType:                           {"IMPROPER_UPLOAD_TYPE", "Improper upload type"},
	CantUploadFromSpecifiedAddress:               {"CANT_UPLOAD_FROM_SPECIFIED_ADDRESS", "Can't upload from specified address"},
	CantUploadRequestedNumberOfBytes:             {"CANT_UPLOAD_REQUESTED_NUMBER_OF_BYTES", "Can't upload requested number of bytes"},
	UploadDownloadNotAccepted:                    {"UPLOAD_DOWNLOAD_NOT_ACCEPTED", "Upload/download not accepted"},
	TransferSuspended:                            {"TRANSFER_SUSPENDED", "Transfer suspended"},
	GeneralProgrammingFailure:                    {"GENERAL_PROGRAMMING_FAILURE", "General programming failure"},
	WrongBlockSequenceCounter:                    {"WRONG_BLOCK_SEQUENCE_COUNTER", "Wrong block sequence counter"},
	IllegalAddressInBlockTransfer:                {"ILLEGAL_ADDRESS_IN_BLOCK_TRANSFER", "Illegal address in block transfer"},
	IllegalByteCountInBlockTransfer:              {"ILLEGAL_BYTE_COUNT_IN_BLOCK_TRANSFER", "Illegal byte count in block transfer"},
	IllegalBlockTransferType:                     {"ILLEGAL_BLOCK_TRANSFER_TYPE", "Illegal block transfer type"},
	BlockTransferDataChecksumError:               {"BLOCK_TRANSFER_DATA_CHECKSUM_ERROR", "Block transfer data checksum error"},
	ResponsePending:                              {"REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING", "Request correctly received / Response pending"},
	IncorrectByteCountDuringBlockTransfer:        {"INCORRECT_BYTE_COUNT_DURING_BLOCK_TRANSFER", "Incorrect byte count during block transfer"},
	SubFunctionNotSupportedInActiveSession:       {"SUBFUNCTION_NOT_SUPPORTED_IN_ACTIVE_SESSION", "Subfunction not supported in active session"},
	ServiceNotSupportedInCurrentSession:          {"SERVICE_NOT_SUPPORTED_IN_CURRENT_SESSION", "Service not supported in current session"},
	ServiceNotSupportedInActiveDiagnosticSession: {"SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION", "Service not supported in active diagnostic session"},
	RPMTooHigh:                                   {"RPM_TOO_HIGH", "RPM too high"},
	RPMTooLow:                                    {"RPM_TOO_LOW", "RPM too low"},
	EngineIsRunning:                              {"ENGINE_IS_RUNNING", "Engine is running"},
	EngineIsNotRunning:                           {"ENGINE_IS_NOT_RUNNING", "Engine is not running"},
	EngineRunTimeTooLow:                          {"ENGINE_RUN_TIME_TOO_LOW", "Engine run time too low"},
	TemperatureTooHigh:                           {"TEMPERATURE_TOO_HIGH", "Temperature too high"},
	TemperatureTooLow:                            {"TEMPERATURE_TOO_LOW", "Temperature too low"},
	VehicleSpeedTooHigh:                          {"VEHICLE_SPEED_TOO_HIGH", "Vehicle speed too high"},
	VehicleSpeedTooLow:                           {"VEHICLE_SPEED_TOO_LOW", "Vehicle speed too low"},
	ThrottlePedalTooHigh:                         {"THROTTLE_PEDAL_TOO_HIGH", "Throttle/pedal too high"},
	ThrottlePedalTooLow:                          {"THROTTLE_PEDAL_TOO_LOW", "Throttle/pedal too low"},
	TransmissionRangeNotInNeutral:                {"TRANSMISSION_RANGE_NOT_IN_NEUTRAL", "Transmission range not in neutral"},
	TransmissionRangeNotInGear:                   {"TRANSMISSION_RANGE_NOT_IN_GEAR", "Transmission range not in gear"},
	BrakeSwitchNotClosed:                         {"BRAKE_SWITCH_ES_NOT_CLOSED_PEDAL_NOT_APPLIED", "Brake switch(es) not closed (pedal not applied)"},
	ShifterLeverNotInPark:                        {"SHIFTER_LEVER_NOT_IN_PARK", "Shifter lever not in park"},
	TorqueConverterClutchLocked:                  {"TORQUE_CONVERTER_CLUTCH_LOCKED", "Torque converter clutch locked"},
	VoltageTooHigh:                               {"VOLTAGE_TOO_HIGH", "Voltage too high"},
	VoltageTooLow:                                {"VOLTAGE_TOO_LOW", "Voltage too low"},
	DataDecompressionFailed:                      {"DATA_DECOMPRESSION_FAILED", "Data decompression failed"},
	DataDecryptionFailed:                         {"DATA_DECRYPTION_FAILED", "Data decryption failed"},
	ECUNotResponding:                             {"ECU_NOT_RESPONDING", "ECU not responding"},
	ECUAddressUnknown:                            {"ECU_ADDRESS_UNKNOWN", "ECU address unknown"},
}

// Known reports whether s is a listed negative response code.
func (s NegativeStatus) Known() bool {
	_, ok := statusTable[s]
	return ok
}

func (s NegativeStatus) Name() string {
	if t, ok := statusTable[s]; ok {
		return t.name
	}
	return UnknownStatus
}

func (s NegativeStatus) Message() string {
	if t, ok := statusTable[s]; ok {
		return t.message
	}
	return "Unknown"
}

func (s NegativeStatus) String() string {
	return fmt.Sprintf("%s (0x%02X)", s.Message(), byte(s))
}
