package ccp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/roffe/gkbus"
)

func TestBuilders(t *testing.T) {
	must := func(c Command, err error) Command {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	tests := []struct {
		name string
		cmd  Command
		code byte
		data []byte
	}{
		{"connect", Connect(0x1234), CodeConnect, []byte{0x34, 0x12}},
		{"set mta", must(SetMemoryTransferAddress(0, 0x01, 0x00012345)), CodeSetMTA, []byte{0x00, 0x01, 0x45, 0x23, 0x01, 0x00}},
		{"download", must(DataDownload([]byte{0xAA, 0xBB})), CodeDownload, []byte{0x02, 0xAA, 0xBB}},
		{"upload", must(DataUpload(4)), CodeUpload, []byte{0x04}},
		{"short upload", must(ShortUpload(5, 0, 0xDEADBEEF)), CodeShortUpload, []byte{0x05, 0x00, 0xEF, 0xBE, 0xAD, 0xDE}},
		{"daq size", GetSizeOfDaqList(1, 0x300), CodeGetDAQSize, []byte{0x01, 0xFF, 0x00, 0x03, 0x00, 0x00}},
		{"start stop", must(StartStopDataTransmission(ModePrepare, 1, 3, 2, 10)), CodeStartStop, []byte{0x02, 0x01, 0x03, 0x02, 0x0A, 0x00}},
		{"disconnect", Disconnect(DisconnectEndOfSession, 0x0039), CodeDisconnect, []byte{0x01, 0x00, 0x39, 0x00}},
		{"session status", SetSessionStatus(SessionCAL | SessionRun), CodeSetSessionStatus, []byte{0x81}},
		{"checksum", BuildChecksum(0x1000), CodeBuildChecksum, []byte{0x00, 0x10, 0x00, 0x00}},
		{"action", must(ActionService(0x0102, 0xFF)), CodeActionService, []byte{0x02, 0x01, 0xFF}},
		{"version", GetImplementedVersionOfCcp(2, 1), CodeGetCCPVersion, []byte{0x02, 0x01}},
		{"sync", StartStopSynchronisedDataTransmission(TransmissionStart), CodeStartStopAll, []byte{0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd.Code() != tt.code {
				t.Errorf("code 0x%02X, want 0x%02X", tt.cmd.Code(), tt.code)
			}
			if !bytes.Equal(tt.cmd.Data(), tt.data) {
				t.Errorf("data % X, want % X", tt.cmd.Data(), tt.data)
			}
		})
	}
}

func TestBuilderArguments(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (Command, error)
	}{
		{"oversized command", func() (Command, error) { return NewCommand(CodeUnlock, make([]byte, 7)...) }},
		{"mta number", func() (Command, error) { return SetMemoryTransferAddress(2, 0, 0) }},
		{"download block", func() (Command, error) { return DataDownload(make([]byte, 6)) }},
		{"upload size", func() (Command, error) { return DataUpload(6) }},
		{"program block", func() (Command, error) { return Program(make([]byte, 6)) }},
		{"program 6", func() (Command, error) { return Program6Bytes(make([]byte, 7)) }},
		{"daq element", func() (Command, error) { return WriteDaqListEntry(3, 0, 0) }},
		{"prescaler", func() (Command, error) { return StartStopDataTransmission(ModeStart, 0, 0, 0, 0) }},
		{"action params", func() (Command, error) { return ActionService(1, 1, 2, 3, 4, 5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			var ae *gkbus.ArgumentError
			if !errors.As(err, &ae) {
				t.Fatalf("got %v, want ArgumentError", err)
			}
		})
	}
}

func TestFrames(t *testing.T) {
	b, err := EncodeCRO(CodeUpload, 7, []byte{0x04})
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{CodeUpload, 0x07, 0x04, 0, 0, 0, 0, 0}; !bytes.Equal(b, want) {
		t.Errorf("cro % X, want % X", b, want)
	}
	if _, err := EncodeCRO(CodeUpload, 0, make([]byte, 7)); err == nil {
		t.Error("expected error for 7 data bytes")
	}

	d, err := DecodeDTO([]byte{0xFF, 0x33, 0x07, 0xAA})
	if err != nil {
		t.Fatal(err)
	}
	if !d.CommandReturn() || d.ReturnCode != AccessDenied || d.Counter != 7 || d.Data != [5]byte{0xAA} {
		t.Errorf("got %s", d)
	}
	if _, err := DecodeDTO([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected error for short dto")
	}
}

func TestReturnCodes(t *testing.T) {
	tests := []struct {
		rc   ReturnCode
		name string
		cat  Category
	}{
		{Acknowledge, "ACKNOWLEDGE", Success},
		{DAQProcessorOverload, "DAQ_PROCESSOR_OVERLOAD", Warning},
		{CommandProcessorBusy, "COMMAND_PROCESSOR_BUSY", Spurious},
		{KeyRequest, "KEY_REQUEST", Spurious},
		{ColdStartRequest, "COLD_START_REQUEST", Resolvable},
		{AccessDenied, "ACCESS_DENIED", Unresolvable},
		{ResourceNotAvailable, "RESOURCE_NOT_AVAILABLE", Unresolvable},
		{0x77, UnknownReturnCode, Unresolvable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rc.Name() != tt.name || tt.rc.Category() != tt.cat {
				t.Errorf("0x%02X: %s %s, want %s %s", byte(tt.rc), tt.rc.Name(), tt.rc.Category(), tt.name, tt.cat)
			}
		})
	}
	if !ResourceMask(0x43).Has(ResourcePGM | ResourceCAL) {
		t.Error("resource mask")
	}
}
