package kwp2000

import "testing"

func TestNegativeStatus(t *testing.T) {
	tests := []struct {
		code    byte
		name    string
		message string
		known   bool
	}{
		{0x10, "GENERAL_REJECT", "General Reject", true},
		{0x11, "SERVICE_NOT_SUPPORTED", "Service Not Supported", true},
		{0x33, "SECURITY_ACCESS_DENIED_SECURITY_ACCESS_REQUESTED", "Security Access Denied / Security Access Requested", true},
		{0x78, "REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING", "Request correctly received / Response pending", true},
		{0xA1, "ECU_ADDRESS_UNKNOWN", "ECU address unknown", true},
		{0x8E, UnknownStatus, "Unknown", false},
		{0xC0, UnknownStatus, "Unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NegativeStatus(tt.code)
			if s.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.name)
			}
			if s.Message() != tt.message {
				t.Errorf("Message() = %q, want %q", s.Message(), tt.message)
			}
			if s.Known() != tt.known {
				t.Errorf("Known() = %v", s.Known())
			}
		})
	}
}

func TestNegativeStatusString(t *testing.T) {
	if got := NegativeStatus(0x22).String(); got != "Conditions Not Correct Or Request Sequence Error (0x22)" {
		t.Fatalf("got %q", got)
	}
}
