package ccp

import "fmt"

// NegativeResponseError is returned for any return code other than
// Acknowledge. Recovery is left to the caller, see Category.
type NegativeResponseError struct {
	Command    byte
	ReturnCode ReturnCode
}

func (e *NegativeResponseError) Error() string {
	return fmt.Sprintf("%s rejected: %s", CommandName(e.Command), e.ReturnCode)
}

func (e *NegativeResponseError) Category() Category {
	return e.ReturnCode.Category()
}

// CounterMismatchError is returned when a command return message carries
// another counter than the request.
type CounterMismatchError struct {
	Want, Got byte
}

func (e *CounterMismatchError) Error() string {
	return fmt.Sprintf("command return counter %d, want %d", e.Got, e.Want)
}
