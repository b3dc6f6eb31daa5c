//go:build !linux

package kkl

import "github.com/roffe/gkbus/pkg/fastinit"

// breakControl is unavailable here, fast init falls back to bit banging.
type breakControl struct{}

func openBreakControl(string) (*breakControl, error) {
	return nil, fastinit.ErrUnsupported
}

func (b *breakControl) Set(bool) error {
	return nil
}

func (b *breakControl) Close() error {
	return nil
}
