//go:build !linux

package socketcan

import (
	"errors"

	"github.com/roffe/gkbus"
)

var errUnsupported = errors.New("socketcan is only available on linux")

func newPort(cfg *gkbus.Config) (gkbus.Port, error) {
	return nil, errUnsupported
}
