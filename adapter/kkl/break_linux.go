package kkl

import "golang.org/x/sys/unix"

// breakControl holds a second descriptor on the tty used to raise and
// clear the break condition, which go.bug.st/serial only offers as a
// timed pulse.
type breakControl struct {
	fd int
}

func openBreakControl(name string) (*breakControl, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &breakControl{fd: fd}, nil
}

func (b *breakControl) Set(on bool) error {
	if b == nil {
		return nil
	}
	req := uint(unix.TIOCCBRK)
	if on {
		req = unix.TIOCSBRK
	}
	return unix.IoctlSetInt(b.fd, req, 0)
}

func (b *breakControl) Close() error {
	if b == nil {
		return nil
	}
	return unix.Close(b.fd)
}
