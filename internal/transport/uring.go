//go:build uring
// +build uring

package transport

import (
	"fmt"

	"github.com/iceber/iouring-go"
)

const uringSupported = true

// uringEngine issues positional I/O through a shared io_uring instance.
// The execution path is serial, so one in-flight request at a time is the
// expected steady state and a single result channel per call is enough.
type uringEngine struct {
	ring *iouring.IOURing
}

// newURingEngine creates the io_uring-backed engine.
func newURingEngine(entries uint) (ioEngine, error) {
	ring, err := iouring.New(entries)
	if err != nil {
		return nil, fmt.Errorf("create io_uring: %w", err)
	}
	return &uringEngine{ring: ring}, nil
}

func (u *uringEngine) pread(fd int, p []byte, off int64) (int, error) {
	return u.submit(iouring.Pread(fd, p, uint64(off)))
}

func (u *uringEngine) pwrite(fd int, p []byte, off int64) (int, error) {
	return u.submit(iouring.Pwrite(fd, p, uint64(off)))
}

func (u *uringEngine) submit(prep iouring.PrepRequest) (int, error) {
	ch := make(chan iouring.Result, 1)
	if _, err := u.ring.SubmitRequest(prep, ch); err != nil {
		return 0, err
	}
	result := <-ch
	return result.ReturnInt()
}

func (u *uringEngine) close() error {
	if u.ring != nil {
		return u.ring.Close()
	}
	return nil
}
