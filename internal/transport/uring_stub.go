//go:build !uring
// +build !uring

package transport

import fastlane "github.com/ShreyPatel4/FastLane-NVMe"

const uringSupported = false

// newURingEngine is available when built with -tags uring
func newURingEngine(entries uint) (ioEngine, error) {
	_ = entries
	return nil, fastlane.NewError("OPEN", fastlane.ErrCodeNotImplemented,
		"io_uring not enabled; build with -tags uring")
}
