// Package accel provides data-integrity acceleration for the FastLane agent.
// The software implementation is the reference path; hardware offload
// engines plug in behind the same interface.
package accel

// Accelerator computes payload checksums for verification of synthetic and
// offloaded I/O.
type Accelerator interface {
	// Name identifies the engine for logging.
	Name() string

	// Checksum computes the checksum of data.
	Checksum(data []byte) uint32
}
