package constants

import "time"

// Default configuration constants
const (
	// DefaultRingCapacity is the default submission ring capacity
	DefaultRingCapacity = 128

	// DefaultBlockSize is the default logical block size in bytes
	DefaultBlockSize = 512

	// DefaultMaxTransferBlocks is the largest transfer a single descriptor
	// may request, in logical blocks (2048 * 512B = 1MB)
	DefaultMaxTransferBlocks = 2048

	// DefaultAdminAddr is the default admin HTTP listen address
	DefaultAdminAddr = "127.0.0.1:9090"
)

// Timing constants for the execution path
const (
	// DefaultOpTimeout bounds a single transport operation
	DefaultOpTimeout = 5 * time.Second

	// EmptyPollInterval is how long the executor sleeps after finding the
	// ring empty before polling again
	EmptyPollInterval = 10 * time.Microsecond

	// DepthSampleInterval is the cadence for sampling ring occupancy into
	// the queue depth gauge
	DepthSampleInterval = 100 * time.Millisecond

	// ShutdownTimeout bounds cleanup at process exit
	ShutdownTimeout = 5 * time.Second
)

// Memory allocation constants
const (
	// TransferBufferSize is the pooled scratch buffer size for transport
	// data staging (1MB, matching DefaultMaxTransferBlocks)
	TransferBufferSize = 1 << 20
)
