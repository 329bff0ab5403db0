// Package fastlane provides the core hand-off primitives for the FastLane
// host storage-offload agent: the I/O descriptor model, the lock-free
// single-producer/single-consumer ring that moves descriptors from the
// submission path to the execution path, and the metrics set both sides
// report into.
package fastlane

import (
	"fmt"

	"github.com/rs/zerolog"
)

// IOOp identifies the kind of I/O operation requested by the host.
// The enumeration is closed; transports must reject values outside it.
type IOOp uint8

const (
	// OpRead reads data from the namespace.
	OpRead IOOp = iota
	// OpWrite writes data to the namespace.
	OpWrite
	// OpFlush flushes cached data to persistent media.
	OpFlush
	// OpDiscard discards blocks without writing them.
	OpDiscard
)

// Label returns the string representation used for metrics labels and logging.
func (op IOOp) Label() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpFlush:
		return "flush"
	case OpDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

func (op IOOp) String() string {
	return op.Label()
}

// IOFlags modify the semantics of an I/O request. Enforcement of both flags
// is the executor's responsibility; the ring carries them untouched.
type IOFlags struct {
	// FUA (force unit access) requires the executor to bypass
	// intermediate caches for this operation.
	FUA bool

	// Barrier requires ordering relative to previously queued operations
	// on the same namespace.
	Barrier bool
}

// Completion is the continuation invoked exactly once when an I/O request
// finishes. A nil error means the operation succeeded. During teardown a
// completion may instead be invoked with a shutdown error so the waiter is
// never leaked.
type Completion func(err error)

// IODesc describes one I/O request in flight through the agent. All fields
// are fixed at construction; the completion handle is the only consumable
// part and can be taken at most once. A descriptor crossing the ring
// transfers exclusive ownership: the producer must not touch it after a
// successful Push, and the consumer owns it after a successful Pop.
type IODesc struct {
	// Op is the operation type.
	Op IOOp

	// NamespaceID identifies the target logical namespace.
	NamespaceID uint32

	// LBA is the starting logical block address.
	LBA uint64

	// Length is the transfer length in logical blocks.
	Length uint32

	// Flags carries request modifiers.
	Flags IOFlags

	completion Completion
}

// NewIODesc constructs a descriptor. completion may be nil for fire-and-forget
// requests such as synthetic workload traffic.
func NewIODesc(op IOOp, namespaceID uint32, lba uint64, length uint32, flags IOFlags, completion Completion) *IODesc {
	return &IODesc{
		Op:          op,
		NamespaceID: namespaceID,
		LBA:         lba,
		Length:      length,
		Flags:       flags,
		completion:  completion,
	}
}

// HasCompletion reports whether an un-taken completion handle is attached.
func (d *IODesc) HasCompletion() bool {
	return d.completion != nil
}

// TakeCompletion transfers ownership of the completion handle to the caller.
// It returns nil if no handle was attached or it was already taken, so the
// handle can be invoked at most once no matter how the descriptor is routed.
// Must be called only by the descriptor's current exclusive owner.
func (d *IODesc) TakeCompletion() Completion {
	c := d.completion
	d.completion = nil
	return c
}

// MarshalZerologObject emits the descriptor's fields for structured
// diagnostics. Descriptors are logged, never persisted.
func (d *IODesc) MarshalZerologObject(e *zerolog.Event) {
	e.Str("op", d.Op.Label()).
		Uint32("namespace_id", d.NamespaceID).
		Uint64("lba", d.LBA).
		Uint32("length", d.Length).
		Bool("fua", d.Flags.FUA).
		Bool("barrier", d.Flags.Barrier).
		Bool("has_completion", d.completion != nil)
}

func (d *IODesc) String() string {
	return fmt.Sprintf("%s ns=%d lba=%d len=%d fua=%v barrier=%v",
		d.Op.Label(), d.NamespaceID, d.LBA, d.Length, d.Flags.FUA, d.Flags.Barrier)
}
