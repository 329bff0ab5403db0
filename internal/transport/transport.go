// Package transport provides the adapters that physically execute I/O
// descriptors against a backing target: local RAM, local namespace files,
// or a remote target over a TCP fabric.
package transport

import (
	"context"
	"fmt"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/constants"
)

// Transport executes one I/O descriptor against its backing target.
// Implementations classify failures with fastlane error codes so the
// executor can account timeouts and fabric events without knowing the
// fabric. Execute is called serially by the single execution path; it does
// not need to be safe for concurrent use.
type Transport interface {
	// Execute performs the I/O described by desc, honoring ctx's deadline.
	Execute(ctx context.Context, desc *fastlane.IODesc) error

	// Close releases the transport's resources.
	Close() error
}

// validateDesc rejects descriptors outside the closed operation enumeration,
// zero-length transfers for data-moving operations, and transfers beyond the
// staging limit.
func validateDesc(desc *fastlane.IODesc) error {
	switch desc.Op {
	case fastlane.OpRead, fastlane.OpWrite, fastlane.OpDiscard:
		if desc.Length == 0 {
			return fastlane.NewNamespaceError("EXECUTE", desc.NamespaceID,
				fastlane.ErrCodeInvalidParameters, "zero-length transfer")
		}
		if desc.Length > constants.DefaultMaxTransferBlocks {
			return fastlane.NewNamespaceError("EXECUTE", desc.NamespaceID,
				fastlane.ErrCodeInvalidParameters,
				fmt.Sprintf("transfer of %d blocks exceeds the %d block limit",
					desc.Length, constants.DefaultMaxTransferBlocks))
		}
	case fastlane.OpFlush:
		// Flush carries no transfer range
	default:
		return fastlane.NewNamespaceError("EXECUTE", desc.NamespaceID,
			fastlane.ErrCodeInvalidParameters,
			fmt.Sprintf("unknown operation %d", desc.Op))
	}
	return nil
}

// fillPattern writes the deterministic staging pattern for a descriptor's
// range into p. Synthetic write payloads and read verification both derive
// from this pattern, so a read-back of a pattern-written range is checkable
// without retaining the original buffer.
func fillPattern(desc *fastlane.IODesc, p []byte) {
	base := desc.LBA + uint64(desc.NamespaceID)
	for i := range p {
		p[i] = byte(base + uint64(i))
	}
}
