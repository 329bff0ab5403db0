package transport

import (
	"context"
	"fmt"
	"sync"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/accel"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
)

// Mem is a loopback transport backed by RAM namespaces. It exists for the
// healthcheck, the synthetic workload generator, and tests: writes stage the
// deterministic pattern for the descriptor's range, and reads can verify the
// read-back against that pattern through an accelerator checksum.
type Mem struct {
	blockSize uint32
	logger    *logging.Logger

	mu         sync.RWMutex
	namespaces map[uint32][]byte

	// verifier, when set, checks read payloads against the staging
	// pattern. Only meaningful for ranges previously written through this
	// transport (discarded ranges read as zeroes and fail verification).
	verifier accel.Accelerator
}

// NewMem creates a RAM-backed loopback transport. logger may be nil.
func NewMem(blockSize uint32, logger *logging.Logger) *Mem {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mem{
		blockSize:  blockSize,
		logger:     logger.WithComponent("transport-mem"),
		namespaces: make(map[uint32][]byte),
	}
}

// AddNamespace provisions a namespace of the given size in logical blocks.
func (m *Mem) AddNamespace(id uint32, blocks uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.namespaces[id]; ok {
		return fastlane.NewNamespaceError("ADD_NS", id,
			fastlane.ErrCodeInvalidParameters, "namespace already exists")
	}
	m.namespaces[id] = make([]byte, blocks*uint64(m.blockSize))
	m.logger.Info("namespace provisioned", "namespace_id", id, "blocks", blocks)
	return nil
}

// SetVerifier enables read verification through the given checksum engine.
func (m *Mem) SetVerifier(engine accel.Accelerator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifier = engine
}

// Execute implements the Transport interface
func (m *Mem) Execute(ctx context.Context, desc *fastlane.IODesc) error {
	if err := validateDesc(desc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		werr := fastlane.WrapError("EXECUTE", err)
		werr.NamespaceID = desc.NamespaceID
		return werr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[desc.NamespaceID]
	if !ok {
		return fastlane.NewNamespaceError("EXECUTE", desc.NamespaceID,
			fastlane.ErrCodeInvalidParameters, "unknown namespace")
	}

	if desc.Op == fastlane.OpFlush {
		// RAM namespaces have nothing to flush
		return nil
	}

	offset, length, err := m.byteRange(desc, uint64(len(ns)))
	if err != nil {
		return err
	}

	switch desc.Op {
	case fastlane.OpRead:
		buf := GetBuffer(uint32(length))
		defer PutBuffer(buf)
		copy(buf, ns[offset:offset+length])
		if m.verifier != nil {
			expect := GetBuffer(uint32(length))
			defer PutBuffer(expect)
			fillPattern(desc, expect)
			if m.verifier.Checksum(buf) != m.verifier.Checksum(expect) {
				return fastlane.NewNamespaceError("READ", desc.NamespaceID,
					fastlane.ErrCodeIOError, "data corruption detected")
			}
		}
	case fastlane.OpWrite:
		buf := GetBuffer(uint32(length))
		defer PutBuffer(buf)
		fillPattern(desc, buf)
		copy(ns[offset:offset+length], buf)
	case fastlane.OpDiscard:
		zero := ns[offset : offset+length]
		for i := range zero {
			zero[i] = 0
		}
	}

	return nil
}

// byteRange converts a descriptor's block range into byte offsets against a
// namespace of size bytes, rejecting out-of-bounds transfers. The comparison
// happens in block units before any multiplication so a huge LBA cannot wrap
// the arithmetic and slip past the check.
func (m *Mem) byteRange(desc *fastlane.IODesc, size uint64) (uint64, uint64, error) {
	blocks := size / uint64(m.blockSize)
	if uint64(desc.Length) > blocks || desc.LBA > blocks-uint64(desc.Length) {
		return 0, 0, fastlane.NewNamespaceError(desc.Op.Label(), desc.NamespaceID,
			fastlane.ErrCodeInvalidParameters,
			fmt.Sprintf("transfer beyond namespace end (lba=%d len=%d)", desc.LBA, desc.Length))
	}
	return desc.LBA * uint64(m.blockSize), uint64(desc.Length) * uint64(m.blockSize), nil
}

// ReadBlocks copies raw namespace contents for test inspection.
func (m *Mem) ReadBlocks(namespaceID uint32, lba uint64, blocks uint32, p []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespaceID]
	if !ok {
		return fastlane.NewNamespaceError("READ", namespaceID,
			fastlane.ErrCodeInvalidParameters, "unknown namespace")
	}
	nsBlocks := uint64(len(ns)) / uint64(m.blockSize)
	length := uint64(blocks) * uint64(m.blockSize)
	if uint64(blocks) > nsBlocks || lba > nsBlocks-uint64(blocks) || uint64(len(p)) < length {
		return fastlane.NewNamespaceError("READ", namespaceID,
			fastlane.ErrCodeInvalidParameters, "transfer beyond namespace end")
	}
	offset := lba * uint64(m.blockSize)
	copy(p, ns[offset:offset+length])
	return nil
}

// Close implements the Transport interface
func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespaces = nil
	return nil
}

var _ Transport = (*Mem)(nil)
