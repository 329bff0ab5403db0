package accel

import "github.com/ShreyPatel4/FastLane-NVMe/internal/logging"

// FPGAStub stands in for the FPGA offload engine. It logs each invocation
// and delegates to the software path so results stay verifiable until the
// hardware engine lands.
type FPGAStub struct {
	sw     *Software
	logger *logging.Logger
}

// NewFPGAStub creates the stub engine. logger may be nil.
func NewFPGAStub(logger *logging.Logger) *FPGAStub {
	if logger == nil {
		logger = logging.Default()
	}
	return &FPGAStub{
		sw:     NewSoftware(),
		logger: logger.WithComponent("accel-fpga"),
	}
}

// Name implements the Accelerator interface
func (*FPGAStub) Name() string {
	return "fpga-stub"
}

// Checksum implements the Accelerator interface
func (f *FPGAStub) Checksum(data []byte) uint32 {
	f.logger.Debug("invoking fpga stub operation", "operation", "checksum", "len", len(data))
	return f.sw.Checksum(data)
}

var _ Accelerator = (*FPGAStub)(nil)
