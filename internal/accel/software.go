package accel

// Software is the CPU reference implementation: a wrapping byte sum. It is
// the verification baseline every offload engine must agree with.
type Software struct{}

// NewSoftware creates the software checksum engine.
func NewSoftware() *Software {
	return &Software{}
}

// Name implements the Accelerator interface
func (*Software) Name() string {
	return "software"
}

// Checksum implements the Accelerator interface
func (*Software) Checksum(data []byte) uint32 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return sum
}

var _ Accelerator = (*Software)(nil)
