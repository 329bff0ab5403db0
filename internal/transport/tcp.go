package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
	"golang.org/x/sys/unix"
)

// Wire framing for the TCP fabric adapter. One 24-byte command per
// descriptor, one 8-byte status reply from the target. The framing is an
// internal agent/target exchange, not a public contract.
const (
	frameMagic   = 0x464C // "FL"
	frameVersion = 1

	cmdFrameSize   = 24
	replyFrameSize = 8

	cmdFlagFUA     = 1 << 0
	cmdFlagBarrier = 1 << 1
)

// Target status codes carried in the reply frame.
const (
	statusOK uint32 = iota
	statusInvalid
	statusIOError
	statusTimeout
	statusCQOverflow
)

// Reply fabric-event bits, reported even on successful operations.
const replyFabricCQOverflow = 1 << 0

// TCPConfig configures the TCP fabric adapter.
type TCPConfig struct {
	// Addr is the remote target address (host:port).
	Addr string

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// Metrics, when set, receives fabric events the target piggybacks on
	// otherwise-successful replies.
	Metrics *fastlane.Metrics

	// Logger may be nil.
	Logger *logging.Logger
}

// TCP executes descriptors against a remote offload target over a TCP
// fabric connection. Commands are issued serially by the execution path.
type TCP struct {
	conn    net.Conn
	metrics *fastlane.Metrics
	logger  *logging.Logger
}

// DialTCP establishes the fabric connection. The socket disables Nagle and
// enables keep-alive so small command frames are never coalesced behind a
// stalled descriptor.
func DialTCP(config TCPConfig) (*TCP, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("transport-tcp")

	dialer := net.Dialer{
		Timeout: config.DialTimeout,
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
				if sockErr != nil {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := dialer.Dial("tcp", config.Addr)
	if err != nil {
		return nil, fastlane.WrapError("DIAL", err)
	}

	logger.Info("fabric connection established", "target", config.Addr)

	return &TCP{
		conn:    conn,
		metrics: config.Metrics,
		logger:  logger,
	}, nil
}

// Execute implements the Transport interface
func (t *TCP) Execute(ctx context.Context, desc *fastlane.IODesc) error {
	if err := validateDesc(desc); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetDeadline(deadline); err != nil {
			return fastlane.WrapError("EXECUTE", err)
		}
		defer t.conn.SetDeadline(time.Time{})
	}

	var cmd [cmdFrameSize]byte
	binary.BigEndian.PutUint16(cmd[0:2], frameMagic)
	cmd[2] = frameVersion
	cmd[3] = byte(desc.Op)
	if desc.Flags.FUA {
		cmd[4] |= cmdFlagFUA
	}
	if desc.Flags.Barrier {
		cmd[4] |= cmdFlagBarrier
	}
	binary.BigEndian.PutUint32(cmd[8:12], desc.NamespaceID)
	binary.BigEndian.PutUint64(cmd[12:20], desc.LBA)
	binary.BigEndian.PutUint32(cmd[20:24], desc.Length)

	if _, err := t.conn.Write(cmd[:]); err != nil {
		return t.classify(desc, err)
	}

	var reply [replyFrameSize]byte
	if _, err := io.ReadFull(t.conn, reply[:]); err != nil {
		return t.classify(desc, err)
	}

	status := binary.BigEndian.Uint32(reply[0:4])
	fabric := reply[4]

	// CQ overflow can ride on a successful reply; count it either way
	if fabric&replyFabricCQOverflow != 0 && t.metrics != nil {
		t.metrics.IncCQOverflow()
	}

	switch status {
	case statusOK:
		return nil
	case statusInvalid:
		return fastlane.NewNamespaceError(desc.Op.Label(), desc.NamespaceID,
			fastlane.ErrCodeInvalidParameters, "target rejected command")
	case statusTimeout:
		return fastlane.NewNamespaceError(desc.Op.Label(), desc.NamespaceID,
			fastlane.ErrCodeTimeout, "target reported command timeout")
	case statusCQOverflow:
		return fastlane.NewNamespaceError(desc.Op.Label(), desc.NamespaceID,
			fastlane.ErrCodeCQOverflow, "target completion queue overflowed")
	default:
		return fastlane.NewNamespaceError(desc.Op.Label(), desc.NamespaceID,
			fastlane.ErrCodeIOError, fmt.Sprintf("target status %d", status))
	}
}

// classify maps connection-level failures onto fastlane error codes so the
// executor can account them without inspecting net internals.
func (t *TCP) classify(desc *fastlane.IODesc, err error) error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return &fastlane.Error{
			Op:          desc.Op.Label(),
			NamespaceID: desc.NamespaceID,
			Code:        fastlane.ErrCodeTimeout,
			Msg:         "fabric deadline exceeded",
			Inner:       err,
		}
	}
	return &fastlane.Error{
		Op:          desc.Op.Label(),
		NamespaceID: desc.NamespaceID,
		Code:        fastlane.ErrCodeTransport,
		Msg:         err.Error(),
		Inner:       err,
	}
}

// Close implements the Transport interface
func (t *TCP) Close() error {
	return t.conn.Close()
}

var _ Transport = (*TCP)(nil)
