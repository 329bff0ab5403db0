package transport

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
	"golang.org/x/sys/unix"
)

// ioEngine abstracts positional file I/O so the default pread/pwrite path
// and the optional io_uring path (built with -tags uring) are
// interchangeable behind the File transport.
type ioEngine interface {
	pread(fd int, p []byte, off int64) (int, error)
	pwrite(fd int, p []byte, off int64) (int, error)
	close() error
}

// syscallIO is the default engine, issuing one pread/pwrite syscall per
// transfer through golang.org/x/sys.
type syscallIO struct{}

func (syscallIO) pread(fd int, p []byte, off int64) (int, error) {
	return unix.Pread(fd, p, off)
}

func (syscallIO) pwrite(fd int, p []byte, off int64) (int, error) {
	return unix.Pwrite(fd, p, off)
}

func (syscallIO) close() error { return nil }

// FileConfig configures the local file-backed transport.
type FileConfig struct {
	// Dir is the directory holding namespace backing files.
	Dir string

	// BlockSize is the logical block size in bytes.
	BlockSize uint32

	// UseURing selects the io_uring engine. Requires building with
	// -tags uring; otherwise construction fails.
	UseURing bool

	// URingEntries sizes the io_uring submission queue (default 64).
	URingEntries uint

	// Logger may be nil.
	Logger *logging.Logger
}

// File executes descriptors against local namespace backing files, one file
// per namespace. It is the local-media path of the agent: reads and writes
// go through positional I/O, FUA forces a data sync behind the write, and
// discard punches holes where the filesystem supports it.
type File struct {
	dir       string
	blockSize uint32
	engine    ioEngine
	logger    *logging.Logger

	mu         sync.RWMutex
	namespaces map[uint32]*os.File
}

// NewFile creates the file-backed transport rooted at config.Dir.
func NewFile(config FileConfig) (*File, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("transport-file")

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fastlane.WrapError("OPEN", err)
	}

	var engine ioEngine = syscallIO{}
	if config.UseURing {
		entries := config.URingEntries
		if entries == 0 {
			entries = 64
		}
		ur, err := newURingEngine(entries)
		if err != nil {
			return nil, err
		}
		engine = ur
		logger.Info("io_uring engine enabled", "entries", entries)
	}

	return &File{
		dir:        config.Dir,
		blockSize:  config.BlockSize,
		engine:     engine,
		logger:     logger,
		namespaces: make(map[uint32]*os.File),
	}, nil
}

// AddNamespace creates or opens the backing file for a namespace and sizes
// it to the given number of logical blocks.
func (f *File) AddNamespace(id uint32, blocks uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.namespaces[id]; ok {
		return fastlane.NewNamespaceError("ADD_NS", id,
			fastlane.ErrCodeInvalidParameters, "namespace already exists")
	}

	path := filepath.Join(f.dir, fmt.Sprintf("ns-%d.img", id))
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fastlane.WrapError("ADD_NS", err)
	}
	if err := file.Truncate(int64(blocks) * int64(f.blockSize)); err != nil {
		file.Close()
		return fastlane.WrapError("ADD_NS", err)
	}

	f.namespaces[id] = file
	f.logger.Info("namespace backing file ready", "namespace_id", id, "path", path, "blocks", blocks)
	return nil
}

// Execute implements the Transport interface
func (f *File) Execute(ctx context.Context, desc *fastlane.IODesc) error {
	if err := validateDesc(desc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		werr := fastlane.WrapError("EXECUTE", err)
		werr.NamespaceID = desc.NamespaceID
		return werr
	}

	f.mu.RLock()
	file, ok := f.namespaces[desc.NamespaceID]
	f.mu.RUnlock()
	if !ok {
		return fastlane.NewNamespaceError("EXECUTE", desc.NamespaceID,
			fastlane.ErrCodeInvalidParameters, "unknown namespace")
	}

	fd := int(file.Fd())
	length := uint32(uint64(desc.Length) * uint64(f.blockSize))
	// The byte offset must stay a valid int64 with the transfer behind it.
	maxLBA := (uint64(math.MaxInt64) - uint64(length)) / uint64(f.blockSize)
	if desc.LBA > maxLBA {
		return fastlane.NewNamespaceError(desc.Op.Label(), desc.NamespaceID,
			fastlane.ErrCodeInvalidParameters,
			fmt.Sprintf("transfer beyond addressable range (lba=%d)", desc.LBA))
	}
	offset := int64(desc.LBA) * int64(f.blockSize)

	switch desc.Op {
	case fastlane.OpRead:
		buf := GetBuffer(length)
		defer PutBuffer(buf)
		if err := f.readFull(fd, buf, offset); err != nil {
			return f.wrap(desc, err)
		}
	case fastlane.OpWrite:
		buf := GetBuffer(length)
		defer PutBuffer(buf)
		fillPattern(desc, buf)
		if err := f.writeFull(fd, buf, offset); err != nil {
			return f.wrap(desc, err)
		}
		if desc.Flags.FUA {
			if err := unix.Fdatasync(fd); err != nil {
				return f.wrap(desc, err)
			}
		}
	case fastlane.OpFlush:
		if err := unix.Fdatasync(fd); err != nil {
			return f.wrap(desc, err)
		}
	case fastlane.OpDiscard:
		if err := f.discard(fd, offset, int64(length)); err != nil {
			return f.wrap(desc, err)
		}
	}

	return nil
}

// readFull retries short positional reads until the transfer completes.
func (f *File) readFull(fd int, p []byte, off int64) error {
	for len(p) > 0 {
		n, err := f.engine.pread(fd, p, off)
		if err != nil {
			return err
		}
		if n == 0 {
			return syscall.EIO
		}
		p = p[n:]
		off += int64(n)
	}
	return nil
}

// writeFull retries short positional writes until the transfer completes.
func (f *File) writeFull(fd int, p []byte, off int64) error {
	for len(p) > 0 {
		n, err := f.engine.pwrite(fd, p, off)
		if err != nil {
			return err
		}
		p = p[n:]
		off += int64(n)
	}
	return nil
}

// discard punches a hole in the backing file, falling back to writing
// zeroes when the filesystem does not support hole punching.
func (f *File) discard(fd int, off, length int64) error {
	err := unix.Fallocate(fd, unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, off, length)
	if err == nil {
		return nil
	}
	if err != unix.EOPNOTSUPP && err != unix.ENOSYS {
		return err
	}

	buf := GetBuffer(uint32(length))
	defer PutBuffer(buf)
	for i := range buf {
		buf[i] = 0
	}
	return f.writeFull(fd, buf, off)
}

func (f *File) wrap(desc *fastlane.IODesc, err error) error {
	werr := fastlane.WrapError(desc.Op.Label(), err)
	werr.NamespaceID = desc.NamespaceID
	return werr
}

// Close implements the Transport interface
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for id, file := range f.namespaces {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.namespaces, id)
	}
	if err := f.engine.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ Transport = (*File)(nil)
