package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(FileConfig{
		Dir:       t.TempDir(),
		BlockSize: 512,
	})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, f.AddNamespace(1, 64))
	return f
}

func TestFileWritePersistsPattern(t *testing.T) {
	f := newTestFile(t)
	ctx := context.Background()

	desc := fastlane.NewIODesc(fastlane.OpWrite, 1, 4, 2, fastlane.IOFlags{FUA: true}, nil)
	require.NoError(t, f.Execute(ctx, desc))

	raw, err := os.ReadFile(filepath.Join(f.dir, "ns-1.img"))
	require.NoError(t, err)
	require.Len(t, raw, 64*512)

	want := make([]byte, 2*512)
	fillPattern(desc, want)
	assert.Equal(t, want, raw[4*512:6*512])
}

func TestFileReadAndFlush(t *testing.T) {
	f := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.Execute(ctx,
		fastlane.NewIODesc(fastlane.OpRead, 1, 0, 8, fastlane.IOFlags{}, nil)))
	require.NoError(t, f.Execute(ctx,
		fastlane.NewIODesc(fastlane.OpFlush, 1, 0, 0, fastlane.IOFlags{}, nil)))
}

func TestFileDiscardZeroesRange(t *testing.T) {
	f := newTestFile(t)
	ctx := context.Background()

	write := fastlane.NewIODesc(fastlane.OpWrite, 1, 8, 1, fastlane.IOFlags{}, nil)
	require.NoError(t, f.Execute(ctx, write))
	require.NoError(t, f.Execute(ctx,
		fastlane.NewIODesc(fastlane.OpDiscard, 1, 8, 1, fastlane.IOFlags{}, nil)))

	raw, err := os.ReadFile(filepath.Join(f.dir, "ns-1.img"))
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 512), raw[8*512:9*512])
}

func TestFileRejectsWrappingLBA(t *testing.T) {
	f := newTestFile(t)

	// An LBA whose byte offset would not fit a signed 64-bit file offset
	// must be rejected, not handed to the kernel as a negative offset.
	for _, lba := range []uint64{^uint64(0), 1 << 60} {
		err := f.Execute(context.Background(),
			fastlane.NewIODesc(fastlane.OpWrite, 1, lba, 1, fastlane.IOFlags{}, nil))
		require.Error(t, err)
		assert.True(t, fastlane.IsCode(err, fastlane.ErrCodeInvalidParameters), "lba %d: got %v", lba, err)
	}
}

func TestFileUnknownNamespace(t *testing.T) {
	f := newTestFile(t)
	err := f.Execute(context.Background(),
		fastlane.NewIODesc(fastlane.OpRead, 5, 0, 1, fastlane.IOFlags{}, nil))
	require.Error(t, err)
	assert.True(t, fastlane.IsCode(err, fastlane.ErrCodeInvalidParameters))
}

func TestFileURingUnavailableWithoutTag(t *testing.T) {
	if uringSupported {
		t.Skip("built with the uring tag")
	}
	_, err := NewFile(FileConfig{Dir: t.TempDir(), BlockSize: 512, UseURing: true})
	require.Error(t, err)
	assert.True(t, fastlane.IsCode(err, fastlane.ErrCodeNotImplemented))
}
