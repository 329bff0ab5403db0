//go:build integration
// +build integration

package integration

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/accel"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/admin"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/executor"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/transport"
)

// These tests exercise the whole agent pipeline in-process: submitter,
// ring, executor, transport, and the admin surface.

func TestIntegrationFullPipeline(t *testing.T) {
	mem := transport.NewMem(512, nil)
	if err := mem.AddNamespace(1, 256); err != nil {
		t.Fatalf("AddNamespace failed: %v", err)
	}
	mem.SetVerifier(accel.NewSoftware())
	defer mem.Close()

	ring := fastlane.NewSpscRing[*fastlane.IODesc](32)
	metrics := fastlane.MustNewMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exec := executor.New(ctx, executor.Config{
		Ring:      ring,
		Transport: mem,
		Metrics:   metrics,
	})
	exec.Start()
	defer exec.Close()

	adminSrv, err := admin.NewServer("127.0.0.1:0", metrics, nil)
	if err != nil {
		t.Fatalf("admin server failed: %v", err)
	}
	adminSrv.Start()
	defer adminSrv.Shutdown(context.Background())

	// Drive verified write/read traffic through the ring.
	sub := executor.NewSubmitter(ring)
	const pairs = 200
	results := make(chan error, pairs*2)
	for i := 0; i < pairs; i++ {
		lba := uint64(i % 256)
		write := fastlane.NewIODesc(fastlane.OpWrite, 1, lba, 1, fastlane.IOFlags{}, func(err error) { results <- err })
		if err := sub.SubmitWait(ctx, write); err != nil {
			t.Fatalf("submit write %d failed: %v", i, err)
		}
		read := fastlane.NewIODesc(fastlane.OpRead, 1, lba, 1, fastlane.IOFlags{}, func(err error) { results <- err })
		if err := sub.SubmitWait(ctx, read); err != nil {
			t.Fatalf("submit read %d failed: %v", i, err)
		}
	}

	for i := 0; i < pairs*2; i++ {
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("completion %d failed: %v", i, err)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for completions")
		}
	}

	// The admin surface must reflect the traffic just executed.
	resp, err := http.Get("http://" + adminSrv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading metrics failed: %v", err)
	}
	if !strings.Contains(string(body), "io_latency_seconds_count 400") {
		t.Errorf("expected 400 latency observations in metrics output")
	}

	healthResp, err := http.Get("http://" + adminSrv.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Errorf("health returned %d, want 200", healthResp.StatusCode)
	}
}

func TestIntegrationFileTransportPipeline(t *testing.T) {
	f, err := transport.NewFile(transport.FileConfig{
		Dir:       t.TempDir(),
		BlockSize: 512,
	})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if err := f.AddNamespace(1, 128); err != nil {
		t.Fatalf("AddNamespace failed: %v", err)
	}
	defer f.Close()

	ring := fastlane.NewSpscRing[*fastlane.IODesc](16)
	metrics := fastlane.MustNewMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exec := executor.New(ctx, executor.Config{
		Ring:      ring,
		Transport: f,
		Metrics:   metrics,
	})
	exec.Start()
	defer exec.Close()

	sub := executor.NewSubmitter(ring)
	done := make(chan error, 1)

	ops := []*fastlane.IODesc{
		fastlane.NewIODesc(fastlane.OpWrite, 1, 0, 4, fastlane.IOFlags{FUA: true}, func(err error) { done <- err }),
		fastlane.NewIODesc(fastlane.OpRead, 1, 0, 4, fastlane.IOFlags{}, func(err error) { done <- err }),
		fastlane.NewIODesc(fastlane.OpFlush, 1, 0, 0, fastlane.IOFlags{}, func(err error) { done <- err }),
		fastlane.NewIODesc(fastlane.OpDiscard, 1, 0, 4, fastlane.IOFlags{}, func(err error) { done <- err }),
		fastlane.NewIODesc(fastlane.OpWrite, 1, 8, 2, fastlane.IOFlags{Barrier: true}, func(err error) { done <- err }),
	}
	for i, desc := range ops {
		if err := sub.SubmitWait(ctx, desc); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("op %d failed: %v", i, err)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for completion")
		}
	}
}

func TestIntegrationShutdownDrainsResidents(t *testing.T) {
	mem := transport.NewMem(512, nil)
	if err := mem.AddNamespace(1, 16); err != nil {
		t.Fatalf("AddNamespace failed: %v", err)
	}
	defer mem.Close()

	ring := fastlane.NewSpscRing[*fastlane.IODesc](8)
	metrics := fastlane.MustNewMetrics()
	exec := executor.New(context.Background(), executor.Config{
		Ring:      ring,
		Transport: mem,
		Metrics:   metrics,
	})
	// Never started: pushed descriptors stay resident.

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		desc := fastlane.NewIODesc(fastlane.OpWrite, 1, uint64(i), 1, fastlane.IOFlags{}, func(err error) { done <- err })
		if err := ring.Push(desc); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}

	if err := exec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		select {
		case err := <-done:
			if !fastlane.IsCode(err, fastlane.ErrCodeShutdown) {
				t.Errorf("completion %d settled with %v, want shutdown", i, err)
			}
		case <-time.After(time.Second):
			t.Fatal("completion never settled")
		}
	}
	if !ring.IsEmpty() {
		t.Error("ring not empty after drain")
	}
}
