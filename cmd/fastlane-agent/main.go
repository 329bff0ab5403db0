package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/admin"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/constants"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/executor"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/transport"
)

func main() {
	var (
		transportKind = flag.String("transport", "mem", "Transport backing the agent: mem, file, or tcp")
		target        = flag.String("target", "", "Remote target address for -transport tcp (host:port)")
		dir           = flag.String("dir", "/var/lib/fastlane", "Backing file directory for -transport file")
		sizeStr       = flag.String("size", "64M", "Namespace size (e.g., 64M, 1G)")
		blockSize     = flag.Uint("block-size", constants.DefaultBlockSize, "Logical block size in bytes")
		ringDepth     = flag.Int("ring-depth", constants.DefaultRingCapacity, "Descriptor ring capacity")
		adminAddr     = flag.String("admin", constants.DefaultAdminAddr, "Admin HTTP listen address (health and metrics)")
		workload      = flag.Int("workload", 0, "Synthetic workload rate in ops/sec (0 disables)")
		useURing      = flag.Bool("uring", false, "Use io_uring for the file transport (requires -tags uring build)")
		verbose       = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	size, err := parseSize(*sizeStr)
	if err != nil {
		log.Fatalf("Invalid size '%s': %v", *sizeStr, err)
	}
	blocks := uint64(size) / uint64(*blockSize)
	if blocks == 0 {
		log.Fatalf("Size %s is smaller than one %d-byte block", *sizeStr, *blockSize)
	}

	// Set up logging
	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	metrics, err := fastlane.NewMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	tr, err := buildTransport(*transportKind, *target, *dir, uint32(*blockSize), *useURing, blocks, logger)
	if err != nil {
		logger.Error("failed to create transport", "error", err)
		os.Exit(1)
	}
	defer tr.Close()

	ring := fastlane.NewSpscRing[*fastlane.IODesc](*ringDepth)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := executor.New(ctx, executor.Config{
		Ring:      ring,
		Transport: tr,
		Metrics:   metrics,
		Logger:    logger,
	})
	exec.Start()

	adminSrv, err := admin.NewServer(*adminAddr, metrics, logger)
	if err != nil {
		logger.Error("failed to start admin server", "error", err)
		os.Exit(1)
	}
	adminSrv.Start()

	logger.Info("agent running",
		"transport", *transportKind,
		"ring_depth", *ringDepth,
		"namespace_blocks", blocks,
		"admin", adminSrv.Addr())

	if *workload > 0 {
		gen := newWorkloadGenerator(executor.NewSubmitter(ring), blocks, *workload, logger)
		go gen.run(ctx)
		logger.Info("synthetic workload started", "ops_per_sec", *workload)
	}

	fmt.Printf("FastLane agent running (transport=%s, admin=http://%s)\n", *transportKind, adminSrv.Addr())
	fmt.Printf("Press Ctrl+C to stop...\n")

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Stop the producer first so the executor can drain a quiescent ring.
	cancel()

	cleanupDone := make(chan bool)
	go func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer shutdownCancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error stopping admin server", "error", err)
		}
		if err := exec.Close(); err != nil {
			logger.Error("error stopping executor", "error", err)
		}
		cleanupDone <- true
	}()

	select {
	case <-cleanupDone:
		logger.Info("agent stopped")
	case <-time.After(constants.ShutdownTimeout):
		logger.Info("cleanup timeout, forcing exit")
	}

	os.Exit(0)
}

// buildTransport constructs the selected transport with one namespace
// provisioned.
func buildTransport(kind, target, dir string, blockSize uint32, useURing bool, blocks uint64, logger *logging.Logger) (transport.Transport, error) {
	switch kind {
	case "mem":
		mem := transport.NewMem(blockSize, logger)
		if err := mem.AddNamespace(1, blocks); err != nil {
			return nil, err
		}
		return mem, nil
	case "file":
		f, err := transport.NewFile(transport.FileConfig{
			Dir:       dir,
			BlockSize: blockSize,
			UseURing:  useURing,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		if err := f.AddNamespace(1, blocks); err != nil {
			f.Close()
			return nil, err
		}
		return f, nil
	case "tcp":
		if target == "" {
			return nil, fastlane.NewError("DIAL", fastlane.ErrCodeInvalidParameters,
				"-transport tcp requires -target")
		}
		return transport.DialTCP(transport.TCPConfig{
			Addr:        target,
			DialTimeout: 5 * time.Second,
			Logger:      logger,
		})
	default:
		return nil, fastlane.NewError("CONFIG", fastlane.ErrCodeInvalidParameters,
			fmt.Sprintf("unknown transport %q", kind))
	}
}

// workloadGenerator submits a steady stream of synthetic descriptors. It is
// the single producer of the ring: write then read back the same range,
// walking the namespace, with an occasional flush.
type workloadGenerator struct {
	sub    *executor.Submitter
	blocks uint64
	rate   int
	logger *logging.Logger
}

func newWorkloadGenerator(sub *executor.Submitter, blocks uint64, rate int, logger *logging.Logger) *workloadGenerator {
	return &workloadGenerator{
		sub:    sub,
		blocks: blocks,
		rate:   rate,
		logger: logger.WithComponent("workload"),
	}
}

func (g *workloadGenerator) run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(g.rate))
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		lba := seq % g.blocks
		var desc *fastlane.IODesc
		switch seq % 4 {
		case 0:
			desc = fastlane.NewIODesc(fastlane.OpWrite, 1, lba, 1, fastlane.IOFlags{}, nil)
		case 1:
			desc = fastlane.NewIODesc(fastlane.OpRead, 1, lba, 1, fastlane.IOFlags{}, nil)
		case 2:
			desc = fastlane.NewIODesc(fastlane.OpWrite, 1, lba, 1, fastlane.IOFlags{FUA: true}, nil)
		default:
			desc = fastlane.NewIODesc(fastlane.OpFlush, 1, 0, 0, fastlane.IOFlags{}, nil)
		}

		if err := g.sub.SubmitWait(ctx, desc); err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Warn("submission failed", "error", err)
		}
		seq++
	}
}

// parseSize parses a size string like "64M", "1G", "512K"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(s)

	var multiplier int64 = 1
	var numStr string

	if strings.HasSuffix(s, "K") {
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "K")
	} else if strings.HasSuffix(s, "M") {
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "M")
	} else if strings.HasSuffix(s, "G") {
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "G")
	} else {
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}
