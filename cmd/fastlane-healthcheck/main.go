// fastlane-healthcheck runs a short synthetic I/O pass through the full
// agent pipeline (ring, executor, RAM transport with read verification) and
// exits non-zero if anything fails. Intended for container health probes
// and CI smoke checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/accel"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/constants"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/executor"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/transport"
)

func main() {
	var (
		ops     = flag.Int("ops", 64, "Number of write/read pairs to run")
		timeout = flag.Duration("timeout", 10*time.Second, "Overall deadline")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	} else {
		logConfig.Level = logging.LevelError
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if err := run(*ops, *timeout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("healthcheck: ok")
}

func run(ops int, timeout time.Duration, logger *logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	mem := transport.NewMem(constants.DefaultBlockSize, logger)
	if err := mem.AddNamespace(1, uint64(ops)+1); err != nil {
		return err
	}
	mem.SetVerifier(accel.NewSoftware())
	defer mem.Close()

	ring := fastlane.NewSpscRing[*fastlane.IODesc](constants.DefaultRingCapacity)
	metrics := fastlane.MustNewMetrics()

	exec := executor.New(ctx, executor.Config{
		Ring:      ring,
		Transport: mem,
		Metrics:   metrics,
		Logger:    logger,
	})
	exec.Start()
	defer exec.Close()

	sub := executor.NewSubmitter(ring)
	results := make(chan error, ops*2)

	for i := 0; i < ops; i++ {
		lba := uint64(i)
		write := fastlane.NewIODesc(fastlane.OpWrite, 1, lba, 1, fastlane.IOFlags{}, func(err error) { results <- err })
		if err := sub.SubmitWait(ctx, write); err != nil {
			return err
		}
		read := fastlane.NewIODesc(fastlane.OpRead, 1, lba, 1, fastlane.IOFlags{}, func(err error) { results <- err })
		if err := sub.SubmitWait(ctx, read); err != nil {
			return err
		}
	}

	for i := 0; i < ops*2; i++ {
		select {
		case err := <-results:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return fastlane.WrapError("HEALTHCHECK", ctx.Err())
		}
	}
	return nil
}
