// Package executor drives the consumer side of the descriptor ring: it pops
// descriptors, executes them through a transport, reports latency and error
// metrics, and invokes each completion handle exactly once. The matching
// producer-side helper lives in submitter.go.
package executor

import (
	"context"
	"sync"
	"time"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/constants"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/logging"
	"github.com/ShreyPatel4/FastLane-NVMe/internal/transport"
)

// Config configures an Executor.
type Config struct {
	// Ring is the descriptor hand-off channel. The executor becomes its
	// single consumer; the caller keeps the single-producer side.
	Ring *fastlane.SpscRing[*fastlane.IODesc]

	// Transport executes descriptors.
	Transport transport.Transport

	// Metrics receives latency, error, depth, and fabric accounting.
	Metrics *fastlane.Metrics

	// Logger may be nil.
	Logger *logging.Logger

	// OpTimeout bounds a single transport operation (default 5s).
	OpTimeout time.Duration

	// PollInterval is the consumer's sleep after finding the ring empty
	// (default 10us).
	PollInterval time.Duration

	// DepthSampleInterval is the queue depth gauge sampling cadence
	// (default 100ms).
	DepthSampleInterval time.Duration
}

// Executor is the single consumer of one descriptor ring.
type Executor struct {
	ring      *fastlane.SpscRing[*fastlane.IODesc]
	transport transport.Transport
	metrics   *fastlane.Metrics
	logger    *logging.Logger

	opTimeout    time.Duration
	pollInterval time.Duration
	sampleEvery  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an executor. Callers must invoke Start to begin consuming and
// Close to stop and drain.
func New(ctx context.Context, config Config) *Executor {
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}

	opTimeout := config.OpTimeout
	if opTimeout == 0 {
		opTimeout = constants.DefaultOpTimeout
	}
	pollInterval := config.PollInterval
	if pollInterval == 0 {
		pollInterval = constants.EmptyPollInterval
	}
	sampleEvery := config.DepthSampleInterval
	if sampleEvery == 0 {
		sampleEvery = constants.DepthSampleInterval
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Executor{
		ring:         config.Ring,
		transport:    config.Transport,
		metrics:      config.Metrics,
		logger:       logger.WithComponent("executor"),
		opTimeout:    opTimeout,
		pollInterval: pollInterval,
		sampleEvery:  sampleEvery,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the execution loop and the depth sampler.
func (e *Executor) Start() {
	e.wg.Add(2)
	go e.run()
	go e.sampleDepth()
	e.logger.Info("executor started",
		"ring_capacity", e.ring.Capacity(),
		"op_timeout", e.opTimeout.String())
}

// run is the single-consumer execution loop. It never blocks on the ring:
// an empty ring is a normal backpressure signal answered with a short sleep.
func (e *Executor) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Debug("execution loop stopping")
			return
		default:
		}

		desc, err := e.ring.Pop()
		if err != nil {
			time.Sleep(e.pollInterval)
			continue
		}

		e.execute(desc)
	}
}

// execute runs one descriptor through the transport and settles its
// completion exactly once.
func (e *Executor) execute(desc *fastlane.IODesc) {
	// Barrier semantics: a flush ahead of the operation orders it behind
	// everything already executed on this serial path and persisted media
	// state. Serial consumption already gives queue-order execution.
	if desc.Flags.Barrier && desc.Op != fastlane.OpFlush {
		barrier := fastlane.NewIODesc(fastlane.OpFlush, desc.NamespaceID, 0, 0, fastlane.IOFlags{}, nil)
		barrierCtx, cancel := context.WithTimeout(e.ctx, e.opTimeout)
		if err := e.transport.Execute(barrierCtx, barrier); err != nil {
			e.logger.Warn("barrier flush failed", "namespace_id", desc.NamespaceID, "error", err)
		}
		cancel()
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.opTimeout)
	start := time.Now()
	err := e.transport.Execute(ctx, desc)
	elapsed := time.Since(start)
	cancel()

	e.metrics.ObserveIOLatency(elapsed.Seconds())

	if err != nil {
		e.metrics.IncIOError(desc.Op, fastlane.Reason(err))
		switch {
		case fastlane.IsCode(err, fastlane.ErrCodeTimeout):
			e.metrics.IncNVMeTimeout()
		case fastlane.IsCode(err, fastlane.ErrCodeCQOverflow):
			e.metrics.IncCQOverflow()
		}
		e.logger.WithError(err).Error("operation failed",
			"op", desc.Op.Label(),
			"namespace_id", desc.NamespaceID,
			"lba", desc.LBA,
			"length", desc.Length)
	}

	if c := desc.TakeCompletion(); c != nil {
		c(err)
	}
}

// sampleDepth publishes ring occupancy into the queue depth gauge at the
// configured cadence.
func (e *Executor) sampleDepth() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sampleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.metrics.SetQueueDepth(e.ring.Len())
		}
	}
}

// Close stops the execution loop and drains descriptors still resident in
// the ring, settling each completion with a shutdown error so no waiter
// leaks. The producer must have stopped submitting before Close is called.
func (e *Executor) Close() error {
	e.cancel()
	e.wg.Wait()

	shutdownErr := fastlane.NewError("SHUTDOWN", fastlane.ErrCodeShutdown, "executor shutting down")
	dropped := e.ring.Drain(func(d *fastlane.IODesc) {
		if c := d.TakeCompletion(); c != nil {
			c(shutdownErr)
		}
	})
	if dropped > 0 {
		e.logger.Warn("dropped undelivered descriptors at shutdown", "count", dropped)
	}

	e.metrics.SetQueueDepth(0)
	e.logger.Info("executor stopped")
	return nil
}
