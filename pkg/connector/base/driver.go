// Package base provides the lifecycle Driver that runs a connector's hooks.
//
// # Overview
//
// The Driver owns the connection state machine
//
//	Disconnected -> Connecting -> Connected -> Disconnecting -> Disconnected
//
// and a single executor goroutine that runs every hook invocation one at a
// time: the periodic execution tick, incoming commands and lazy map
// fetches. Hooks therefore never overlap and may keep per-robot state
// without locks.
//
// # Usage
//
//	driver := base.NewDriver(cfg, hooks, logger,
//	    base.WithMetrics(collector),
//	    base.WithTracer(tracer))
//	if err := driver.Start(ctx); err != nil {
//	    return err // connect failed, driver is Disconnected
//	}
//	<-ctx.Done()
//	driver.Stop()
//	return driver.Join(shutdownCtx)
//
// # Fault isolation
//
// Errors and panics raised by hooks are caught at the hook boundary. A
// failed connect is returned from Start once; a failed command is delivered
// as a failure outcome; a failed map fetch yields no map; a failed tick is
// logged and the next tick runs on schedule. Nothing is retried.
package base

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inorbit-ai/flowcore-connector/pkg/config"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/errors"
	"github.com/inorbit-ai/flowcore-connector/pkg/metrics"
	"github.com/inorbit-ai/flowcore-connector/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Hook names used for metrics, spans and logs
const (
	HookConnect    = "connect"
	HookDisconnect = "disconnect"
	HookTick       = "execution_tick"
	HookCommand    = "handle_command"
	HookFetchMap   = "fetch_map"
)

type commandRequest struct {
	cmd   core.Command
	token *core.ResultToken
}

type mapReply struct {
	descriptor *core.MapDescriptor
	ok         bool
}

type mapRequest struct {
	robotID string
	frameID string
	reply   chan mapReply
}

type mapKey struct {
	robotID string
	frameID string
}

// Option configures a Driver
type Option func(*Driver)

// WithMetrics sets the metrics collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(d *Driver) {
		d.metrics = collector
	}
}

// WithTracer sets the tracer used for hook spans
func WithTracer(tracer *observability.ConnectorTracer) Option {
	return func(d *Driver) {
		d.tracer = tracer
	}
}

// WithTickInterval overrides the interval derived from update_freq
func WithTickInterval(interval time.Duration) Option {
	return func(d *Driver) {
		if interval > 0 {
			d.tickInterval = interval
		}
	}
}

// Driver runs a connector's hooks against the lifecycle state machine.
type Driver struct {
	name         string
	config       *config.ConnectorConfig
	hooks        core.Hooks
	logger       *zap.Logger
	metrics      *metrics.Collector
	tracer       *observability.ConnectorTracer
	tickInterval time.Duration

	state atomic.Int32

	// Lifecycle
	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Executor queues
	commands chan commandRequest
	maps     chan mapRequest

	// Owned by the executor goroutine
	mapCache   map[mapKey]*core.MapDescriptor
	staticMaps map[string]*core.MapDescriptor

	// Tick bookkeeping read by health checks
	tickMu       sync.RWMutex
	lastTick     time.Time
	lastTickErr  error
	tickFailures int
}

// NewDriver creates a driver for the given configuration and hooks. The
// driver starts Disconnected.
func NewDriver(cfg *config.ConnectorConfig, hooks core.Hooks, logger *zap.Logger, opts ...Option) *Driver {
	name := cfg.ConnectorType()
	d := &Driver{
		name:         name,
		config:       cfg,
		hooks:        hooks,
		logger:       logger.With(zap.String("connector", name)),
		tickInterval: cfg.TickInterval(),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		commands:     make(chan commandRequest),
		maps:         make(chan mapRequest),
		mapCache:     make(map[mapKey]*core.MapDescriptor),
		staticMaps:   make(map[string]*core.MapDescriptor),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewCollector(name, nil)
	}
	if d.tracer == nil {
		d.tracer = observability.NewConnectorTracer(name, "driver", nil)
	}
	d.setState(core.StateDisconnected)
	return d
}

// Name returns the connector name
func (d *Driver) Name() string {
	return d.name
}

// State returns the current lifecycle state
func (d *Driver) State() core.State {
	return core.State(d.state.Load())
}

// Done returns a channel closed once the driver is back to Disconnected
// after Start, including after a failed connect.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Start runs the connect hook and, on success, starts the executor. A
// connect failure leaves the driver Disconnected and is returned. Cancelling
// ctx after Start returns has the same effect as Stop.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	select {
	case <-d.stopCh:
		d.mu.Unlock()
		return errors.New(errors.ErrorTypeState, "driver is stopped")
	default:
	}
	if d.started {
		d.mu.Unlock()
		return errors.New(errors.ErrorTypeState, "driver already started")
	}
	d.started = true

	// Hooks keep the caller's values but not its cancellation; Stop owns that.
	base := context.WithoutCancel(ctx)
	runCtx, cancel := context.WithCancel(base)
	d.cancel = cancel
	d.mu.Unlock()

	d.setState(core.StateConnecting)
	d.logger.Info("connecting to fleet service", zap.Int("robots", len(d.config.RobotIDs())))

	if err := d.invoke(runCtx, HookConnect, d.hooks.Connect); err != nil {
		d.logger.Error("failed to connect to fleet service", zap.Error(err))
		cancel()
		d.setState(core.StateDisconnected)
		close(d.done)
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to fleet service")
	}

	d.setState(core.StateConnected)
	d.logger.Info("connector started", zap.Duration("tick_interval", d.tickInterval))

	stopWithParent := context.AfterFunc(ctx, d.Stop)
	go d.run(runCtx, base, stopWithParent)
	return nil
}

// Stop requests shutdown. It is idempotent and does not block; use Join to
// wait for Disconnected.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		close(d.stopCh)
		if d.cancel != nil {
			d.cancel()
		}
		if !d.started {
			d.started = true
			close(d.done)
		}
		d.logger.Info("stop requested")
	})
}

// Join blocks until the driver reaches Disconnected or ctx is done.
func (d *Driver) Join(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrorTypeCancelled, "timed out waiting for disconnect")
	}
}

// DispatchCommand queues a command for the executor. The returned channel
// receives exactly one outcome. Commands sent while the driver is not
// Connected fail immediately.
func (d *Driver) DispatchCommand(ctx context.Context, cmd core.Command) <-chan core.CommandResult {
	token, results := core.NewResultToken()

	if d.State() != core.StateConnected {
		d.failCommand(token, errors.New(errors.ErrorTypeState, "connector is not connected").
			WithDetail("state", d.State().String()))
		return results
	}

	req := commandRequest{cmd: cmd, token: token}
	go func() {
		select {
		case d.commands <- req:
		case <-d.stopCh:
			d.failCommand(token, errors.New(errors.ErrorTypeCancelled, "connector is shutting down"))
		case <-ctx.Done():
			d.failCommand(token, errors.Wrap(ctx.Err(), errors.ErrorTypeCancelled, "command cancelled"))
		}
	}()
	return results
}

// FetchMap returns the map for a frame a robot reported. Pre-configured maps
// are served first, then maps fetched earlier, then the fetch-map hook. Any
// fault yields (nil, false).
func (d *Driver) FetchMap(ctx context.Context, robotID, frameID string) (*core.MapDescriptor, bool) {
	if d.State() != core.StateConnected {
		return nil, false
	}

	req := mapRequest{robotID: robotID, frameID: frameID, reply: make(chan mapReply, 1)}
	select {
	case d.maps <- req:
	case <-d.stopCh:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}

	select {
	case reply := <-req.reply:
		return reply.descriptor, reply.ok
	case <-ctx.Done():
		return nil, false
	}
}

// Health reports an error when the driver is not Connected or the last
// tick failed or is overdue.
func (d *Driver) Health(_ context.Context) error {
	state := d.State()
	if state != core.StateConnected {
		return errors.New(errors.ErrorTypeState, "connector is not connected").
			WithDetail("state", state.String())
	}

	d.tickMu.RLock()
	defer d.tickMu.RUnlock()

	if d.lastTickErr != nil {
		return errors.Wrap(d.lastTickErr, errors.ErrorTypeInternal, "last execution tick failed").
			WithDetail("consecutive_failures", d.tickFailures)
	}
	if !d.lastTick.IsZero() && time.Since(d.lastTick) > 3*d.tickInterval {
		return errors.New(errors.ErrorTypeInternal, "execution tick is overdue").
			WithDetail("last_tick", d.lastTick)
	}
	return nil
}

// run is the executor. It is the only goroutine that invokes hooks after
// connect.
func (d *Driver) run(ctx, base context.Context, stopWithParent func() bool) {
	defer close(d.done)
	defer stopWithParent()

	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	if ctx.Err() == nil {
		d.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			d.disconnect(base)
			return
		case <-ticker.C:
			d.tick(ctx)
		case req := <-d.commands:
			d.handleCommand(ctx, req)
		case req := <-d.maps:
			descriptor, ok := d.fetchMap(ctx, req.robotID, req.frameID)
			req.reply <- mapReply{descriptor: descriptor, ok: ok}
		}
	}
}

func (d *Driver) tick(ctx context.Context) {
	err := d.invoke(ctx, HookTick, d.hooks.ExecutionTick)

	d.tickMu.Lock()
	d.lastTick = time.Now()
	d.lastTickErr = err
	if err != nil {
		d.tickFailures++
	} else {
		d.tickFailures = 0
	}
	failures := d.tickFailures
	d.tickMu.Unlock()

	if err != nil {
		d.logger.Warn("execution tick failed", zap.Error(err), zap.Int("consecutive_failures", failures))
	}
}

func (d *Driver) handleCommand(ctx context.Context, req commandRequest) {
	logger := d.logger.With(zap.String("robot_id", req.cmd.RobotID), zap.String("command", req.cmd.Name))

	err := d.invoke(ctx, HookCommand, func(ctx context.Context) error {
		return d.hooks.HandleCommand(ctx, req.cmd, req.token)
	}, attribute.String("robot.id", req.cmd.RobotID), attribute.String("command.name", req.cmd.Name))

	if err != nil {
		logger.Error("command failed", zap.Error(err))
		req.token.Fail(err)
	}
	if !req.token.Resolved() {
		logger.Warn("command handler returned without a result")
		req.token.Fail(errors.New(errors.ErrorTypeInternal, "command handler returned without a result"))
	}

	result, _ := req.token.Result()
	d.metrics.RecordCommand(string(result.Code))
}

func (d *Driver) failCommand(token *core.ResultToken, err error) {
	if token.Fail(err) {
		d.metrics.RecordCommand(string(core.ResultFailure))
	}
}

func (d *Driver) fetchMap(ctx context.Context, robotID, frameID string) (*core.MapDescriptor, bool) {
	logger := d.logger.With(zap.String("robot_id", robotID), zap.String("frame_id", frameID))

	if mapConfig, ok := d.config.Map(frameID); ok {
		descriptor, err := d.staticMap(frameID, mapConfig)
		if err != nil {
			logger.Error("failed to load configured map", zap.String("file", mapConfig.File), zap.Error(err))
			d.metrics.RecordMapRequest(metrics.MapSourceNone)
			return nil, false
		}
		d.metrics.RecordMapRequest(metrics.MapSourceConfig)
		return descriptor.Clone(), true
	}

	key := mapKey{robotID: robotID, frameID: frameID}
	if descriptor, ok := d.mapCache[key]; ok {
		d.metrics.RecordMapRequest(metrics.MapSourceCache)
		return descriptor.Clone(), true
	}

	var descriptor *core.MapDescriptor
	err := d.invoke(ctx, HookFetchMap, func(ctx context.Context) error {
		var err error
		descriptor, err = d.hooks.FetchMap(ctx, robotID, frameID)
		return err
	}, attribute.String("robot.id", robotID), attribute.String("map.frame_id", frameID))
	if err != nil {
		logger.Error("failed to fetch map", zap.Error(err))
		d.metrics.RecordMapRequest(metrics.MapSourceNone)
		return nil, false
	}
	if descriptor == nil {
		logger.Info("no map available for frame")
		d.metrics.RecordMapRequest(metrics.MapSourceNone)
		return nil, false
	}

	d.mapCache[key] = descriptor.Clone()
	d.metrics.RecordMapRequest(metrics.MapSourceFleet)
	return descriptor, true
}

// staticMap loads a configured map image once per frame.
func (d *Driver) staticMap(frameID string, mapConfig config.MapConfig) (*core.MapDescriptor, error) {
	if descriptor, ok := d.staticMaps[frameID]; ok {
		return descriptor, nil
	}

	image, err := os.ReadFile(mapConfig.File)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read map image").
			WithDetail("file", mapConfig.File)
	}

	descriptor := &core.MapDescriptor{
		Image:      image,
		MapID:      mapConfig.MapID,
		MapLabel:   mapConfig.MapLabel,
		OriginX:    mapConfig.OriginX,
		OriginY:    mapConfig.OriginY,
		Resolution: mapConfig.Resolution,
	}
	d.staticMaps[frameID] = descriptor
	return descriptor, nil
}

func (d *Driver) disconnect(ctx context.Context) {
	d.setState(core.StateDisconnecting)
	d.logger.Info("disconnecting from fleet service")

	if err := d.invoke(ctx, HookDisconnect, d.hooks.Disconnect); err != nil {
		d.logger.Error("failed to disconnect from fleet service", zap.Error(err))
	}

	d.mapCache = make(map[mapKey]*core.MapDescriptor)
	d.setState(core.StateDisconnected)
	d.logger.Info("connector stopped")
}

// invoke runs one hook inside a span, recording its duration and turning a
// panic into an internal error.
func (d *Driver) invoke(ctx context.Context, hook string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	timer := metrics.NewTimer(hook)
	err := d.tracer.Trace(ctx, hook, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.FromPanic(r, hook+" hook panicked")
			}
		}()
		return fn(ctx)
	}, attrs...)
	d.metrics.ObserveHook(hook, timer.Stop(), err)
	return err
}

func (d *Driver) setState(state core.State) {
	d.state.Store(int32(state))
	d.metrics.SetState(int(state))
	d.logger.Debug("state changed", zap.Stringer("state", state))
}
