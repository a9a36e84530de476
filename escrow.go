package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xraph/escrow/event"
	"github.com/xraph/escrow/host"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/journal"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/protocol"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// DefaultCrankBatchSize bounds how many due subscriptions one crank run charges.
const DefaultCrankBatchSize = 100

// Engine is the subscription escrow. It owns the provider registry, the plan
// catalog, subscriptions and escrow balances, and is the only writer of the
// store it is given.
//
// Operations are strictly sequential. Each one runs inside a single atomic
// store scope: it either commits completely, together with the journal
// entries of the events it emitted, or leaves no trace.
type Engine struct {
	store   store.Store
	host    host.Host
	plugins *plugin.Registry
	logger  *slog.Logger

	// mu admits one operation at a time.
	mu sync.Mutex

	// Crank worker
	cron           *cron.Cron
	crankSchedule  string
	crankBatchSize int
	keeper         types.Address
	skipMigrate    bool
	runCtx         context.Context
	cancel         context.CancelFunc
	lifecycle      sync.Mutex
	started        bool
}

// New creates a new Engine on top of a store and a host.
func New(s store.Store, h host.Host, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		host:           h,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		crankBatchSize: DefaultCrankBatchSize,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithCrankSchedule runs the crank on a cron schedule (e.g. "@every 1m")
// between Start and Stop. Without it the crank only runs through RunCrank.
func WithCrankSchedule(spec string) Option {
	return func(e *Engine) {
		e.crankSchedule = spec
	}
}

// WithCrankBatchSize sets how many due subscriptions a crank run charges.
func WithCrankBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.crankBatchSize = n
		}
	}
}

// WithKeeper sets the caller identity crank runs use.
func WithKeeper(addr types.Address) Option {
	return func(e *Engine) {
		e.keeper = addr
	}
}

// WithoutMigrate makes Start skip store migrations. Use it when the schema is
// managed out of band.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Start migrates the store, initializes plugins and schedules the crank.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.started {
		return nil
	}

	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.runCtx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if e.crankSchedule != "" {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(e.crankSchedule, e.scheduledCrank); err != nil {
			e.cancel()
			return fmt.Errorf("escrow: schedule crank %q: %w", e.crankSchedule, err)
		}
		c.Start()
		e.cron = c
	}

	e.started = true
	e.logger.Info("escrow started",
		"crank_schedule", e.crankSchedule,
		"crank_batch_size", e.crankBatchSize,
		"keeper", e.keeper.Hex(),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop waits for a running crank, shuts plugins down and closes the store.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.started {
		return nil
	}

	if e.cron != nil {
		<-e.cron.Stop().Done()
		e.cron = nil
	}
	e.cancel()

	e.plugins.EmitShutdown(context.Background())
	e.started = false

	e.logger.Info("escrow stopped")
	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Call execution
// ──────────────────────────────────────────────────

// callContext is the state of one operation while its atomic scope is open.
type callContext struct {
	ctx   context.Context
	tx    store.Store
	call  host.Call
	now   uint64
	state *protocol.State

	stateDirty  bool
	events      []event.Event
	deactivated []*subscription.Subscription

	// failAfterCommit is returned to the caller after the scope commits.
	failAfterCommit error
}

func (c *callContext) emit(ev event.Event) {
	c.events = append(c.events, ev)
}

func (c *callContext) touchState() {
	c.stateDirty = true
}

// execute runs a non-payable operation that requires an initialized protocol.
func (e *Engine) execute(ctx context.Context, op string, call host.Call, fn func(c *callContext) error) error {
	return e.run(ctx, op, call, false, initialized(fn))
}

// executePayable is execute for operations that accept attached value.
func (e *Engine) executePayable(ctx context.Context, op string, call host.Call, fn func(c *callContext) error) error {
	return e.run(ctx, op, call, true, initialized(fn))
}

func initialized(fn func(c *callContext) error) func(c *callContext) error {
	return func(c *callContext) error {
		if !c.state.Initialized() {
			return ErrNotInitialized
		}
		return fn(c)
	}
}

// run executes fn in one atomic scope. A non-payable operation called with
// value fails before the scope opens, so the host refunds the value.
func (e *Engine) run(ctx context.Context, op string, call host.Call, payable bool, fn func(c *callContext) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !payable && call.Value.IsPositive() {
		return e.failed(ctx, op, call, ErrValueNotAccepted)
	}

	now := e.host.Now(ctx)

	var cc *callContext
	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		st, err := tx.GetState(ctx)
		if err != nil {
			return fmt.Errorf("escrow: load protocol state: %w", err)
		}
		cc = &callContext{ctx: ctx, tx: tx, call: call, now: now, state: st}

		if err := fn(cc); err != nil {
			return err
		}
		if err := e.appendJournal(cc); err != nil {
			return err
		}
		if cc.stateDirty {
			cc.state.Touch()
			if err := tx.SaveState(ctx, cc.state); err != nil {
				return fmt.Errorf("escrow: save protocol state: %w", err)
			}
		}
		return nil
	})

	if err == nil {
		for _, ev := range cc.events {
			e.plugins.Emit(ctx, ev)
		}
		for _, sub := range cc.deactivated {
			e.plugins.EmitSubscriptionDeactivated(ctx, sub)
		}
		err = cc.failAfterCommit
	}

	if err != nil {
		return e.failed(ctx, op, call, err)
	}

	e.logger.Debug("escrow call committed",
		"op", op,
		"caller", call.Caller.Hex(),
		"events", len(cc.events),
	)
	return nil
}

// failed logs a rejected call, tells plugins and returns err.
func (e *Engine) failed(ctx context.Context, op string, call host.Call, err error) error {
	e.logger.Warn("escrow call failed",
		"op", op,
		"caller", call.Caller.Hex(),
		"kind", KindOf(err),
		"error", err,
	)
	e.plugins.EmitCallFailed(ctx, op, call.Caller, err)
	return err
}

// appendJournal writes the buffered events of c to the journal.
func (e *Engine) appendJournal(c *callContext) error {
	if len(c.events) == 0 {
		return nil
	}

	seq := c.state.NextEventSeq
	if seq == 0 {
		seq = 1
	}

	entries := make([]*journal.Entry, 0, len(c.events))
	for _, ev := range c.events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("escrow: encode %s: %w", ev.EventName(), err)
		}
		entries = append(entries, &journal.Entry{
			ID:        id.NewEventID(),
			Seq:       seq,
			Name:      ev.EventName(),
			Topic:     event.Topic(ev.EventName()).Hex(),
			Payload:   payload,
			Timestamp: c.now,
		})
		seq++
	}

	if err := c.tx.AppendEntries(c.ctx, entries); err != nil {
		return fmt.Errorf("escrow: append journal: %w", err)
	}
	c.state.NextEventSeq = seq
	c.touchState()
	return nil
}

// read runs a read-only query between operations.
func (e *Engine) read(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// storeErr wraps an unexpected store failure.
func storeErr(op string, err error) error {
	return fmt.Errorf("escrow: %s: %w", op, err)
}
