package formstate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/activity"
	"github.com/goliatone/go-formstate/pkg/store"
)

// DefaultQuietInterval is how long input must stay quiet before a pending
// save fires.
const DefaultQuietInterval = 2 * time.Second

const defaultSaveTimeout = 5 * time.Second

var (
	// ErrNoStore indicates a cache or registry was built without a snapshot store.
	ErrNoStore = errors.New("formstate: snapshot store is required")
	// ErrClosed indicates an operation arrived after Close.
	ErrClosed = errors.New("formstate: cache is closed")
	// ErrNoEvaluator indicates no rule evaluator could be resolved.
	ErrNoEvaluator = errors.New("formstate: evaluator not configured")
)

// Syncer forwards a saved snapshot to a remote endpoint. Implementations are
// best-effort: the cache logs failures through the error handler and never
// retries.
type Syncer interface {
	Sync(ctx context.Context, formID string, snapshot Snapshot) error
}

// SyncerFunc adapts a function to Syncer.
type SyncerFunc func(ctx context.Context, formID string, snapshot Snapshot) error

// Sync dispatches to the underlying function.
func (f SyncerFunc) Sync(ctx context.Context, formID string, snapshot Snapshot) error {
	if f == nil {
		return nil
	}
	return f(ctx, formID, snapshot)
}

// Notifier surfaces generic user-facing messages (e.g. retry prompts).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(string)

// Notify dispatches to the underlying function.
func (f NotifierFunc) Notify(message string) {
	if f != nil {
		f(message)
	}
}

type cacheConfig struct {
	quiet        time.Duration
	saveTimeout  time.Duration
	syncer       Syncer
	skipRestore  bool
	onError      func(error)
	notifier     Notifier
	emitter      *activity.Emitter
	actorID      string
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	evalLogger   EvaluatorLogger
}

// CacheOption configures a Cache.
type CacheOption func(*cacheConfig)

// WithQuietInterval overrides the debounce quiet interval.
func WithQuietInterval(d time.Duration) CacheOption {
	return func(cfg *cacheConfig) {
		if d > 0 {
			cfg.quiet = d
		}
	}
}

// WithSaveTimeout bounds how long a background save or sync may run.
func WithSaveTimeout(d time.Duration) CacheOption {
	return func(cfg *cacheConfig) {
		if d > 0 {
			cfg.saveTimeout = d
		}
	}
}

// WithSyncer attaches the remote forwarder invoked after each save.
func WithSyncer(s Syncer) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.syncer = s
	}
}

// WithoutRestore skips the restore pass normally performed at registration.
func WithoutRestore() CacheOption {
	return func(cfg *cacheConfig) {
		cfg.skipRestore = true
	}
}

// WithErrorHandler funnels background failures (store writes during a
// debounce fire, sync attempts) to fn. Without a handler they are dropped.
func WithErrorHandler(fn func(error)) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.onError = fn
	}
}

// WithNotifier attaches a user-facing notifier for submit failures.
func WithNotifier(n Notifier) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.notifier = n
	}
}

// WithActivityHooks fans lifecycle events (saved, restored, submitted,
// cleared, synced) out to hooks.
func WithActivityHooks(hooks activity.Hooks) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.emitter = activity.NewEmitter(hooks, activity.Config{Enabled: true})
	}
}

// WithActivityEmitter attaches a preconfigured emitter.
func WithActivityEmitter(emitter *activity.Emitter) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.emitter = emitter
	}
}

// WithActorID attributes lifecycle events to a principal.
func WithActorID(id string) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.actorID = id
	}
}

// WithEvaluator configures the rule evaluator used at submit time.
func WithEvaluator(e Evaluator) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a compiled-rule cache.
func WithProgramCache(cache ProgramCache) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry configures custom functions available to rules.
func WithFunctionRegistry(registry *FunctionRegistry) CacheOption {
	return func(cfg *cacheConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for rule expressions.
func WithCustomFunction(name string, fn Function) CacheOption {
	return func(cfg *cacheConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger attaches a logger for rule evaluations.
func WithEvaluatorLogger(logger EvaluatorLogger) CacheOption {
	return func(cfg *cacheConfig) {
		if logger == nil {
			cfg.evalLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evalLogger = logger
	}
}

func applyCacheOptions(opts []CacheOption) cacheConfig {
	cfg := cacheConfig{
		quiet:       DefaultQuietInterval,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Cache drives debounced auto-save for a single form. Every Touch cancels
// and restarts the quiet-interval timer, so at most one save is pending per
// form and a save only fires once input has quiesced.
type Cache struct {
	form  *Form
	store store.Store[Snapshot]
	key   string
	cfg   cacheConfig

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	closed   bool
	restored bool
	report   RestoreResult
	inflight sync.WaitGroup

	restoreMu sync.Mutex
}

// NewCache builds the auto-save driver for form, persisting snapshots into
// st under the form's storage key.
func NewCache(form *Form, st store.Store[Snapshot], opts ...CacheOption) (*Cache, error) {
	if form == nil {
		return nil, ErrFormIDRequired
	}
	if st == nil {
		return nil, ErrNoStore
	}
	key, err := form.StorageKey()
	if err != nil {
		return nil, err
	}
	return &Cache{
		form:  form,
		store: st,
		key:   key,
		cfg:   applyCacheOptions(opts),
	}, nil
}

// Form returns the form driven by this cache.
func (c *Cache) Form() *Form {
	return c.form
}

// Key returns the storage key the cache persists under.
func (c *Cache) Key() string {
	return c.key
}

// QuietInterval returns the configured debounce interval.
func (c *Cache) QuietInterval() time.Duration {
	return c.cfg.quiet
}

// Input records a field change and restarts the debounce timer. It reports
// false when the form has no field under name, in which case no timer is
// started.
func (c *Cache) Input(name, value string) bool {
	if !c.form.SetValue(name, value) {
		return false
	}
	c.Touch()
	return true
}

// Touch restarts the pending save timer without changing field state.
func (c *Cache) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelPendingLocked()
	gen := c.gen
	c.timer = time.AfterFunc(c.cfg.quiet, func() { c.fire(gen) })
}

// cancelPendingLocked stops the armed timer and advances the generation so a
// fire already past its timer, blocked on the mutex, returns without saving.
// Callers must hold c.mu.
func (c *Cache) cancelPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

// fire runs on the timer goroutine once input has stayed quiet. gen is the
// generation captured when the timer was armed; a mismatch means the timer
// was cancelled or superseded after expiry and this fire must not save.
func (c *Cache) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.saveTimeout)
	defer cancel()
	if err := c.save(ctx); err != nil {
		c.reportError(err)
	}
}

// Flush cancels any pending timer and saves immediately.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancelPendingLocked()
	c.mu.Unlock()
	return c.save(ctx)
}

func (c *Cache) save(ctx context.Context) error {
	snapshot := c.form.Snapshot()
	meta := store.Meta{
		SnapshotID: uuid.NewString(),
		UpdatedAt:  time.Now().UTC(),
	}
	saved, err := c.store.Save(ctx, c.key, snapshot.Clone(), meta)
	if err != nil {
		return fmt.Errorf("formstate: save %q: %w", c.key, err)
	}
	c.emit(ctx, activity.BuildFormSavedEvent(c.eventInput(saved.SnapshotID, snapshot)))

	if c.cfg.syncer != nil {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			syncCtx, cancel := context.WithTimeout(context.Background(), c.cfg.saveTimeout)
			defer cancel()
			if err := c.cfg.syncer.Sync(syncCtx, c.form.ID(), snapshot); err != nil {
				c.reportError(fmt.Errorf("formstate: sync %q: %w", c.key, err))
				return
			}
			c.emit(syncCtx, activity.BuildFormSyncedEvent(c.eventInput(saved.SnapshotID, snapshot)))
		}()
	}
	return nil
}

// Close stops the pending timer and waits for in-flight sync attempts.
// Further touches are ignored.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelPendingLocked()
	c.mu.Unlock()
	c.inflight.Wait()
	return nil
}

func (c *Cache) reportError(err error) {
	if err == nil || c.cfg.onError == nil {
		return
	}
	c.cfg.onError(err)
}

func (c *Cache) notifyRetry() {
	if c.cfg.notifier == nil {
		return
	}
	c.cfg.notifier.Notify("something went wrong, your input was kept - please retry")
}

func (c *Cache) emit(ctx context.Context, event activity.Event) {
	if c.cfg.emitter == nil || !c.cfg.emitter.Enabled() {
		return
	}
	if err := c.cfg.emitter.Emit(ctx, event); err != nil {
		c.reportError(fmt.Errorf("formstate: activity emit: %w", err))
	}
}

func (c *Cache) eventInput(snapshotID string, snapshot Snapshot) activity.FormEventInput {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	return activity.FormEventInput{
		ActorID:    c.cfg.actorID,
		FormID:     c.form.ID(),
		StorageKey: c.key,
		SnapshotID: snapshotID,
		Fields:     names,
		Endpoint:   c.form.SyncEndpoint(),
	}
}

// evaluateRule resolves an evaluator, runs expr, and logs the attempt.
func (c *Cache) evaluateRule(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("formstate: rule expression must not be empty")
	}
	evaluator, err := c.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.formLabel(), evalErr)
	c.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Form:     ctx.formLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (c *Cache) resolveEvaluator() (Evaluator, error) {
	if c.cfg.evaluator != nil {
		return c.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if c.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(c.cfg.programCache))
	}
	if c.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(c.cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	c.cfg.evaluator = evaluator
	return evaluator, nil
}

func (c *Cache) evaluatorLogger() EvaluatorLogger {
	if c.cfg.evalLogger != nil {
		return c.cfg.evalLogger
	}
	return noopEvaluatorLogger{}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*formstate.exprEvaluator":
		return "expr"
	case "*formstate.celEvaluator":
		return "cel"
	case "*formstate.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
