package factory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DevelApp-ai/PluginJobRunner/internal/discovery"
	"github.com/DevelApp-ai/PluginJobRunner/internal/events"
	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/registry"
	"github.com/DevelApp-ai/PluginJobRunner/internal/runtime"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

// ErrClosed is returned by every operation on a closed Factory.
var ErrClosed = errors.New("executor factory is closed")

// Report counts what a load did.
type Report struct {
	Discovered int
	Accepted   int
	Rejected   int
	Replaced   int
	Evicted    int
}

func (r *Report) add(o Report) {
	r.Discovered += o.Discovered
	r.Accepted += o.Accepted
	r.Rejected += o.Rejected
	r.Replaced += o.Replaced
	r.Evicted += o.Evicted
}

// Factory resolves executors by full name. It is safe for concurrent use.
type Factory struct {
	closed atomic.Bool

	registry *registry.Registry
	gate     *security.Gate
	notifier *events.Notifier
	logger   *zap.Logger

	// mu serializes writers: loads, registrations and Close.
	mu       sync.Mutex
	bindings []runtime.Binding
	report   Report
}

// New scans location (a directory path or file:// URI) for modules and
// returns a factory holding every executor that passed the security gate.
func New(ctx context.Context, location string, opts ...Option) (*Factory, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	dispatcher := cfg.dispatcher
	if dispatcher == nil {
		catalog := cfg.catalog
		if catalog == nil {
			catalog = runtime.NewCatalog()
		}
		dispatcher = runtime.NewDispatcher(catalog, nil)
	}

	src := discovery.NewFileSystem(location, dispatcher, discovery.WithLogger(cfg.logger))
	f, err := newFactory(ctx, src, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading executors from %s: %w", location, err)
	}
	return f, nil
}

// NewWithSource is like New but discovers executors from src.
func NewWithSource(ctx context.Context, src discovery.Source, opts ...Option) (*Factory, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	f, err := newFactory(ctx, src, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading executors: %w", err)
	}
	return f, nil
}

func newFactory(ctx context.Context, src discovery.Source, cfg config) (*Factory, error) {
	gate := cfg.gate
	if gate == nil {
		gate = security.NewGate()
	}

	f := &Factory{
		registry: registry.New(cfg.retain),
		gate:     gate,
		notifier: events.NewNotifier(cfg.logger),
		logger:   cfg.logger,
	}
	if _, err := f.notifier.Subscribe(events.LogListener(cfg.logger)); err != nil {
		return nil, err
	}
	for _, l := range cfg.listeners {
		if _, err := f.notifier.Subscribe(l); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// All sources are opened before anything is admitted so that a bad
	// location fails construction without leaving modules loaded.
	seq, err := discovery.Chain(append([]discovery.Source{src}, cfg.extra...)...).Discover(ctx, f.notifier)
	if err != nil {
		f.notifier.Close()
		return nil, err
	}
	f.report = f.admitAll(seq)

	f.logger.Info("executor factory ready",
		zap.Int("discovered", f.report.Discovered),
		zap.Int("accepted", f.report.Accepted),
		zap.Int("rejected", f.report.Rejected),
		zap.Int("registered", f.registry.Len()),
	)
	return f, nil
}

// Report returns the combined counts of construction and every later load.
func (f *Factory) Report() Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.report
}

// Load discovers src and admits its executors into the running factory.
func (f *Factory) Load(ctx context.Context, src discovery.Source) (Report, error) {
	if f.closed.Load() {
		return Report{}, ErrClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return Report{}, ErrClosed
	}

	seq, err := src.Discover(ctx, f.notifier)
	if err != nil {
		return Report{}, err
	}
	r := f.admitAll(seq)
	f.report.add(r)
	return r, nil
}

// Register admits a single descriptor. It reports whether the descriptor
// passed the security gate and is still retained.
func (f *Factory) Register(d *discovery.Descriptor) (bool, error) {
	if f.closed.Load() {
		return false, ErrClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return false, ErrClosed
	}

	var r Report
	accepted := f.admit(d, &r)
	f.report.add(r)
	return accepted, nil
}

func (f *Factory) admitAll(seq iter.Seq[*discovery.Descriptor]) Report {
	var r Report
	for d := range seq {
		f.admit(d, &r)
	}
	return r
}

// admit runs d through the gate and registers it. Must hold f.mu.
func (f *Factory) admit(d *discovery.Descriptor, r *Report) bool {
	r.Discovered++
	if d == nil {
		f.notifier.Publish(events.LoadFailure{Source: "unknown", Err: errors.New("nil descriptor")})
		return false
	}
	if d.Binding == nil {
		f.notifier.Publish(events.LoadFailure{
			Source:   d.Source,
			Identity: d.Identity,
			Err:      errors.New("descriptor has no runtime binding"),
		})
		return false
	}
	if err := d.Identity.Validate(); err != nil {
		f.notifier.Publish(events.LoadFailure{Source: d.Source, Identity: d.Identity, Err: err})
		f.closeBinding(d)
		return false
	}

	result := f.gate.Validate(d.Subject())
	if !result.Valid {
		r.Rejected++
		f.notifier.Publish(events.SecurityFailure{
			Source:   d.Source,
			Identity: d.Identity,
			Result:   result,
			Rejected: true,
		})
		f.closeBinding(d)
		return false
	}
	if result.HasFindings() {
		f.notifier.Publish(events.SecurityFailure{
			Source:   d.Source,
			Identity: d.Identity,
			Result:   result,
		})
	}

	entry := &registry.Entry{
		Identity:    d.Identity,
		Description: d.Description,
		Source:      d.Source,
		New:         d.Binding.New,
	}
	change := f.registry.Register(entry)
	f.bindings = append(f.bindings, d.Binding)
	r.Accepted++
	r.Evicted += len(change.Evicted)

	if change.Replaced != nil {
		r.Replaced++
		f.notifier.Publish(events.DuplicateRegistration{
			Identity:       d.Identity,
			Source:         d.Source,
			ReplacedSource: change.Replaced.Source,
		})
	}
	for _, ev := range change.Evicted {
		f.logger.Debug("executor version evicted", zap.Stringer("executor", ev.Identity))
	}

	f.logger.Debug("executor registered",
		zap.Stringer("executor", d.Identity),
		zap.String("source", d.Source),
	)
	return change.Retained(entry)
}

func (f *Factory) closeBinding(d *discovery.Descriptor) {
	if err := d.Binding.Close(); err != nil {
		f.logger.Warn("closing rejected module", zap.Stringer("executor", d.Identity), zap.Error(err))
	}
}

// GetExecutor returns a new instance of the newest executor registered under
// fullName ("<namespace>.<name>"). A malformed or unknown name, or an
// executor that cannot be constructed, yields nil without an error; the
// construction failure is published as an InstantiationFailure. The only
// error is ErrClosed.
func (f *Factory) GetExecutor(fullName string) (executor.Executor, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	ns, name, ok := executor.SplitFullName(fullName)
	if !ok {
		return nil, nil
	}
	entry, ok := f.registry.Resolve(ns, name)
	if !ok {
		return nil, nil
	}
	return f.instantiate(entry), nil
}

// GetExecutorVersion is like GetExecutor but pins the version. An
// unparseable version yields nil.
func (f *Factory) GetExecutorVersion(fullName, version string) (executor.Executor, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	ns, name, ok := executor.SplitFullName(fullName)
	if !ok {
		return nil, nil
	}
	v, err := executor.ParseVersion(version)
	if err != nil {
		return nil, nil
	}
	entry, ok := f.registry.ResolveVersion(ns, name, v)
	if !ok {
		return nil, nil
	}
	return f.instantiate(entry), nil
}

func (f *Factory) instantiate(entry *registry.Entry) executor.Executor {
	e, err := construct(entry)
	if err != nil {
		f.notifier.Publish(events.InstantiationFailure{Identity: entry.Identity, Err: err})
		return nil
	}
	return e
}

func construct(entry *registry.Entry) (e executor.Executor, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("constructor panicked: %v", r)
		}
	}()

	e, err = entry.New()
	switch {
	case err != nil:
		return nil, err
	case e == nil:
		return nil, errors.New("constructor returned no executor")
	case !e.Identity().Equal(entry.Identity):
		return nil, fmt.Errorf("constructed executor reports identity %s", e.Identity())
	}
	return e, nil
}

// Executors lists every retained registration, ordered by address and
// newest version first.
func (f *Factory) Executors() ([]registry.Entry, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	entries := f.registry.Entries()
	out := make([]registry.Entry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out, nil
}

// Versions lists the retained versions of fullName, newest first.
func (f *Factory) Versions(fullName string) ([]string, error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	ns, name, ok := executor.SplitFullName(fullName)
	if !ok {
		return nil, nil
	}
	var out []string
	for _, v := range f.registry.Versions(ns, name) {
		out = append(out, v.String())
	}
	return out, nil
}

// Subscribe attaches a listener for failure events.
func (f *Factory) Subscribe(l events.Listener) (func(), error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	unsubscribe, err := f.notifier.Subscribe(l)
	if errors.Is(err, events.ErrClosed) {
		return nil, ErrClosed
	}
	return unsubscribe, err
}

// Events returns a buffered channel of failure events. Events that do not
// fit are dropped. The channel is closed when the factory closes.
func (f *Factory) Events(size int) (<-chan events.Event, func(), error) {
	if f.closed.Load() {
		return nil, nil, ErrClosed
	}
	ch, unsubscribe, err := f.notifier.Channel(size)
	if errors.Is(err, events.ErrClosed) {
		return nil, nil, ErrClosed
	}
	return ch, unsubscribe, err
}

// Close unregisters every executor, releases loaded modules and detaches
// all listeners. Executors already handed out stay usable only as far as
// their module allows. Calling Close again is a no-op.
func (f *Factory) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.registry.Clear()
	var errs []error
	for _, b := range f.bindings {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.bindings = nil
	f.notifier.Close()

	f.logger.Info("executor factory closed")
	return errors.Join(errs...)
}
