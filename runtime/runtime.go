// Package runtime boots an admin site from modules: each module registers
// its models, views and plugins after the modules it depends on.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/logging"
	"github.com/leeforge/adminsite/site"
)

// Module contributes registrations to a site at startup.
type Module interface {
	Name() string
	Dependencies() []string
	Register(ctx context.Context, s *site.Site) error
}

// Closer is implemented by modules holding resources until shutdown.
type Closer interface {
	Close(ctx context.Context) error
}

// OptionalModule is implemented by modules whose failure should not abort
// startup.
type OptionalModule interface {
	Optional() bool
}

// State is the lifecycle state of a module.
type State int

const (
	StateAdded State = iota
	StateLoaded
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAdded:
		return "added"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds configuration for creating a new Runtime.
type Config struct {
	Site   *site.Site
	Logger logging.Logger
	// ShutdownTimeout bounds Shutdown; default 30s.
	ShutdownTimeout time.Duration
}

// Runtime loads modules into a site in dependency order.
type Runtime struct {
	site    *site.Site
	logger  logging.Logger
	timeout time.Duration

	mu      sync.RWMutex
	modules map[string]Module
	states  map[string]State
	errs    map[string]error

	bootOrder []string
}

// NewRuntime creates a runtime for cfg.Site.
func NewRuntime(cfg Config) *Runtime {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Runtime{
		site:    cfg.Site,
		logger:  cfg.Logger.Named("runtime"),
		timeout: cfg.ShutdownTimeout,
		modules: make(map[string]Module),
		states:  make(map[string]State),
		errs:    make(map[string]error),
	}
}

// Add registers a module. Must be called before Bootstrap.
func (r *Runtime) Add(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already added", name)
	}
	r.modules[name] = m
	r.states[name] = StateAdded
	r.logger.Debug("module added", zap.String("module", name))
	return nil
}

// Bootstrap registers every module with the site in dependency order and
// then freezes the site.
func (r *Runtime) Bootstrap(ctx context.Context) error {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	if r.site == nil {
		return errors.New("runtime has no site")
	}

	order, err := r.resolveDependencies()
	if err != nil {
		return fmt.Errorf("dependency resolution failed: %w", err)
	}
	r.bootOrder = order
	r.logger.Info("dependency resolution completed", zap.Strings("order", order))

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bootstrap canceled: %w", err)
		}
		if depErr := r.checkDependenciesHealthy(name); depErr != nil {
			if abortErr := r.handleModuleError(name, depErr); abortErr != nil {
				return abortErr
			}
			continue
		}
		if err := r.modules[name].Register(ctx, r.site); err != nil {
			if abortErr := r.handleModuleError(name, fmt.Errorf("register failed: %w", err)); abortErr != nil {
				return abortErr
			}
			continue
		}
		r.setState(name, StateLoaded)
	}

	r.site.Freeze()
	r.logger.Info("bootstrap completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("modules", len(order)),
	)
	return nil
}

// Shutdown closes loaded modules in reverse dependency order.
func (r *Runtime) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	chain := apperrors.NewErrorChain()
	for _, name := range slices.Backward(r.bootOrder) {
		if state, _ := r.State(name); state != StateLoaded {
			continue
		}
		if c, ok := r.modules[name].(Closer); ok {
			if err := c.Close(ctx); err != nil {
				r.logger.Error("module close failed", zap.String("module", name), zap.Error(err))
				chain.Add(moduleError(name, "close", err))
			}
		}
		r.setState(name, StateClosed)
	}
	r.logger.Info("shutdown completed")
	return chain.Err()
}

// Failures returns the errors of the modules that failed during Bootstrap
// without aborting it, in boot order. Nil when every module loaded.
func (r *Runtime) Failures() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := apperrors.NewErrorChain()
	for _, name := range r.bootOrder {
		if err, ok := r.errs[name]; ok {
			chain.Add(moduleError(name, "register", err))
		}
	}
	return chain.Err()
}

func moduleError(name, stage string, err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.ErrorTypeInternal, fmt.Sprintf("module %s %s: %v", name, stage, err)).
		WithDetail("module", name)
}

// State returns the state of a module by name.
func (r *Runtime) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[name]
	return state, ok
}

// States returns a snapshot of all module states.
func (r *Runtime) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.states)
}

// Err returns the error a failed module failed with.
func (r *Runtime) Err(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errs[name]
}

// BootOrder returns the topological order used during bootstrap.
func (r *Runtime) BootOrder() []string {
	return slices.Clone(r.bootOrder)
}

func (r *Runtime) setState(name string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[name] = s
}

// resolveDependencies orders modules with Kahn's algorithm, breaking ties
// by name.
func (r *Runtime) resolveDependencies() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inDegree := make(map[string]int, len(r.modules))
	dependents := make(map[string][]string)

	for name := range r.modules {
		inDegree[name] = 0
	}
	for name, m := range r.modules {
		for _, dep := range m.Dependencies() {
			if _, exists := r.modules[dep]; !exists {
				return nil, fmt.Errorf("module %q depends on %q which is not added", name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(r.modules) {
		return nil, errors.New("circular dependency detected")
	}
	return order, nil
}

func (r *Runtime) handleModuleError(name string, err error) error {
	r.mu.Lock()
	r.states[name] = StateFailed
	r.errs[name] = err
	r.mu.Unlock()

	if opt, ok := r.modules[name].(OptionalModule); ok && opt.Optional() {
		r.logger.Warn("optional module failed, continuing", zap.String("module", name), zap.Error(err))
		return nil
	}
	return fmt.Errorf("required module %q failed: %w", name, err)
}

func (r *Runtime) checkDependenciesHealthy(name string) error {
	for _, dep := range r.modules[name].Dependencies() {
		if state, _ := r.State(dep); state == StateFailed {
			return fmt.Errorf("dependency %q is in failed state", dep)
		}
	}
	return nil
}

// Func adapts a function into a Module.
type Func struct {
	ModuleName string
	Requires   []string
	Fn         func(ctx context.Context, s *site.Site) error
}

func (f Func) Name() string           { return f.ModuleName }
func (f Func) Dependencies() []string { return f.Requires }

func (f Func) Register(ctx context.Context, s *site.Site) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, s)
}
